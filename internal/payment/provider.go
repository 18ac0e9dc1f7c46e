// Package payment は外部決済プロバイダへのアダプタを提供する。
package payment

import "context"

// メタデータキー。セッション作成時に計算した金額をWebhook確定時まで運ぶ唯一の経路。
const (
	MetadataKeyUserID      = "userId"
	MetadataKeyVendorID    = "vendorId"
	MetadataKeySubtotal    = "subtotalCents"
	MetadataKeyPlatformFee = "platformFeeCents"
	MetadataKeyCartItems   = "cartItems"
)

// EventCheckoutCompleted は決済完了を示すイベント種別。
const EventCheckoutCompleted = "checkout.session.completed"

// LineItem は決済セッションの1明細。金額はサーバー側で確定済みの値のみを使う。
type LineItem struct {
	Name            string
	Description     string
	Images          []string
	UnitAmountCents int64
	Quantity        int64
}

// SessionRequest は決済セッション作成の入力。
type SessionRequest struct {
	UserID           string
	VendorID         string
	LineItems        []LineItem
	SubtotalCents    int64
	PlatformFeeCents int64
	CartItemsJSON    string // 検証済みカート項目のJSON。表示用フィールドの往復に使う
	SuccessURL       string
	CancelURL        string
}

// Session はプロバイダが作成した決済セッション。
type Session struct {
	ID  string
	URL string
}

// CompletedSession は署名検証済みの決済完了イベントから抽出したセッション情報。
// ジャーナルへの保存・再処理のためにJSONシリアライズ可能にしている。
type CompletedSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	PaymentIntentID   string            `json:"payment_intent_id"`
	CustomerEmail     string            `json:"customer_email,omitempty"`
	AmountTotalCents  int64             `json:"amount_total"`
	Metadata          map[string]string `json:"metadata"`
}

// Event は署名検証済みのWebhookイベント。
// Sessionは種別がEventCheckoutCompletedの場合のみ非nil。
type Event struct {
	Type    string
	Session *CompletedSession
}

// Provider は決済プロバイダのインターフェース。
// 本番実装はStripeProvider、テストではモックを注入する。
type Provider interface {
	// CreateSession はプロバイダにホストされる決済セッションを作成する。
	CreateSession(ctx context.Context, req *SessionRequest) (*Session, error)

	// VerifyEvent は生のWebhookペイロードを署名ヘッダーと共有シークレットで検証する。
	// 検証失敗時はエラーを返し、イベントは一切処理してはならない。
	VerifyEvent(payload []byte, signatureHeader string) (*Event, error)
}
