package model

import "time"

// OrderStatus は注文の状態を表す。
type OrderStatus string

const (
	// OrderStatusPaid は決済完了済みの注文。
	// 本サービスが作成する注文はすべてこの状態で、以後変更されない。
	OrderStatusPaid OrderStatus = "paid"
)

// OrderItem は注文に記録される明細。
// NameとImageはクライアント申告のカート内容を表示用に引き継ぐ。
// 金額はセッション作成時にサーバー側で確定済みのため、ここでの価格は参考値。
type OrderItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int64  `json:"quantity"`
	Image      string `json:"image,omitempty"`
}

// Order は決済完了により作成される注文レコード。
// StripeSessionIDで一意であり、同一セッションの注文は高々1件しか存在しない。
type Order struct {
	ID               string
	UserID           string
	VendorID         string
	Items            []OrderItem
	SubtotalCents    int64
	PlatformFeeCents int64
	TotalCents       int64
	Status           OrderStatus
	PaymentIntentID  string
	StripeSessionID  string
	CustomerEmail    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
