// Package checkout は決済セッション作成のドメインロジックを提供する。
// クライアント申告のカートをサーバー側の正価で再解決し、
// 手数料ポリシーを適用した決済セッションを外部プロバイダに作成する。
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/marketpay/internal/fee"
	"github.com/hitoshi/marketpay/internal/model"
	"github.com/hitoshi/marketpay/internal/payment"
	"github.com/hitoshi/marketpay/internal/repository"
)

// platformFeeLineItemName は手数料の合成明細の表示名。
const platformFeeLineItemName = "Platform Service Fee"

// Metrics は決済セッション作成のメトリクス記録インターフェース。
type Metrics interface {
	RecordCheckoutSession()
	RecordFeeWaiver()
	RecordCheckoutFailure(code string)
}

// Request は決済セッション作成の入力。
type Request struct {
	CartItems    []model.CartItemRequest
	SuccessURL   string
	CancelURL    string
	CheckoutType model.CheckoutType
}

// Result は決済セッション作成の結果。
type Result struct {
	SessionID string
	URL       string
}

// Service は決済セッション作成のサービス層。
type Service struct {
	configRepo  repository.ConfigRepository
	vendorRepo  repository.VendorRepository
	productRepo repository.ProductRepository
	provider    payment.Provider
	metrics     Metrics

	defaultSuccessURL string
	defaultCancelURL  string

	// now は現在時刻の取得関数。テストで差し替える。
	now func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	configRepo repository.ConfigRepository,
	vendorRepo repository.VendorRepository,
	productRepo repository.ProductRepository,
	provider payment.Provider,
	metrics Metrics,
	defaultSuccessURL, defaultCancelURL string,
) *Service {
	return &Service{
		configRepo:        configRepo,
		vendorRepo:        vendorRepo,
		productRepo:       productRepo,
		provider:          provider,
		metrics:           metrics,
		defaultSuccessURL: defaultSuccessURL,
		defaultCancelURL:  defaultCancelURL,
		now:               time.Now,
	}
}

// CreateSession は認証済みユーザーのカートから決済セッションを作成する。
//
// カート項目の価格・商品名はすべて無視し、商品テーブルの正価で再解決する。
// 手数料はfeeパッケージのポリシーで計算し、0より大きい場合のみ
// 合成明細「Platform Service Fee」を追加する。
// 計算済みの金額はセッションのメタデータに載せ、Webhook確定時まで運ぶ。
func (s *Service) CreateSession(ctx context.Context, userID string, req *Request) (*Result, error) {
	if userID == "" {
		return nil, model.NewUnauthorizedError()
	}

	// 1. 入力の検証。ストアへのアクセスより前に行う。
	if len(req.CartItems) == 0 {
		s.metrics.RecordCheckoutFailure(model.ErrCodeEmptyCart)
		return nil, model.NewEmptyCartError()
	}
	for i, item := range req.CartItems {
		if err := item.Validate(); err != nil {
			s.metrics.RecordCheckoutFailure(model.ErrCodeInvalidCartItem)
			return nil, model.NewInvalidCartItemError(fmt.Sprintf("items[%d]: %v", i, err))
		}
	}

	// 2. 手数料ポリシー設定の読み込み（行が無ければデフォルト値）
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		s.metrics.RecordCheckoutFailure(model.ErrCodeCheckoutFailed)
		return nil, model.NewCheckoutFailedError(err)
	}

	// 3. 出店者の解決。先頭カート項目のvendor_idを使う。
	// カートは単一出店者前提（複数出店者カートの扱いは未定義のまま）。
	// 出店者行が存在しない場合はエラーにせず、非創業メンバーとして扱う。
	vendorID := req.CartItems[0].VendorID
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		s.metrics.RecordCheckoutFailure(model.ErrCodeCheckoutFailed)
		return nil, model.NewCheckoutFailedError(err)
	}

	// 4. 各カート項目を商品の正価で解決し、明細と小計を構築する。
	lineItems := make([]payment.LineItem, 0, len(req.CartItems)+1)
	var subtotalCents int64

	for _, item := range req.CartItems {
		productID := item.ResolveProductID()
		product, err := s.productRepo.FindByID(ctx, productID)
		if err != nil {
			s.metrics.RecordCheckoutFailure(model.ErrCodeCheckoutFailed)
			return nil, model.NewCheckoutFailedError(err)
		}
		if product == nil {
			s.metrics.RecordCheckoutFailure(model.ErrCodeProductNotFound)
			return nil, model.NewProductNotFoundError(productID)
		}

		lineItems = append(lineItems, payment.LineItem{
			Name:            product.Name,
			Description:     product.Description,
			Images:          product.Images,
			UnitAmountCents: product.PriceCents,
			Quantity:        item.Quantity,
		})
		subtotalCents += product.PriceCents * item.Quantity
	}

	// 5. 手数料の計算
	var platformFeeCents int64
	if req.CheckoutType == model.CheckoutTypeBarter {
		platformFeeCents = fee.ComputeBarter(subtotalCents, cfg)
	} else {
		platformFeeCents = fee.Compute(subtotalCents, vendor, cfg, s.now())
	}

	if platformFeeCents > 0 {
		lineItems = append(lineItems, payment.LineItem{
			Name:            platformFeeLineItemName,
			UnitAmountCents: platformFeeCents,
			Quantity:        1,
		})
	} else if subtotalCents > 0 {
		s.metrics.RecordFeeWaiver()
	}

	// 6. 検証済みカート項目をメタデータ用にシリアライズする。
	// 表示用フィールド（name/price/image）の往復のためで、金額計算には使われない。
	cartItemsJSON, err := json.Marshal(req.CartItems)
	if err != nil {
		s.metrics.RecordCheckoutFailure(model.ErrCodeCheckoutFailed)
		return nil, model.NewCheckoutFailedError(err)
	}

	// 7. 決済セッションの作成
	session, err := s.provider.CreateSession(ctx, &payment.SessionRequest{
		UserID:           userID,
		VendorID:         vendorID,
		LineItems:        lineItems,
		SubtotalCents:    subtotalCents,
		PlatformFeeCents: platformFeeCents,
		CartItemsJSON:    string(cartItemsJSON),
		SuccessURL:       s.resolveURL(req.SuccessURL, s.defaultSuccessURL),
		CancelURL:        s.resolveURL(req.CancelURL, s.defaultCancelURL),
	})
	if err != nil {
		s.metrics.RecordCheckoutFailure(model.ErrCodeCheckoutFailed)
		return nil, model.NewCheckoutFailedError(err)
	}

	s.metrics.RecordCheckoutSession()

	return &Result{SessionID: session.ID, URL: session.URL}, nil
}

// loadConfig は手数料ポリシー設定を取得する。行が存在しない場合はデフォルト値を返す。
func (s *Service) loadConfig(ctx context.Context) (model.MonetizationConfig, error) {
	cfg, err := s.configRepo.GetMonetizationConfig(ctx)
	if err != nil {
		return model.MonetizationConfig{}, err
	}
	if cfg == nil {
		return model.DefaultMonetizationConfig(), nil
	}
	return *cfg, nil
}

// resolveURL はリクエストのURL指定を優先し、空の場合はデフォルトを返す。
func (s *Service) resolveURL(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}

// IsCallerError は呼び出し側の修正で解決するエラーかどうかを判定する。
// リトライで解決する内部エラーと区別するために使う。
func IsCallerError(err error) bool {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeEmptyCart,
		model.ErrCodeInvalidCartItem, model.ErrCodeProductNotFound:
		return true
	}
	return false
}
