// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, checkout, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeEmptyCart       = "EMPTY_CART"
	ErrCodeInvalidCartItem = "INVALID_CART_ITEM"
	ErrCodeProductNotFound = "PRODUCT_NOT_FOUND"
	ErrCodeCheckoutFailed  = "CHECKOUT_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewEmptyCartError はカートが空の場合のエラーを生成する。
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCart,
		Message:  "カートが空です。",
		Category: "validation",
		Action:   "商品をカートに追加してから決済に進んでください。",
	}
}

// NewInvalidCartItemError は不正なカート項目エラーを生成する。
func NewInvalidCartItemError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCartItem,
		Message:  fmt.Sprintf("不正なカート項目です: %s", reason),
		Category: "validation",
		Action:   "カートの内容を確認してから再度お試しください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: "checkout",
		Action:   "カートを最新の状態に更新してから再度お試しください。",
	}
}

// NewCheckoutFailedError は決済セッション作成失敗エラーを生成する。
// 内部の失敗原因はメッセージに保持し、診断に利用する。
func NewCheckoutFailedError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeCheckoutFailed,
		Message:  fmt.Sprintf("決済セッションの作成に失敗しました: %v", cause),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
