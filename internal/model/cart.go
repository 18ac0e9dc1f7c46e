package model

import "fmt"

// CartItemRequest はクライアントから送信されるカート項目。信頼できない入力。
// 信頼するのはProductID（またはIDフォールバック）、Quantity、VendorIDのみで、
// NameとPriceCentsは表示用にそのまま保持するが金額計算には使わない。
type CartItemRequest struct {
	ProductID  string `json:"product_id"`
	ID         string `json:"id"`
	Quantity   int64  `json:"quantity"`
	VendorID   string `json:"vendor_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price"`
	Image      string `json:"image,omitempty"`
}

// ResolveProductID はProductIDを返し、空の場合はIDにフォールバックする。
// どちらも空の場合は空文字列を返す。
func (c CartItemRequest) ResolveProductID() string {
	if c.ProductID != "" {
		return c.ProductID
	}
	return c.ID
}

// Validate はカート項目の必須フィールドを検証する。
// product_id/idのいずれか、quantity >= 1、vendor_idを必須とする。
func (c CartItemRequest) Validate() error {
	if c.ResolveProductID() == "" {
		return fmt.Errorf("product_idまたはidが必要です")
	}
	if c.Quantity < 1 {
		return fmt.Errorf("quantityは1以上を指定してください")
	}
	if c.VendorID == "" {
		return fmt.Errorf("vendor_idが必要です")
	}
	return nil
}

// CheckoutType は決済の種別を表す。
type CheckoutType string

const (
	// CheckoutTypePurchase は通常の商品購入。
	CheckoutTypePurchase CheckoutType = "purchase"
	// CheckoutTypeBarter は物々交換取引の差額決済。
	// 標準手数料率ではなくBarterFeePercentが適用される。
	CheckoutTypeBarter CheckoutType = "barter"
)
