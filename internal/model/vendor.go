package model

import "time"

// Vendor は出店者を表す。
// TotalSalesCentsとOrderCountは決済確定処理のみが単調増加させる。
// 本サービスが減算することはない。
type Vendor struct {
	ID              string
	FoundingMember  bool
	CreatedAt       *time.Time // 登録日時。nilの場合は創業メンバー免除の対象外として扱う
	TotalSalesCents int64
	OrderCount      int
}

// Product は商品を表す。価格の正となる唯一の情報源。
// クライアントから送信された価格・商品名は決済計算には一切使用しない。
type Product struct {
	ID          string
	VendorID    string
	Name        string
	Description string
	Images      []string
	PriceCents  int64
	Active      bool
}
