package model

// MonetizationConfig はプラットフォーム手数料のポリシー設定を保持する。
// DBの単一行として管理され、行が存在しない場合はDefaultMonetizationConfigが使われる。
// 変更は管理ツール（本サービスの対象外）のみが行い、本サービスからは読み取り専用。
type MonetizationConfig struct {
	FoundingEnabled         bool    // 創業メンバープログラムの有効フラグ
	FoundingMaxVendors      int     // 創業メンバーの最大ベンダー数（付与は管理ツール側で制御）
	FoundingFreeDays        int     // 創業メンバーの手数料免除期間（日数）
	FreeSalesThresholdCents int64   // 手数料免除が打ち切られる累計売上（セント）
	FeePercent              float64 // 標準手数料率（%）
	FeeCapCents             int64   // 1回の決済あたりの手数料上限（セント）
	BarterFeePercent        float64 // 物々交換取引の手数料率（%）
}

// DefaultMonetizationConfig は設定行が存在しない場合のデフォルト値を返す。
func DefaultMonetizationConfig() MonetizationConfig {
	return MonetizationConfig{
		FoundingEnabled:         true,
		FoundingMaxVendors:      100,
		FoundingFreeDays:        90,
		FreeSalesThresholdCents: 100000,
		FeePercent:              5,
		FeeCapCents:             10000,
		BarterFeePercent:        2,
	}
}
