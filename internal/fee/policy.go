// Package fee はプラットフォーム手数料のポリシー計算を提供する。
// 計算は現在の出店者統計と設定のみに依存する純粋関数であり、状態を持たない。
package fee

import (
	"math"
	"time"

	"github.com/hitoshi/marketpay/internal/model"
)

// Compute は小計に対するプラットフォーム手数料（セント）を返す。
//
// 出店者が創業メンバーかつプログラムが有効な場合、登録からの経過日数が
// FoundingFreeDays以内かつ累計売上がFreeSalesThresholdCents未満であれば手数料は0。
// 登録日時が不明（nil）の場合は免除の対象外として扱う。
// それ以外は標準手数料 min(round(subtotal * FeePercent/100), FeeCapCents)。
//
// 免除の判定は決済のたびに再評価される。閾値を超えた創業メンバーは
// 次の決済から標準手数料に戻る。状態遷移の記録は存在しない。
func Compute(subtotalCents int64, vendor *model.Vendor, cfg model.MonetizationConfig, now time.Time) int64 {
	if vendor != nil && vendor.FoundingMember && cfg.FoundingEnabled {
		if isWithinFoundingWaiver(vendor, cfg, now) {
			return 0
		}
	}
	return standardFee(subtotalCents, cfg.FeePercent, cfg.FeeCapCents)
}

// ComputeBarter は物々交換取引の差額決済に対する手数料（セント）を返す。
// BarterFeePercentを適用し、上限はFeeCapCentsを共有する。
// 創業メンバー免除は物々交換には適用しない。
func ComputeBarter(subtotalCents int64, cfg model.MonetizationConfig) int64 {
	return standardFee(subtotalCents, cfg.BarterFeePercent, cfg.FeeCapCents)
}

// isWithinFoundingWaiver は創業メンバー免除の条件を満たすかを判定する。
func isWithinFoundingWaiver(vendor *model.Vendor, cfg model.MonetizationConfig, now time.Time) bool {
	// 登録日時が不明な場合は経過日数を無限大とみなし、免除しない
	if vendor.CreatedAt == nil {
		return false
	}

	daysSinceCreation := now.Sub(*vendor.CreatedAt).Hours() / 24
	if daysSinceCreation > float64(cfg.FoundingFreeDays) {
		return false
	}

	return vendor.TotalSalesCents < cfg.FreeSalesThresholdCents
}

// standardFee は率と上限から手数料を計算する。負にはならない。
func standardFee(subtotalCents int64, percent float64, capCents int64) int64 {
	feeCents := int64(math.Round(float64(subtotalCents) * percent / 100))
	if feeCents > capCents {
		feeCents = capCents
	}
	if feeCents < 0 {
		feeCents = 0
	}
	return feeCents
}
