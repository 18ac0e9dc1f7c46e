// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/marketpay/internal/model"
)

// ConfigRepository は手数料ポリシー設定の読み取りインターフェース。
// 設定は外部の管理ツールが更新するため、本サービスからは読み取り専用。
type ConfigRepository interface {
	// GetMonetizationConfig は設定行を取得する。行が存在しない場合はnilを返す。
	// 呼び出し側はnilの場合にmodel.DefaultMonetizationConfigを使用する。
	GetMonetizationConfig(ctx context.Context) (*model.MonetizationConfig, error)
}

// VendorRepository は出店者データの永続化インターフェース。
type VendorRepository interface {
	// FindByID は指定IDの出店者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Vendor, error)
}

// ProductRepository は商品データの読み取りインターフェース。
// 商品は価格の正となる唯一の情報源であり、本サービスからは読み取り専用。
type ProductRepository interface {
	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)
}

// SessionRepository は認証セッションの読み取りインターフェース。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// OrderRepository は注文データの読み取りインターフェース。
type OrderRepository interface {
	// FindByStripeSessionID は決済セッションIDで注文を検索する。見つからない場合はnilを返す。
	FindByStripeSessionID(ctx context.Context, sessionID string) (*model.Order, error)
}

// SettlementRepository は決済確定の永続化インターフェース。
// 注文作成・出店者集計の加算・カート削除を単一トランザクションで行う。
type SettlementRepository interface {
	// Settle は決済確定の3つの書き込みをアトミックに実行する。
	// ordersのstripe_session_id一意制約により、同一セッションの再処理では
	// 注文は作成されず、集計加算もカート削除も行われない。
	// 戻り値は新規に注文が作成されたかどうかを示す。
	Settle(ctx context.Context, order *model.Order) (created bool, err error)
}

// SettlementJournalRepository は失敗した決済確定の再処理ジャーナルの永続化インターフェース。
type SettlementJournalRepository interface {
	// Enqueue は失敗したイベントをジャーナルに記録する。
	Enqueue(ctx context.Context, entry *model.SettlementJournalEntry) error

	// ListUnprocessed は未処理かつ試行回数がmaxAttempts未満のエントリを古い順に取得する。
	ListUnprocessed(ctx context.Context, maxAttempts, limit int) ([]*model.SettlementJournalEntry, error)

	// MarkProcessed は指定エントリを処理済みにする。
	MarkProcessed(ctx context.Context, id string) error

	// RecordFailure は再処理失敗を記録し、試行回数を加算する。
	RecordFailure(ctx context.Context, id string, lastError string) error
}
