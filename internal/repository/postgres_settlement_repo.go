package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/marketpay/internal/model"
)

// PostgresSettlementRepo はPostgreSQLを使用した決済確定リポジトリ。
// 注文作成・出店者集計の加算・カート削除を単一トランザクションで実行する。
type PostgresSettlementRepo struct {
	db *sql.DB
}

// NewPostgresSettlementRepo はPostgresSettlementRepoを生成する。
func NewPostgresSettlementRepo(db *sql.DB) *PostgresSettlementRepo {
	return &PostgresSettlementRepo{db: db}
}

// Settle は決済確定の3つの書き込みをアトミックに実行する。
//
//  1. 注文のINSERT。stripe_session_idの一意制約とON CONFLICT DO NOTHINGにより、
//     同一セッションの再処理では挿入行数が0になる。
//  2. 出店者集計の加算。小計を total_sales_cents に、1を order_count に加算する。
//     出店者行が存在しない場合はUPSERTで初期化する。
//  3. ユーザーのカート行の削除。
//
// 手順1で挿入行数が0（リプレイ検出）の場合、手順2・3は実行せずにcreated=falseを返す。
func (r *PostgresSettlementRepo) Settle(ctx context.Context, order *model.Order) (bool, error) {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return false, fmt.Errorf("注文明細のシリアライズに失敗しました: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 1. 注文の作成（リプレイはON CONFLICTで弾く）
	result, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, vendor_id, items, subtotal_cents,
		                     platform_fee_cents, total_cents, status, payment_intent_id,
		                     stripe_session_id, customer_email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		 ON CONFLICT (stripe_session_id) DO NOTHING`,
		order.ID, order.UserID, order.VendorID, itemsJSON,
		order.SubtotalCents, order.PlatformFeeCents, order.TotalCents,
		order.Status, order.PaymentIntentID, order.StripeSessionID,
		nullString(order.CustomerEmail),
	)
	if err != nil {
		return false, fmt.Errorf("注文の作成に失敗しました: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("注文挿入結果の取得に失敗しました: %w", err)
	}
	if inserted == 0 {
		// 同一セッションの注文が既に存在する。集計加算もカート削除も行わない。
		return false, nil
	}

	// 2. 出店者集計の加算
	_, err = tx.ExecContext(ctx,
		`INSERT INTO vendors (id, total_sales_cents, order_count)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (id) DO UPDATE SET
		     total_sales_cents = vendors.total_sales_cents + EXCLUDED.total_sales_cents,
		     order_count = vendors.order_count + 1`,
		order.VendorID, order.SubtotalCents,
	)
	if err != nil {
		return false, fmt.Errorf("出店者集計の更新に失敗しました: %w", err)
	}

	// 3. カートの削除
	_, err = tx.ExecContext(ctx,
		`DELETE FROM carts WHERE user_id = $1`,
		order.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("カートの削除に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return true, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
