package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/marketpay/internal/model"
)

// PostgresOrderRepo はPostgreSQLを使用した注文リポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

// FindByStripeSessionID は決済セッションIDで注文を検索する。見つからない場合はnilを返す。
func (r *PostgresOrderRepo) FindByStripeSessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	order := &model.Order{}
	var itemsJSON []byte
	var customerEmail sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, vendor_id, items, subtotal_cents, platform_fee_cents,
		        total_cents, status, payment_intent_id, stripe_session_id,
		        customer_email, created_at, updated_at
		 FROM orders WHERE stripe_session_id = $1`,
		sessionID,
	).Scan(
		&order.ID, &order.UserID, &order.VendorID, &itemsJSON,
		&order.SubtotalCents, &order.PlatformFeeCents, &order.TotalCents,
		&order.Status, &order.PaymentIntentID, &order.StripeSessionID,
		&customerEmail, &order.CreatedAt, &order.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("注文の取得に失敗しました: %w", err)
	}

	order.CustomerEmail = nullStringValue(customerEmail)

	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("注文明細の解析に失敗しました: %w", err)
		}
	}

	return order, nil
}
