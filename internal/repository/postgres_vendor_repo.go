package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/marketpay/internal/model"
)

// PostgresVendorRepo はPostgreSQLを使用した出店者リポジトリ。
type PostgresVendorRepo struct {
	db *sql.DB
}

// NewPostgresVendorRepo はPostgresVendorRepoを生成する。
func NewPostgresVendorRepo(db *sql.DB) *PostgresVendorRepo {
	return &PostgresVendorRepo{db: db}
}

// FindByID は指定IDの出店者を取得する。見つからない場合はnilを返す。
func (r *PostgresVendorRepo) FindByID(ctx context.Context, id string) (*model.Vendor, error) {
	vendor := &model.Vendor{}
	var createdAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, founding_member, created_at, total_sales_cents, order_count
		 FROM vendors WHERE id = $1`,
		id,
	).Scan(
		&vendor.ID, &vendor.FoundingMember, &createdAt,
		&vendor.TotalSalesCents, &vendor.OrderCount,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("出店者の取得に失敗しました: %w", err)
	}

	if createdAt.Valid {
		t := createdAt.Time
		vendor.CreatedAt = &t
	}

	return vendor, nil
}
