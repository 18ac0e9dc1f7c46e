package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/marketpay/internal/model"
)

// PostgresConfigRepo はPostgreSQLを使用した手数料ポリシー設定リポジトリ。
type PostgresConfigRepo struct {
	db *sql.DB
}

// NewPostgresConfigRepo はPostgresConfigRepoを生成する。
func NewPostgresConfigRepo(db *sql.DB) *PostgresConfigRepo {
	return &PostgresConfigRepo{db: db}
}

// GetMonetizationConfig は設定行を取得する。行が存在しない場合はnilを返す。
func (r *PostgresConfigRepo) GetMonetizationConfig(ctx context.Context) (*model.MonetizationConfig, error) {
	cfg := &model.MonetizationConfig{}

	err := r.db.QueryRowContext(ctx,
		`SELECT founding_enabled, founding_max_vendors, founding_free_days,
		        free_sales_threshold_cents, fee_percent, fee_cap_cents, barter_fee_percent
		 FROM monetization_config WHERE id = 1`,
	).Scan(
		&cfg.FoundingEnabled, &cfg.FoundingMaxVendors, &cfg.FoundingFreeDays,
		&cfg.FreeSalesThresholdCents, &cfg.FeePercent, &cfg.FeeCapCents, &cfg.BarterFeePercent,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("手数料ポリシー設定の取得に失敗しました: %w", err)
	}

	return cfg, nil
}
