package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/marketpay/internal/model"
)

// PostgresJournalRepo はPostgreSQLを使用した決済再処理ジャーナルリポジトリ。
type PostgresJournalRepo struct {
	db *sql.DB
}

// NewPostgresJournalRepo はPostgresJournalRepoを生成する。
func NewPostgresJournalRepo(db *sql.DB) *PostgresJournalRepo {
	return &PostgresJournalRepo{db: db}
}

// Enqueue は失敗したイベントをジャーナルに記録する。
func (r *PostgresJournalRepo) Enqueue(ctx context.Context, entry *model.SettlementJournalEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settlement_journal (id, stripe_session_id, payload, last_error,
		                                 attempts, processed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, now(), now())`,
		entry.ID, entry.StripeSessionID, entry.Payload, entry.LastError, entry.Attempts,
	)
	if err != nil {
		return fmt.Errorf("ジャーナルへの記録に失敗しました: %w", err)
	}
	return nil
}

// ListUnprocessed は未処理かつ試行回数がmaxAttempts未満のエントリを古い順に取得する。
// 複数ワーカーが同一エントリを取得しても、確定処理自体が冪等なため二重確定は起きない。
func (r *PostgresJournalRepo) ListUnprocessed(ctx context.Context, maxAttempts, limit int) ([]*model.SettlementJournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, stripe_session_id, payload, last_error, attempts, processed,
		        created_at, updated_at
		 FROM settlement_journal
		 WHERE processed = FALSE AND attempts < $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		maxAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("未処理ジャーナルの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []*model.SettlementJournalEntry
	for rows.Next() {
		entry := &model.SettlementJournalEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.StripeSessionID, &entry.Payload, &entry.LastError,
			&entry.Attempts, &entry.Processed, &entry.CreatedAt, &entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ジャーナル行の読み取りに失敗しました: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ジャーナルの走査に失敗しました: %w", err)
	}

	return entries, nil
}

// MarkProcessed は指定エントリを処理済みにする。
func (r *PostgresJournalRepo) MarkProcessed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE settlement_journal SET processed = TRUE, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ジャーナルの処理済み更新に失敗しました: %w", err)
	}
	return nil
}

// RecordFailure は再処理失敗を記録し、試行回数を加算する。
func (r *PostgresJournalRepo) RecordFailure(ctx context.Context, id string, lastError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE settlement_journal
		 SET attempts = attempts + 1, last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
	if err != nil {
		return fmt.Errorf("ジャーナルの失敗記録に失敗しました: %w", err)
	}
	return nil
}
