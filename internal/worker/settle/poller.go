// Package settle は失敗した決済確定の再処理ワーカーを提供する。
// 再処理ジャーナルをポーリングし、冪等な確定処理を通じて再試行する。
package settle

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hitoshi/marketpay/internal/model"
	"github.com/hitoshi/marketpay/internal/payment"
	"github.com/hitoshi/marketpay/internal/repository"
	"github.com/hitoshi/marketpay/internal/settlement"
)

// SettlementProcessor は決済確定処理の実行インターフェース。
type SettlementProcessor interface {
	// Process は検証済みセッションから注文を確定する。
	Process(ctx context.Context, sess *payment.CompletedSession) (settlement.Outcome, error)
}

// Poller は再処理ジャーナルのポーリングと再試行を行う。
// ティッカー間隔でジャーナルから未処理エントリを取得し、
// Webhookと同じ確定経路で再処理する。確定処理が冪等なため、
// 再試行の重複は注文の重複を生まない。
type Poller struct {
	journalRepo repository.SettlementJournalRepository
	processor   SettlementProcessor
	logger      *slog.Logger

	maxAttempts int
	batchSize   int
}

// NewPoller はPollerの新しいインスタンスを生成する。
// maxAttemptsが0以下の場合は10、batchSizeが0以下の場合は50を使用する。
func NewPoller(
	journalRepo repository.SettlementJournalRepository,
	processor SettlementProcessor,
	logger *slog.Logger,
	maxAttempts, batchSize int,
) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Poller{
		journalRepo: journalRepo,
		processor:   processor,
		logger:      logger,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
	}
}

// Start は指定間隔のティッカーでポーラーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("決済再処理ポーラーを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_attempts", p.maxAttempts),
		slog.Int("batch_size", p.batchSize),
	)

	// 起動直後に1回実行
	if err := p.RunOnce(ctx); err != nil {
		p.logger.Error("再処理サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("決済再処理ポーラーを停止しました")
			return
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.logger.Error("再処理サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は未処理のジャーナルエントリを1バッチ取得し、順に再処理する。
// エントリ単位の失敗はサイクルを止めず、試行回数の加算のみ行う。
func (p *Poller) RunOnce(ctx context.Context) error {
	start := time.Now()

	// 未処理エントリを古い順に1バッチ取得
	entries, err := p.journalRepo.ListUnprocessed(ctx, p.maxAttempts, p.batchSize)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return nil
	}

	p.logger.Info("再処理サイクルを開始します",
		slog.Int("entry_count", len(entries)),
	)

	var processed, failed int
	for _, entry := range entries {
		if p.retryEntry(ctx, entry) {
			processed++
		} else {
			failed++
		}
	}

	duration := time.Since(start)
	p.logger.Info("再処理サイクルが完了しました",
		slog.Int("processed_count", processed),
		slog.Int("failed_count", failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// retryEntry は1件のジャーナルエントリを再処理する。
// 確定・再送・対象外はいずれも最終状態として処理済みにする。
func (p *Poller) retryEntry(ctx context.Context, entry *model.SettlementJournalEntry) bool {
	var sess payment.CompletedSession
	if err := json.Unmarshal(entry.Payload, &sess); err != nil {
		// 復元不能なペイロードは再試行しても成功しない。
		// 試行回数の上限到達で自然に対象から外れる。
		p.logger.Error("ジャーナルペイロードの復元に失敗しました",
			slog.String("journal_id", entry.ID),
			slog.String("stripe_session_id", entry.StripeSessionID),
			slog.String("error", err.Error()),
		)
		if recordErr := p.journalRepo.RecordFailure(ctx, entry.ID, err.Error()); recordErr != nil {
			p.logger.Error("試行回数の記録に失敗しました",
				slog.String("journal_id", entry.ID),
				slog.String("error", recordErr.Error()),
			)
		}
		return false
	}

	outcome, err := p.processor.Process(ctx, &sess)
	if outcome == settlement.OutcomeFailed {
		p.logger.Warn("決済確定の再試行に失敗しました",
			slog.String("journal_id", entry.ID),
			slog.String("stripe_session_id", entry.StripeSessionID),
			slog.Int("attempts", entry.Attempts+1),
			slog.String("error", err.Error()),
		)
		if recordErr := p.journalRepo.RecordFailure(ctx, entry.ID, err.Error()); recordErr != nil {
			p.logger.Error("試行回数の記録に失敗しました",
				slog.String("journal_id", entry.ID),
				slog.String("error", recordErr.Error()),
			)
		}
		return false
	}

	if markErr := p.journalRepo.MarkProcessed(ctx, entry.ID); markErr != nil {
		p.logger.Error("処理済みフラグの更新に失敗しました",
			slog.String("journal_id", entry.ID),
			slog.String("error", markErr.Error()),
		)
		return false
	}

	p.logger.Info("ジャーナルエントリを再処理しました",
		slog.String("journal_id", entry.ID),
		slog.String("stripe_session_id", entry.StripeSessionID),
		slog.String("outcome", string(outcome)),
	)
	return true
}
