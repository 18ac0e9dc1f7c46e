package model

import "time"

// SettlementJournalEntry は決済確定処理に失敗したWebhookイベントの記録。
// 署名検証済みのセッションペイロードを保持し、ワーカーが再処理する。
// Processedがtrueになった後は保持期間経過後にクリーンアップジョブが削除する。
type SettlementJournalEntry struct {
	ID              string
	StripeSessionID string
	Payload         []byte // 検証済みセッションのJSON
	LastError       string
	Attempts        int
	Processed       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
