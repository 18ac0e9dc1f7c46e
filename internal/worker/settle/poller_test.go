package settle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/marketpay/internal/model"
	"github.com/hitoshi/marketpay/internal/payment"
	"github.com/hitoshi/marketpay/internal/settlement"
)

type mockJournalRepo struct {
	listFn        func(ctx context.Context, maxAttempts, limit int) ([]*model.SettlementJournalEntry, error)
	markProcessed []string
	failures      map[string]string
}

func newMockJournalRepo() *mockJournalRepo {
	return &mockJournalRepo{failures: map[string]string{}}
}

func (m *mockJournalRepo) Enqueue(ctx context.Context, entry *model.SettlementJournalEntry) error {
	return nil
}

func (m *mockJournalRepo) ListUnprocessed(ctx context.Context, maxAttempts, limit int) ([]*model.SettlementJournalEntry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, maxAttempts, limit)
	}
	return nil, nil
}

func (m *mockJournalRepo) MarkProcessed(ctx context.Context, id string) error {
	m.markProcessed = append(m.markProcessed, id)
	return nil
}

func (m *mockJournalRepo) RecordFailure(ctx context.Context, id string, lastError string) error {
	m.failures[id] = lastError
	return nil
}

type mockProcessor struct {
	processFn func(ctx context.Context, sess *payment.CompletedSession) (settlement.Outcome, error)
	calls     []*payment.CompletedSession
}

func (m *mockProcessor) Process(ctx context.Context, sess *payment.CompletedSession) (settlement.Outcome, error) {
	m.calls = append(m.calls, sess)
	if m.processFn != nil {
		return m.processFn(ctx, sess)
	}
	return settlement.OutcomeSettled, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func journalEntry(t *testing.T, id, sessionID string) *model.SettlementJournalEntry {
	t.Helper()
	payload, err := json.Marshal(&payment.CompletedSession{
		ID:                sessionID,
		ClientReferenceID: "user-1",
		AmountTotalCents:  2100,
		Metadata:          map[string]string{payment.MetadataKeyVendorID: "vendor-1"},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &model.SettlementJournalEntry{
		ID:              id,
		StripeSessionID: sessionID,
		Payload:         payload,
		Attempts:        1,
	}
}

func TestRunOnce_ProcessesBatch(t *testing.T) {
	journal := newMockJournalRepo()
	journal.listFn = func(ctx context.Context, maxAttempts, limit int) ([]*model.SettlementJournalEntry, error) {
		if maxAttempts != 10 || limit != 50 {
			t.Errorf("list args: maxAttempts=%d limit=%d", maxAttempts, limit)
		}
		return []*model.SettlementJournalEntry{
			journalEntry(t, "j1", "cs_1"),
			journalEntry(t, "j2", "cs_2"),
		}, nil
	}
	processor := &mockProcessor{}
	poller := NewPoller(journal, processor, testLogger(), 10, 50)

	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if len(processor.calls) != 2 {
		t.Fatalf("processor calls = %d, want 2", len(processor.calls))
	}
	if processor.calls[0].ID != "cs_1" {
		t.Errorf("restored session ID = %q, want cs_1", processor.calls[0].ID)
	}
	if len(journal.markProcessed) != 2 {
		t.Errorf("markProcessed = %v, want both entries", journal.markProcessed)
	}
}

// 再送・対象外も最終状態として処理済みになることを検証
func TestRunOnce_TerminalOutcomesMarkedProcessed(t *testing.T) {
	outcomes := []settlement.Outcome{settlement.OutcomeReplayed, settlement.OutcomeIgnored}

	for _, outcome := range outcomes {
		t.Run(string(outcome), func(t *testing.T) {
			journal := newMockJournalRepo()
			journal.listFn = func(ctx context.Context, maxAttempts, limit int) ([]*model.SettlementJournalEntry, error) {
				return []*model.SettlementJournalEntry{journalEntry(t, "j1", "cs_1")}, nil
			}
			processor := &mockProcessor{
				processFn: func(ctx context.Context, sess *payment.CompletedSession) (settlement.Outcome, error) {
					return outcome, nil
				},
			}
			poller := NewPoller(journal, processor, testLogger(), 10, 50)

			if err := poller.RunOnce(context.Background()); err != nil {
				t.Fatalf("RunOnce returned error: %v", err)
			}
			if len(journal.markProcessed) != 1 {
				t.Errorf("markProcessed = %v, want [j1]", journal.markProcessed)
			}
		})
	}
}

// 失敗したエントリは試行回数が加算され、処理済みにならないことを検証
func TestRunOnce_FailureRecordsAttempt(t *testing.T) {
	journal := newMockJournalRepo()
	journal.listFn = func(ctx context.Context, maxAttempts, limit int) ([]*model.SettlementJournalEntry, error) {
		return []*model.SettlementJournalEntry{journalEntry(t, "j1", "cs_1")}, nil
	}
	processor := &mockProcessor{
		processFn: func(ctx context.Context, sess *payment.CompletedSession) (settlement.Outcome, error) {
			return settlement.OutcomeFailed, errors.New("pq: deadlock detected")
		},
	}
	poller := NewPoller(journal, processor, testLogger(), 10, 50)

	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if len(journal.markProcessed) != 0 {
		t.Errorf("markProcessed = %v, want none", journal.markProcessed)
	}
	if journal.failures["j1"] != "pq: deadlock detected" {
		t.Errorf("failures = %v", journal.failures)
	}
}

// 復元不能なペイロードは再処理せず失敗として記録されることを検証
func TestRunOnce_MalformedPayload(t *testing.T) {
	journal := newMockJournalRepo()
	journal.listFn = func(ctx context.Context, maxAttempts, limit int) ([]*model.SettlementJournalEntry, error) {
		return []*model.SettlementJournalEntry{{
			ID:              "j1",
			StripeSessionID: "cs_1",
			Payload:         []byte("{broken"),
		}}, nil
	}
	processor := &mockProcessor{}
	poller := NewPoller(journal, processor, testLogger(), 10, 50)

	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if len(processor.calls) != 0 {
		t.Errorf("processor calls = %d, want 0", len(processor.calls))
	}
	if _, ok := journal.failures["j1"]; !ok {
		t.Error("malformed payload must record a failure")
	}
}

func TestRunOnce_EmptyBatch(t *testing.T) {
	journal := newMockJournalRepo()
	processor := &mockProcessor{}
	poller := NewPoller(journal, processor, testLogger(), 10, 50)

	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if len(processor.calls) != 0 {
		t.Errorf("processor calls = %d, want 0", len(processor.calls))
	}
}

func TestNewPoller_Defaults(t *testing.T) {
	poller := NewPoller(newMockJournalRepo(), &mockProcessor{}, testLogger(), 0, -1)
	if poller.maxAttempts != 10 {
		t.Errorf("maxAttempts = %d, want 10", poller.maxAttempts)
	}
	if poller.batchSize != 50 {
		t.Errorf("batchSize = %d, want 50", poller.batchSize)
	}
}
