package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/marketpay/internal/payment"
	"github.com/hitoshi/marketpay/internal/settlement"
)

// webhookMaxBodyBytes はWebhookペイロードの最大サイズ。
// 決済完了イベントは数KB程度のため、64KBで十分な余裕がある。
const webhookMaxBodyBytes = 64 * 1024

// stripeSignatureHeader は署名検証に使うリクエストヘッダー名。
const stripeSignatureHeader = "Stripe-Signature"

// EventVerifier はWebhookイベントの署名検証インターフェース。
// payment.Providerの部分集合として定義する。
type EventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (*payment.Event, error)
}

// SettlementHandler は検証済み決済完了イベントの処理インターフェース。
type SettlementHandler interface {
	HandleCompleted(ctx context.Context, sess *payment.CompletedSession) settlement.Outcome
}

// WebhookMetrics はWebhookハンドラーが記録するメトリクスのインターフェース。
type WebhookMetrics interface {
	RecordWebhookSignatureFailure()
}

// WebhookHandler は決済プロバイダからのWebhookを受け付けるHTTPハンドラー。
// 署名検証を通過しないリクエストは状態を一切変更しない。
type WebhookHandler struct {
	verifier EventVerifier
	settler  SettlementHandler
	metrics  WebhookMetrics
	logger   *slog.Logger
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(verifier EventVerifier, settler SettlementHandler, metrics WebhookMetrics, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		settler:  settler,
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleWebhook は決済プロバイダからのWebhookを処理する。
// POST /stripeWebhook
//
// 署名検証はJSON解析より前の生のボディに対して行う。
// 検証済みのイベントは処理結果によらず200でackする。
// 処理失敗は再処理ジャーナルとメトリクスに記録され、再送やリトライで回復する。
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get(stripeSignatureHeader)
	if signature == "" {
		h.metrics.RecordWebhookSignatureFailure()
		http.Error(w, "missing signature header", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookMaxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("Webhookボディの読み取りに失敗しました",
			slog.String("error", err.Error()))
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	event, err := h.verifier.VerifyEvent(payload, signature)
	if err != nil {
		h.metrics.RecordWebhookSignatureFailure()
		h.logger.Warn("Webhook署名検証に失敗しました",
			slog.String("error", err.Error()))
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}

	// 決済完了以外のイベント種別は検証のみでackする
	if event.Type == payment.EventCheckoutCompleted && event.Session != nil {
		outcome := h.settler.HandleCompleted(r.Context(), event.Session)
		h.logger.Info("Webhookイベントを処理しました",
			slog.String("event_type", event.Type),
			slog.String("stripe_session_id", event.Session.ID),
			slog.String("outcome", string(outcome)))
	} else {
		h.logger.Info("処理対象外のWebhookイベントをackしました",
			slog.String("event_type", event.Type))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
