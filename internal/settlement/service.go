// Package settlement は決済完了イベントを注文の確定へ変換する。
package settlement

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/marketpay/internal/model"
	"github.com/hitoshi/marketpay/internal/payment"
	"github.com/hitoshi/marketpay/internal/repository"
	"github.com/hitoshi/marketpay/internal/security"
)

// Outcome は決済確定処理の業務上の結果。
// HTTPの応答（常に200でack）とは独立に、ログとメトリクスで観測する。
type Outcome string

const (
	// OutcomeSettled は注文が新規に作成されたことを示す。
	OutcomeSettled Outcome = "settled"
	// OutcomeReplayed は同一セッションの再送で、書き込みが行われなかったことを示す。
	OutcomeReplayed Outcome = "replayed"
	// OutcomeIgnored は必須情報を欠くイベントで、処理対象外としたことを示す。
	OutcomeIgnored Outcome = "ignored"
	// OutcomeFailed は処理が失敗し、再処理ジャーナルに記録されたことを示す。
	OutcomeFailed Outcome = "failed"
)

// Metrics は決済確定処理の観測に必要なメトリクス記録のインターフェース。
type Metrics interface {
	RecordSettlement(outcome string)
	ObserveSettlementDuration(seconds float64)
}

// Service は決済確定のサービス層。
// Webhookハンドラーと再処理ワーカーの両方から同じ経路で呼ばれる。
type Service struct {
	settlementRepo repository.SettlementRepository
	journalRepo    repository.SettlementJournalRepository
	sanitizer      security.DisplaySanitizerService
	metrics        Metrics
	logger         *slog.Logger

	// now はテスト時に固定時刻を注入するためのフック
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	settlementRepo repository.SettlementRepository,
	journalRepo repository.SettlementJournalRepository,
	sanitizer security.DisplaySanitizerService,
	metrics Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		settlementRepo: settlementRepo,
		journalRepo:    journalRepo,
		sanitizer:      sanitizer,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// HandleCompleted は署名検証済みの決済完了イベントを処理する。
// 失敗時はイベントを再処理ジャーナルに記録し、ワーカーによる再試行に委ねる。
// 戻り値はHTTP応答に影響しない。検証済みイベントは結果によらずackされる。
func (s *Service) HandleCompleted(ctx context.Context, sess *payment.CompletedSession) Outcome {
	outcome, err := s.Process(ctx, sess)
	if outcome != OutcomeFailed {
		return outcome
	}

	// 失敗したイベントはジャーナルに保存し、再処理ワーカーが同じProcess経路で
	// 再試行する。Settleの冪等性により重複処理は安全。
	payload, marshalErr := json.Marshal(sess)
	if marshalErr != nil {
		s.logger.Error("ジャーナル用ペイロードのシリアライズに失敗しました",
			slog.String("stripe_session_id", sess.ID),
			slog.String("error", marshalErr.Error()))
		return outcome
	}

	entry := &model.SettlementJournalEntry{
		ID:              uuid.NewString(),
		StripeSessionID: sess.ID,
		Payload:         payload,
		LastError:       err.Error(),
	}
	if enqueueErr := s.journalRepo.Enqueue(ctx, entry); enqueueErr != nil {
		s.logger.Error("再処理ジャーナルへの記録に失敗しました",
			slog.String("stripe_session_id", sess.ID),
			slog.String("error", enqueueErr.Error()))
		return outcome
	}

	s.logger.Warn("決済確定に失敗したため再処理ジャーナルに記録しました",
		slog.String("stripe_session_id", sess.ID),
		slog.String("journal_id", entry.ID),
		slog.String("error", err.Error()))
	return outcome
}

// Process は決済完了イベントから注文を確定する。
// 注文作成・出店者集計の加算・カート削除は単一トランザクションで行われ、
// 同一セッションの再処理では何も書き込まれない。
// エラーはOutcomeFailedの場合のみ非nil。
func (s *Service) Process(ctx context.Context, sess *payment.CompletedSession) (Outcome, error) {
	start := s.now()
	defer func() {
		s.metrics.ObserveSettlementDuration(time.Since(start).Seconds())
	}()

	// 1. 必須情報の確認。欠けているイベントは本サービスの作成した
	// セッションではないため処理対象外とする。
	userID := sess.ClientReferenceID
	if userID == "" {
		userID = sess.Metadata[payment.MetadataKeyUserID]
	}
	vendorID := sess.Metadata[payment.MetadataKeyVendorID]
	if userID == "" || vendorID == "" {
		s.logger.Warn("必須情報を欠く決済完了イベントを無視します",
			slog.String("stripe_session_id", sess.ID),
			slog.Bool("has_user_id", userID != ""),
			slog.Bool("has_vendor_id", vendorID != ""))
		s.metrics.RecordSettlement(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}

	// 2. メタデータからセッション作成時に確定した金額を復元する
	subtotalCents := s.parseCents(sess, payment.MetadataKeySubtotal)
	platformFeeCents := s.parseCents(sess, payment.MetadataKeyPlatformFee)

	// 3. 表示用のカート項目を復元する。金額計算には一切使わない。
	items := s.buildOrderItems(sess)

	now := s.now()
	order := &model.Order{
		ID:               uuid.NewString(),
		UserID:           userID,
		VendorID:         vendorID,
		Items:            items,
		SubtotalCents:    subtotalCents,
		PlatformFeeCents: platformFeeCents,
		TotalCents:       sess.AmountTotalCents,
		Status:           model.OrderStatusPaid,
		PaymentIntentID:  sess.PaymentIntentID,
		StripeSessionID:  sess.ID,
		CustomerEmail:    sess.CustomerEmail,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// 4. 注文作成・集計加算・カート削除のアトミックな実行
	created, err := s.settlementRepo.Settle(ctx, order)
	if err != nil {
		s.logger.Error("決済確定トランザクションに失敗しました",
			slog.String("stripe_session_id", sess.ID),
			slog.String("user_id", userID),
			slog.String("vendor_id", vendorID),
			slog.String("error", err.Error()))
		s.metrics.RecordSettlement(string(OutcomeFailed))
		return OutcomeFailed, err
	}

	if !created {
		s.logger.Info("再送された決済完了イベントをスキップしました",
			slog.String("stripe_session_id", sess.ID))
		s.metrics.RecordSettlement(string(OutcomeReplayed))
		return OutcomeReplayed, nil
	}

	s.logger.Info("注文を確定しました",
		slog.String("order_id", order.ID),
		slog.String("stripe_session_id", sess.ID),
		slog.String("user_id", userID),
		slog.String("vendor_id", vendorID),
		slog.Int64("subtotal_cents", subtotalCents),
		slog.Int64("platform_fee_cents", platformFeeCents),
		slog.Int64("total_cents", order.TotalCents))
	s.metrics.RecordSettlement(string(OutcomeSettled))
	return OutcomeSettled, nil
}

// parseCents はメタデータから金額を復元する。
// 欠落や不正値は0として扱い、警告ログを残す。表示と集計の精度が落ちるだけで、
// 実際の請求額はプロバイダが保持するamount_totalに基づく。
func (s *Service) parseCents(sess *payment.CompletedSession, key string) int64 {
	raw, ok := sess.Metadata[key]
	if !ok || raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		s.logger.Warn("メタデータの金額が不正です",
			slog.String("stripe_session_id", sess.ID),
			slog.String("key", key),
			slog.String("value", raw))
		return 0
	}
	return v
}

// buildOrderItems はメタデータのカート項目JSONから注文明細を復元する。
// 表示名はクライアントを往復した値のため、保存前にサニタイズする。
func (s *Service) buildOrderItems(sess *payment.CompletedSession) []model.OrderItem {
	raw, ok := sess.Metadata[payment.MetadataKeyCartItems]
	if !ok || raw == "" {
		return nil
	}

	var cartItems []model.CartItemRequest
	if err := json.Unmarshal([]byte(raw), &cartItems); err != nil {
		s.logger.Warn("カート項目メタデータの解析に失敗しました",
			slog.String("stripe_session_id", sess.ID),
			slog.String("error", err.Error()))
		return nil
	}

	items := make([]model.OrderItem, 0, len(cartItems))
	for _, item := range cartItems {
		items = append(items, model.OrderItem{
			ProductID:  item.ResolveProductID(),
			Name:       s.sanitizer.Sanitize(item.Name),
			PriceCents: item.PriceCents,
			Quantity:   item.Quantity,
			Image:      item.Image,
		})
	}
	return items
}
