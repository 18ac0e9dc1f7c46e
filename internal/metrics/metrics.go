// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordCheckoutSession()
	RecordFeeWaiver()
	RecordCheckoutFailure(code string)
	RecordWebhookSignatureFailure()
	RecordSettlement(outcome string)
	ObserveSettlementDuration(seconds float64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	checkoutSessions  prometheus.Counter
	feeWaivers        prometheus.Counter
	checkoutFailures  *prometheus.CounterVec
	signatureFailures prometheus.Counter
	settlements       *prometheus.CounterVec
	settlementLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checkoutSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketpay_checkout_sessions_total",
			Help: "作成された決済セッションの合計数",
		}),
		feeWaivers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketpay_fee_waivers_total",
			Help: "創業メンバー免除が適用された決済の合計数",
		}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketpay_checkout_failures_total",
			Help: "エラーコード別の決済セッション作成失敗数",
		}, []string{"code"}),
		signatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketpay_webhook_signature_failures_total",
			Help: "Webhook署名検証失敗の合計数",
		}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketpay_settlements_total",
			Help: "結果別の決済確定処理数",
		}, []string{"outcome"}),
		settlementLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketpay_settlement_duration_seconds",
			Help:    "決済確定処理の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.checkoutSessions,
		c.feeWaivers,
		c.checkoutFailures,
		c.signatureFailures,
		c.settlements,
		c.settlementLatency,
	)

	return c
}

// RecordCheckoutSession は決済セッション作成を記録する。
func (c *Collector) RecordCheckoutSession() {
	c.checkoutSessions.Inc()
}

// RecordFeeWaiver は手数料免除の適用を記録する。
func (c *Collector) RecordFeeWaiver() {
	c.feeWaivers.Inc()
}

// RecordCheckoutFailure はエラーコード別に決済セッション作成失敗を記録する。
func (c *Collector) RecordCheckoutFailure(code string) {
	c.checkoutFailures.WithLabelValues(code).Inc()
}

// RecordWebhookSignatureFailure はWebhook署名検証失敗を記録する。
func (c *Collector) RecordWebhookSignatureFailure() {
	c.signatureFailures.Inc()
}

// RecordSettlement は結果別に決済確定処理を記録する。
func (c *Collector) RecordSettlement(outcome string) {
	c.settlements.WithLabelValues(outcome).Inc()
}

// ObserveSettlementDuration は決済確定処理の所要時間を記録する。
func (c *Collector) ObserveSettlementDuration(seconds float64) {
	c.settlementLatency.Observe(seconds)
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
