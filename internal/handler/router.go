package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/marketpay/internal/metrics"
	"github.com/hitoshi/marketpay/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBを受け付ける。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 決済
	CheckoutService CheckoutServiceInterface
	OrderFinder     OrderFinder
	WebhookHandler  *WebhookHandler

	// メトリクス公開
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORSMiddleware → [SessionMiddleware → RateLimit → CSRF]
//
// Webhookルート（/stripeWebhook）はCookie認証もCSRFも適用しない。
// 認証は署名検証そのものが担う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	checkoutHandler := NewCheckoutHandler(deps.CheckoutService)
	orderHandler := NewOrderHandler(deps.OrderFinder)

	// --- 認証不要のルート ---

	// 決済プロバイダからのWebhook。署名検証がハンドラー内で行われる
	r.Post("/stripeWebhook", deps.WebhookHandler.HandleWebhook)

	// ヘルスチェック
	r.Get("/health", NewHealthHandler(deps.HealthChecker).ServeHTTP)

	// Prometheusスクレイプ
	if deps.MetricsGatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.MetricsGatherer).ServeHTTP)
	}

	// CSRFトークン取得
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// POST /api/checkout/session - 決済セッション作成（専用レート制限を追加）
		r.With(deps.RateLimiter.CheckoutMiddleware()).
			Post("/api/checkout/session", checkoutHandler.CreateSession)

		// GET /api/orders/by-session/{sessionID} - 決済完了ページの注文照会
		r.Get("/api/orders/by-session/{sessionID}", orderHandler.GetBySession)
	})

	return r
}
