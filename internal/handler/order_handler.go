package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/marketpay/internal/middleware"
	"github.com/hitoshi/marketpay/internal/model"
)

// OrderFinder は注文検索のインターフェース。
// repository.OrderRepositoryの部分集合として定義する。
type OrderFinder interface {
	FindByStripeSessionID(ctx context.Context, sessionID string) (*model.Order, error)
}

// OrderHandler は注文照会のHTTPハンドラー。
// 決済完了ページが注文の確定を確認するために使う。
type OrderHandler struct {
	orders OrderFinder
}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler(orders OrderFinder) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// orderItemResponse は注文明細のAPIレスポンス。
type orderItemResponse struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int64  `json:"quantity"`
	Image      string `json:"image,omitempty"`
}

// orderResponse は注文情報のAPIレスポンス。
type orderResponse struct {
	ID               string              `json:"id"`
	VendorID         string              `json:"vendor_id"`
	Items            []orderItemResponse `json:"items"`
	SubtotalCents    int64               `json:"subtotal_cents"`
	PlatformFeeCents int64               `json:"platform_fee_cents"`
	TotalCents       int64               `json:"total_cents"`
	Status           string              `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
}

// GetBySession は決済セッションIDで注文を照会する。
// GET /api/orders/by-session/{sessionID}
//
// Webhookの確定が未到達の場合は404を返す。決済完了ページは
// ポーリングで確定を待つ。他ユーザーの注文も404として扱う。
func (h *OrderHandler) GetBySession(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	order, err := h.orders.FindByStripeSessionID(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if order == nil || order.UserID != userID {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "ORDER_NOT_FOUND",
			Message:  "注文が見つかりません。",
			Category: "checkout",
			Action:   "決済の確定まで数秒かかることがあります。しばらく待ってから再度お試しください。",
		})
		return
	}

	items := make([]orderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemResponse{
			ProductID:  item.ProductID,
			Name:       item.Name,
			PriceCents: item.PriceCents,
			Quantity:   item.Quantity,
			Image:      item.Image,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orderResponse{
		ID:               order.ID,
		VendorID:         order.VendorID,
		Items:            items,
		SubtotalCents:    order.SubtotalCents,
		PlatformFeeCents: order.PlatformFeeCents,
		TotalCents:       order.TotalCents,
		Status:           string(order.Status),
		CreatedAt:        order.CreatedAt,
	})
}
