// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/marketpay/internal/checkout"
	"github.com/hitoshi/marketpay/internal/middleware"
	"github.com/hitoshi/marketpay/internal/model"
)

// CheckoutServiceInterface は決済ハンドラーが必要とするサービスインターフェース。
type CheckoutServiceInterface interface {
	// CreateSession はサーバー側の正価で決済セッションを作成する。
	CreateSession(ctx context.Context, userID string, req *checkout.Request) (*checkout.Result, error)
}

// CheckoutHandler は決済セッション作成のHTTPハンドラー。
type CheckoutHandler struct {
	service CheckoutServiceInterface
}

// NewCheckoutHandler はCheckoutHandlerを生成する。
func NewCheckoutHandler(service CheckoutServiceInterface) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// createSessionRequest は決済セッション作成リクエストのボディ。
type createSessionRequest struct {
	CartItems    []model.CartItemRequest `json:"cart_items"`
	SuccessURL   string                  `json:"success_url,omitempty"`
	CancelURL    string                  `json:"cancel_url,omitempty"`
	CheckoutType model.CheckoutType      `json:"checkout_type,omitempty"`
}

// createSessionResponse は決済セッション作成のAPIレスポンス。
type createSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// CreateSession は決済セッション作成を処理する。
// POST /api/checkout/session
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	result, err := h.service.CreateSession(r.Context(), userID, &checkout.Request{
		CartItems:    req.CartItems,
		SuccessURL:   req.SuccessURL,
		CancelURL:    req.CancelURL,
		CheckoutType: req.CheckoutType,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createSessionResponse{
		SessionID: result.SessionID,
		URL:       result.URL,
	})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		if statusCode >= 500 {
			slog.Error("checkout failed", slog.String("error", apiErr.Message))
		}
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidRequest, model.ErrCodeEmptyCart, model.ErrCodeInvalidCartItem:
		return http.StatusBadRequest
	case model.ErrCodeProductNotFound:
		return http.StatusNotFound
	case model.ErrCodeCheckoutFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
