package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/marketpay/internal/checkout"
	"github.com/hitoshi/marketpay/internal/middleware"
	"github.com/hitoshi/marketpay/internal/model"
)

type mockCheckoutService struct {
	createSessionFn func(ctx context.Context, userID string, req *checkout.Request) (*checkout.Result, error)
	lastUserID      string
	lastRequest     *checkout.Request
}

func (m *mockCheckoutService) CreateSession(ctx context.Context, userID string, req *checkout.Request) (*checkout.Result, error) {
	m.lastUserID = userID
	m.lastRequest = req
	if m.createSessionFn != nil {
		return m.createSessionFn(ctx, userID, req)
	}
	return &checkout.Result{SessionID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func authedRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", bytes.NewReader(b))
	ctx := middleware.ContextWithUserID(req.Context(), "user-1")
	return req.WithContext(ctx)
}

func TestCreateSession_Returns201WithSession(t *testing.T) {
	svc := &mockCheckoutService{}
	h := NewCheckoutHandler(svc)

	req := authedRequest(t, map[string]any{
		"cart_items": []map[string]any{
			{"product_id": "p1", "quantity": 2, "vendor_id": "vendor-1"},
		},
	})
	w := httptest.NewRecorder()

	h.CreateSession(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var body struct {
		SessionID string `json:"session_id"`
		URL       string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.SessionID != "cs_test_1" || body.URL == "" {
		t.Errorf("body = %+v", body)
	}

	if svc.lastUserID != "user-1" {
		t.Errorf("userID = %q, want user-1", svc.lastUserID)
	}
	if len(svc.lastRequest.CartItems) != 1 || svc.lastRequest.CartItems[0].ProductID != "p1" {
		t.Errorf("cart items = %+v", svc.lastRequest.CartItems)
	}
}

func TestCreateSession_Returns401WithoutUserID(t *testing.T) {
	svc := &mockCheckoutService{}
	h := NewCheckoutHandler(svc)

	// コンテキストにユーザーIDがないリクエスト
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	h.CreateSession(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if svc.lastRequest != nil {
		t.Error("service must not be called for unauthenticated requests")
	}
}

func TestCreateSession_Returns400ForMalformedJSON(t *testing.T) {
	svc := &mockCheckoutService{}
	h := NewCheckoutHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", bytes.NewReader([]byte(`{broken`)))
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.CreateSession(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var body apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if body.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidRequest)
	}
}

// サービス層のAPIErrorがHTTPステータスに正しく変換されることを検証
func TestCreateSession_MapsServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"空のカート", model.NewEmptyCartError(), http.StatusBadRequest, model.ErrCodeEmptyCart},
		{"不正なカート項目", model.NewInvalidCartItemError("quantity"), http.StatusBadRequest, model.ErrCodeInvalidCartItem},
		{"商品が存在しない", model.NewProductNotFoundError("p9"), http.StatusNotFound, model.ErrCodeProductNotFound},
		{"決済セッション作成失敗", model.NewCheckoutFailedError(errors.New("stripe down")), http.StatusInternalServerError, model.ErrCodeCheckoutFailed},
		{"APIError以外", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockCheckoutService{
				createSessionFn: func(ctx context.Context, userID string, req *checkout.Request) (*checkout.Result, error) {
					return nil, tc.err
				},
			}
			h := NewCheckoutHandler(svc)

			req := authedRequest(t, map[string]any{"cart_items": []map[string]any{}})
			w := httptest.NewRecorder()

			h.CreateSession(w, req)

			resp := w.Result()
			if resp.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}

			var body apiErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if body.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tc.wantCode)
			}
			if body.Message == "" || body.Action == "" {
				t.Errorf("error response must carry message and action: %+v", body)
			}
		})
	}
}
