package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/marketpay/internal/model"
)

// 各Postgresリポジトリが対応するインターフェースを満たすことを検証

func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ ConfigRepository = (*PostgresConfigRepo)(nil)
	var _ VendorRepository = (*PostgresVendorRepo)(nil)
	var _ ProductRepository = (*PostgresProductRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
	var _ OrderRepository = (*PostgresOrderRepo)(nil)
	var _ SettlementRepository = (*PostgresSettlementRepo)(nil)
	var _ SettlementJournalRepository = (*PostgresJournalRepo)(nil)
}

func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresConfigRepo(nil) == nil {
		t.Error("expected non-nil config repo")
	}
	if NewPostgresVendorRepo(nil) == nil {
		t.Error("expected non-nil vendor repo")
	}
	if NewPostgresProductRepo(nil) == nil {
		t.Error("expected non-nil product repo")
	}
	if NewPostgresSettlementRepo(nil) == nil {
		t.Error("expected non-nil settlement repo")
	}
	if NewPostgresJournalRepo(nil) == nil {
		t.Error("expected non-nil journal repo")
	}
}

// Vendorモデルのフィールドが正しく構築されることを検証
func TestVendorModel_Fields(t *testing.T) {
	now := time.Now()
	vendor := &model.Vendor{
		ID:              "vendor-1",
		FoundingMember:  true,
		CreatedAt:       &now,
		TotalSalesCents: 50000,
		OrderCount:      12,
	}

	if vendor.ID != "vendor-1" {
		t.Errorf("vendor.ID = %q, want %q", vendor.ID, "vendor-1")
	}
	if !vendor.FoundingMember {
		t.Error("vendor.FoundingMember should be true")
	}
	if vendor.TotalSalesCents != 50000 {
		t.Errorf("vendor.TotalSalesCents = %d, want 50000", vendor.TotalSalesCents)
	}
}

// VendorのCreatedAtがnil許容であることを検証
func TestVendorModel_NilCreatedAt(t *testing.T) {
	vendor := &model.Vendor{ID: "vendor-2"}
	if vendor.CreatedAt != nil {
		t.Error("created_at should be nil by default")
	}
}

// Orderモデルのフィールドが正しく構築されることを検証
func TestOrderModel_Fields(t *testing.T) {
	order := &model.Order{
		ID:               "a2a3f2f1-9a66-4c3a-bd41-000000000001",
		UserID:           "user-1",
		VendorID:         "vendor-1",
		SubtotalCents:    2000,
		PlatformFeeCents: 100,
		TotalCents:       2100,
		Status:           model.OrderStatusPaid,
		StripeSessionID:  "cs_test_1",
		Items: []model.OrderItem{
			{ProductID: "p1", Name: "手作り石鹸", PriceCents: 1000, Quantity: 2},
		},
	}

	if order.Status != model.OrderStatusPaid {
		t.Errorf("order.Status = %q, want %q", order.Status, model.OrderStatusPaid)
	}
	if order.SubtotalCents+order.PlatformFeeCents != order.TotalCents {
		t.Errorf("total = %d, want subtotal + fee = %d",
			order.TotalCents, order.SubtotalCents+order.PlatformFeeCents)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Errorf("unexpected order items: %+v", order.Items)
	}
}
