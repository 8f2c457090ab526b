package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/workflow"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("PHARMACY_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set PHARMACY_TEST_DATABASE_URL to run postgres integration tests")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func seedMedicine(t *testing.T, s *Store, stock int) domain.Medicine {
	t.Helper()
	ctx := context.Background()
	stamp := time.Now().UnixNano()
	created, err := s.CreateMedicine(ctx, domain.Medicine{
		Name:        fmt.Sprintf("Ibuprofen IT %d", stamp),
		Category:    "Pain Relief",
		PriceCents:  900,
		Stock:       stock,
		MinStock:    2,
		ExpiryDate:  time.Now().UTC().AddDate(1, 0, 0),
		BatchNumber: fmt.Sprintf("IT%d", stamp),
	})
	if err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, created.ID)
	})
	return *created
}

func TestRefundRestocksInventory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	med := seedMedicine(t, s, 10)
	key := fmt.Sprintf("idem-refund-it-%d", time.Now().UnixNano())

	sale, err := s.CreateSale(ctx, domain.Sale{
		IdempotencyKey: key,
		CustomerName:   "Walk-in Customer",
		Items: []domain.SaleItem{
			{MedicineID: med.ID, MedicineName: med.Name, Quantity: 3, UnitPriceCents: 900, TotalCents: 2700},
		},
		SubtotalCents: 2700,
		TotalCents:    2700,
		PaymentMethod: domain.PaymentCash,
		Status:        workflow.SaleCompleted,
		CreatedBy:     "it@pharmacy.com",
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, sale.ID)
	})

	got, err := s.GetMedicine(ctx, med.ID)
	if err != nil {
		t.Fatalf("get medicine: %v", err)
	}
	if got.Stock != 7 {
		t.Fatalf("expected stock 7 after sale, got %d", got.Stock)
	}

	replay, err := s.FindSaleByIdempotency(ctx, key)
	if err != nil {
		t.Fatalf("find by idempotency: %v", err)
	}
	if replay.ID != sale.ID || len(replay.Items) != 1 {
		t.Fatalf("unexpected replay %+v", replay)
	}

	refunded, err := s.TransitionSale(ctx, sale.ID, workflow.SaleCompleted, workflow.SaleRefunded, time.Now().UTC())
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != workflow.SaleRefunded {
		t.Fatalf("expected refunded status, got %s", refunded.Status)
	}

	got, err = s.GetMedicine(ctx, med.ID)
	if err != nil {
		t.Fatalf("get medicine after refund: %v", err)
	}
	if got.Stock != 10 {
		t.Fatalf("expected stock back to 10, got %d", got.Stock)
	}

	if _, err := s.TransitionSale(ctx, sale.ID, workflow.SaleCompleted, workflow.SaleRefunded, time.Now().UTC()); !errors.Is(err, store.ErrStaleStatus) {
		t.Fatalf("expected stale status on second refund, got %v", err)
	}
}

func TestCreateSaleIsAllOrNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	plenty := seedMedicine(t, s, 50)
	scarce := seedMedicine(t, s, 1)

	_, err := s.CreateSale(ctx, domain.Sale{
		CustomerName: "Walk-in Customer",
		Items: []domain.SaleItem{
			{MedicineID: plenty.ID, MedicineName: plenty.Name, Quantity: 5, UnitPriceCents: 900, TotalCents: 4500},
			{MedicineID: scarce.ID, MedicineName: scarce.Name, Quantity: 2, UnitPriceCents: 900, TotalCents: 1800},
		},
		SubtotalCents: 6300,
		TotalCents:    6300,
		PaymentMethod: domain.PaymentCard,
		Status:        workflow.SaleCompleted,
		CreatedBy:     "it@pharmacy.com",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	got, err := s.GetMedicine(ctx, plenty.ID)
	if err != nil {
		t.Fatalf("get medicine: %v", err)
	}
	if got.Stock != 50 {
		t.Fatalf("expected untouched stock 50, got %d", got.Stock)
	}
}

func TestReceivePurchaseAddsStock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	med := seedMedicine(t, s, 4)
	stamp := time.Now().UnixNano()

	purchase, err := s.CreatePurchase(ctx, domain.Purchase{
		PurchaseOrderID: fmt.Sprintf("PO-IT-%d", stamp),
		SupplierName:    "Integration Supplier",
		OrderDate:       time.Now().UTC(),
		Items: []domain.PurchaseItem{
			{MedicineID: med.ID, MedicineName: med.Name, Quantity: 20, UnitPriceCents: 500},
		},
		TotalAmountCents: 10000,
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM purchases WHERE id = $1`, purchase.ID)
	})

	updated, err := s.ReceivePurchase(ctx, purchase.ID, workflow.PurchasePending, workflow.PurchasePartial,
		[]store.StockReceipt{{Index: 0, Quantity: 8}}, time.Now().UTC())
	if err != nil {
		t.Fatalf("receive purchase: %v", err)
	}
	if updated.Items[0].ReceivedQty != 8 {
		t.Fatalf("expected received 8, got %d", updated.Items[0].ReceivedQty)
	}

	got, err := s.GetMedicine(ctx, med.ID)
	if err != nil {
		t.Fatalf("get medicine: %v", err)
	}
	if got.Stock != 12 {
		t.Fatalf("expected stock 12, got %d", got.Stock)
	}

	if _, err := s.ReceivePurchase(ctx, purchase.ID, workflow.PurchasePartial, workflow.PurchaseDelivered,
		[]store.StockReceipt{{Index: 0, Quantity: 13}}, time.Now().UTC()); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected over-receipt to be rejected, got %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	original, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	t.Cleanup(func() {
		_ = s.SaveSettings(ctx, original)
	})

	changed := original
	changed.TaxRatePercent = 5.5
	changed.Pharmacy.Name = "Integration Pharmacy"
	if err := s.SaveSettings(ctx, changed); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	got, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if got.TaxRatePercent != 5.5 || got.Pharmacy.Name != "Integration Pharmacy" {
		t.Fatalf("unexpected settings %+v", got)
	}
}

func TestDeleteMedicineRefusedWhileSaleIsOpen(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	med := seedMedicine(t, s, 5)

	sale, err := s.CreateSale(ctx, domain.Sale{
		CustomerName: "Walk-in Customer",
		Items: []domain.SaleItem{
			{MedicineID: med.ID, MedicineName: med.Name, Quantity: 1, UnitPriceCents: 900, TotalCents: 900},
		},
		SubtotalCents: 900,
		TotalCents:    900,
		PaymentMethod: domain.PaymentCash,
		Status:        workflow.SalePending,
		CreatedBy:     "it@pharmacy.com",
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, sale.ID)
	})

	if err := s.DeleteMedicine(ctx, med.ID); !errors.Is(err, store.ErrInUse) {
		t.Fatalf("expected in use, got %v", err)
	}
	if _, err := s.TransitionSale(ctx, sale.ID, workflow.SalePending, workflow.SaleCancelled, time.Now().UTC()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := s.DeleteMedicine(ctx, med.ID); err != nil {
		t.Fatalf("delete after cancel: %v", err)
	}
}
