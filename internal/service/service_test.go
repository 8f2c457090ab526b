package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/store/memory"
	"pharmacare/backend/internal/workflow"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded(nil)
	return New(repo, nil, 0, nil), repo
}

func asRole(role session.Role) context.Context {
	sess := session.New("usr_test", string(role)+"@pharmacy.com", "Test "+string(role), role, time.Now().UTC(), time.Hour)
	return session.With(context.Background(), sess)
}

func simpleSale(key string, medicineID string, qty int) domain.SaleCreateRequest {
	return domain.SaleCreateRequest{
		IdempotencyKey: key,
		CustomerName:   "Walk-in",
		Items:          []domain.SaleItemRequest{{MedicineID: medicineID, Quantity: qty}},
	}
}

func stockOf(t *testing.T, repo *memory.Store, id string) int {
	t.Helper()
	m, err := repo.GetMedicine(context.Background(), id)
	if err != nil {
		t.Fatalf("get medicine %s: %v", id, err)
	}
	return m.Stock
}

type recordingCache struct {
	mu          sync.Mutex
	entries     map[string]*domain.Dashboard
	gets        int
	hits        int
	invalidated int
}

func (c *recordingCache) Get(_ context.Context, key string) (*domain.Dashboard, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	d, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return d, ok, nil
}

func (c *recordingCache) Set(_ context.Context, key string, value *domain.Dashboard, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string]*domain.Dashboard{}
	}
	c.entries[key] = value
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.invalidated++
	return nil
}

func TestRecordSaleComputesTotalsAndDeductsStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := asRole(session.RoleCashier)

	resp, err := svc.RecordSale(ctx, simpleSale("k-1", memory.SeedParacetamolID, 2))
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	sale := resp.Sale
	if sale.SubtotalCents != 2500 || sale.TaxCents != 200 || sale.TotalCents != 2700 {
		t.Fatalf("unexpected totals %+v", sale)
	}
	if sale.Status != workflow.SaleCompleted || sale.PaymentMethod != domain.PaymentCash {
		t.Fatalf("unexpected status/payment %s/%s", sale.Status, sale.PaymentMethod)
	}
	if sale.CreatedBy != "cashier@pharmacy.com" {
		t.Fatalf("expected actor email, got %s", sale.CreatedBy)
	}
	if len(sale.Items) != 1 || sale.Items[0].MedicineName != "Paracetamol 500mg" || sale.Items[0].UnitPriceCents != 1250 {
		t.Fatalf("items not priced from catalog: %+v", sale.Items)
	}
	if got := stockOf(t, repo, memory.SeedParacetamolID); got != 148 {
		t.Fatalf("expected stock 148, got %d", got)
	}
}

func TestRecordSaleIsIdempotent(t *testing.T) {
	svc, repo := newTestService()
	ctx := asRole(session.RoleCashier)

	first, err := svc.RecordSale(ctx, simpleSale("till-9", memory.SeedParacetamolID, 1))
	if err != nil {
		t.Fatalf("first sale: %v", err)
	}
	second, err := svc.RecordSale(ctx, simpleSale("till-9", memory.SeedParacetamolID, 1))
	if err != nil {
		t.Fatalf("replayed sale: %v", err)
	}
	if !second.Duplicate || second.Sale.ID != first.Sale.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Sale.ID, second)
	}
	if got := stockOf(t, repo, memory.SeedParacetamolID); got != 149 {
		t.Fatalf("expected a single deduction, stock %d", got)
	}
}

func TestRecordSaleFillsCustomerFromRecord(t *testing.T) {
	svc, _ := newTestService()
	req := simpleSale("k-cus", memory.SeedLisinoprilID, 1)
	req.CustomerName = ""
	req.CustomerID = memory.SeedCustomerJohnID

	resp, err := svc.RecordSale(asRole(session.RolePharmacist), req)
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if resp.Sale.CustomerName != "John Doe" || resp.Sale.CustomerPhone == "" {
		t.Fatalf("expected customer details, got %+v", resp.Sale)
	}
}

func TestRecordSaleValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := asRole(session.RoleCashier)

	noName := simpleSale("v-1", memory.SeedParacetamolID, 1)
	noName.CustomerName = " "
	if _, err := svc.RecordSale(ctx, noName); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("missing customer: expected invalid record, got %v", err)
	}

	badPayment := simpleSale("v-2", memory.SeedParacetamolID, 1)
	badPayment.PaymentMethod = "Bitcoin"
	if _, err := svc.RecordSale(ctx, badPayment); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("bad payment: expected invalid record, got %v", err)
	}

	if _, err := svc.RecordSale(ctx, simpleSale("v-3", "med_missing", 1)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown medicine: expected not found, got %v", err)
	}

	if _, err := svc.RecordSale(ctx, simpleSale("v-4", memory.SeedParacetamolID, 0)); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("zero quantity: expected invalid record, got %v", err)
	}
}

func TestRecordSaleInsufficientStockLeavesStockUntouched(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.RecordSale(asRole(session.RoleCashier), simpleSale("k-amox", memory.SeedAmoxicillinID, 6))
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := stockOf(t, repo, memory.SeedAmoxicillinID); got != 5 {
		t.Fatalf("expected stock 5, got %d", got)
	}
}

func TestDiscountRules(t *testing.T) {
	svc, _ := newTestService()
	cashier := asRole(session.RoleCashier)

	negative := simpleSale("d-1", memory.SeedParacetamolID, 4)
	negative.DiscountCents = -1
	if _, err := svc.RecordSale(cashier, negative); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("negative discount: expected invalid record, got %v", err)
	}

	tooLarge := simpleSale("d-2", memory.SeedParacetamolID, 4)
	tooLarge.DiscountCents = 5401
	if _, err := svc.RecordSale(asRole(session.RoleAdmin), tooLarge); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("discount above bill: expected invalid record, got %v", err)
	}

	withinLimit := simpleSale("d-3", memory.SeedParacetamolID, 4)
	withinLimit.DiscountCents = 500
	if _, err := svc.RecordSale(cashier, withinLimit); err != nil {
		t.Fatalf("discount within limit: %v", err)
	}

	overLimit := simpleSale("d-4", memory.SeedParacetamolID, 4)
	overLimit.DiscountCents = 1000
	if _, err := svc.RecordSale(cashier, overLimit); !errors.Is(err, ErrApprovalRequired) {
		t.Fatalf("cashier over limit: expected approval required, got %v", err)
	}

	resp, err := svc.RecordSale(WithManagerApproval(cashier), overLimit)
	if err != nil {
		t.Fatalf("approved discount: %v", err)
	}
	if resp.Sale.TotalCents != 4400 {
		t.Fatalf("expected total 4400, got %d", resp.Sale.TotalCents)
	}

	adminSale := simpleSale("d-5", memory.SeedParacetamolID, 4)
	adminSale.DiscountCents = 1000
	if _, err := svc.RecordSale(asRole(session.RoleAdmin), adminSale); err != nil {
		t.Fatalf("admin discount: %v", err)
	}
}

func TestQuoteSaleDoesNotTouchStock(t *testing.T) {
	svc, repo := newTestService()

	quote, err := svc.QuoteSale(asRole(session.RoleCashier), domain.SaleQuoteRequest{
		Items: []domain.SaleItemRequest{{MedicineID: memory.SeedLisinoprilID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Totals.SubtotalCents != 3750 || quote.Totals.TaxCents != 300 || quote.Totals.TotalCents != 4050 {
		t.Fatalf("unexpected quote %+v", quote.Totals)
	}
	if got := stockOf(t, repo, memory.SeedLisinoprilID); got != 80 {
		t.Fatalf("quote changed stock to %d", got)
	}
}

func TestRefundRestocksAndIsFinal(t *testing.T) {
	svc, repo := newTestService()
	ctx := asRole(session.RoleAdmin)

	resp, err := svc.RecordSale(ctx, simpleSale("r-1", memory.SeedParacetamolID, 3))
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if _, err := svc.RefundSale(ctx, resp.Sale.ID, " "); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("refund without reason: expected invalid record, got %v", err)
	}

	refunded, err := svc.RefundSale(ctx, resp.Sale.ID, "damaged box")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != workflow.SaleRefunded {
		t.Fatalf("expected refunded, got %s", refunded.Status)
	}
	if got := stockOf(t, repo, memory.SeedParacetamolID); got != 150 {
		t.Fatalf("expected restock to 150, got %d", got)
	}

	if _, err := svc.RefundSale(ctx, resp.Sale.ID, "again"); !errors.Is(err, workflow.ErrIllegalTransition) {
		t.Fatalf("second refund: expected illegal transition, got %v", err)
	}
}

func TestHeldSaleCompletesOrCancels(t *testing.T) {
	svc, repo := newTestService()
	ctx := asRole(session.RoleCashier)

	held := simpleSale("h-1", memory.SeedLisinoprilID, 2)
	held.Hold = true
	resp, err := svc.RecordSale(ctx, held)
	if err != nil {
		t.Fatalf("hold sale: %v", err)
	}
	if resp.Sale.Status != workflow.SalePending {
		t.Fatalf("expected pending, got %s", resp.Sale.Status)
	}

	completed, err := svc.CompleteSale(ctx, resp.Sale.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != workflow.SaleCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if _, err := svc.CancelSale(ctx, resp.Sale.ID); !errors.Is(err, workflow.ErrIllegalTransition) {
		t.Fatalf("cancel completed sale: expected illegal transition, got %v", err)
	}

	other := simpleSale("h-2", memory.SeedLisinoprilID, 5)
	other.Hold = true
	resp, err = svc.RecordSale(ctx, other)
	if err != nil {
		t.Fatalf("hold sale: %v", err)
	}
	if _, err := svc.CancelSale(ctx, resp.Sale.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := stockOf(t, repo, memory.SeedLisinoprilID); got != 78 {
		t.Fatalf("expected cancelled stock returned (78), got %d", got)
	}
}

func TestPrescriptionWorkflow(t *testing.T) {
	svc, _ := newTestService()
	ctx := asRole(session.RolePharmacist)

	if _, err := svc.UpdatePrescriptionStatus(ctx, memory.SeedPrescriptionFilledID, workflow.PrescriptionPending); !errors.Is(err, workflow.ErrIllegalTransition) {
		t.Fatalf("filled -> pending: expected illegal transition, got %v", err)
	}
	if _, err := svc.UpdatePrescriptionStatus(ctx, memory.SeedPrescriptionPendingID, "Lost"); !errors.Is(err, workflow.ErrUnknownStatus) {
		t.Fatalf("unknown status: expected unknown status, got %v", err)
	}

	updated, err := svc.UpdatePrescriptionStatus(ctx, memory.SeedPrescriptionPartialID, workflow.PrescriptionFilled)
	if err != nil {
		t.Fatalf("partial -> filled: %v", err)
	}
	if updated.Status != workflow.PrescriptionFilled {
		t.Fatalf("expected filled, got %s", updated.Status)
	}
}

func TestCreatePrescriptionValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := asRole(session.RolePharmacist)

	if _, err := svc.CreatePrescription(ctx, domain.PrescriptionCreateRequest{PatientName: "Ann"}); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected invalid record, got %v", err)
	}

	created, err := svc.CreatePrescription(ctx, domain.PrescriptionCreateRequest{
		PrescriptionNumber: "RX009999",
		PatientName:        "Ann Lee",
		DoctorName:         "Dr. Grey",
		Medications:        []domain.Medication{{Name: "Amoxicillin 250mg", Dosage: "250mg", Frequency: "3x daily", Duration: "7 days", Quantity: 21}},
	})
	if err != nil {
		t.Fatalf("create prescription: %v", err)
	}
	if created.Status != workflow.PrescriptionPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	if _, err := svc.CreatePrescription(asRole(session.RoleCashier), domain.PrescriptionCreateRequest{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cashier: expected forbidden, got %v", err)
	}
}

func TestPurchaseDeliveryReceivesStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := asRole(session.RolePharmacist)

	partial, err := svc.UpdatePurchaseStatus(ctx, memory.SeedPurchasePendingID, domain.PurchaseStatusRequest{
		Status:   workflow.PurchasePartial,
		Received: []domain.ReceivedLine{{Index: 0, Quantity: 50}},
	})
	if err != nil {
		t.Fatalf("partial delivery: %v", err)
	}
	if partial.Items[0].ReceivedQty != 50 {
		t.Fatalf("expected 50 received, got %d", partial.Items[0].ReceivedQty)
	}
	if got := stockOf(t, repo, memory.SeedAmoxicillinID); got != 55 {
		t.Fatalf("expected stock 55 after partial, got %d", got)
	}

	second, err := svc.UpdatePurchaseStatus(ctx, memory.SeedPurchasePendingID, domain.PurchaseStatusRequest{
		Status:   workflow.PurchasePartial,
		Received: []domain.ReceivedLine{{Index: 0, Quantity: 30}},
	})
	if err != nil {
		t.Fatalf("second partial delivery: %v", err)
	}
	if second.Status != workflow.PurchasePartial || second.Items[0].ReceivedQty != 80 {
		t.Fatalf("expected 80 received and still partial, got %s %d", second.Status, second.Items[0].ReceivedQty)
	}
	if got := stockOf(t, repo, memory.SeedAmoxicillinID); got != 85 {
		t.Fatalf("expected stock 85 after second partial, got %d", got)
	}

	delivered, err := svc.UpdatePurchaseStatus(ctx, memory.SeedPurchasePendingID, domain.PurchaseStatusRequest{Status: workflow.PurchaseDelivered})
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}
	if delivered.Status != workflow.PurchaseDelivered {
		t.Fatalf("expected delivered, got %s", delivered.Status)
	}
	if got := stockOf(t, repo, memory.SeedAmoxicillinID); got != 205 {
		t.Fatalf("expected stock 205 after delivery, got %d", got)
	}

	if _, err := svc.UpdatePurchaseStatus(ctx, memory.SeedPurchasePendingID, domain.PurchaseStatusRequest{Status: workflow.PurchaseCancelled}); !errors.Is(err, workflow.ErrIllegalTransition) {
		t.Fatalf("cancel delivered: expected illegal transition, got %v", err)
	}
}

func TestPartialDeliveryNeedsLines(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.UpdatePurchaseStatus(asRole(session.RoleAdmin), memory.SeedPurchasePendingID, domain.PurchaseStatusRequest{Status: workflow.PurchasePartial})
	if !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected invalid record, got %v", err)
	}
}

func TestRoleChecks(t *testing.T) {
	svc, _ := newTestService()
	cashier := asRole(session.RoleCashier)

	if _, err := svc.CreateMedicine(cashier, domain.MedicineCreateRequest{Name: "X", Category: "Y"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cashier create medicine: expected forbidden, got %v", err)
	}
	if _, err := svc.ListExpenses(cashier, "", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cashier expenses: expected forbidden, got %v", err)
	}
	if _, err := svc.ListExpenses(asRole(session.RolePharmacist), "", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("pharmacist expenses: expected forbidden, got %v", err)
	}
	if _, err := svc.ListMedicines(cashier, "para"); err != nil {
		t.Fatalf("cashier medicine search: %v", err)
	}
	if _, err := svc.Dashboard(context.Background()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("no session: expected forbidden, got %v", err)
	}
}

func TestAdjustStock(t *testing.T) {
	svc, _ := newTestService()
	ctx := asRole(session.RolePharmacist)

	if _, err := svc.AdjustStock(ctx, memory.SeedAmoxicillinID, domain.StockAdjustRequest{Delta: 10}); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("missing reason: expected invalid record, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, memory.SeedAmoxicillinID, domain.StockAdjustRequest{Delta: -6, Reason: "breakage"}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("below zero: expected insufficient stock, got %v", err)
	}

	updated, err := svc.AdjustStock(ctx, memory.SeedAmoxicillinID, domain.StockAdjustRequest{Delta: 30, Reason: "recount"})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if updated.Stock != 35 {
		t.Fatalf("expected stock 35, got %d", updated.Stock)
	}
}

func TestLowStockIsSortedByRatio(t *testing.T) {
	svc, _ := newTestService()
	low, err := svc.LowStock(asRole(session.RolePharmacist))
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) == 0 || low[0].ID != memory.SeedAmoxicillinID {
		t.Fatalf("expected amoxicillin first, got %+v", low)
	}
}

func TestStockAlertsFlagLowStock(t *testing.T) {
	svc, _ := newTestService()
	alerts, err := svc.StockAlerts(asRole(session.RoleAdmin))
	if err != nil {
		t.Fatalf("stock alerts: %v", err)
	}
	found := false
	for _, alert := range alerts {
		if alert.MedicineID == memory.SeedAmoxicillinID && alert.Reason == "low_stock" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected amoxicillin low_stock alert, got %+v", alerts)
	}
}

func TestDashboardIsCachedUntilAWrite(t *testing.T) {
	repo := memory.NewSeeded(nil)
	dashboards := &recordingCache{}
	svc := New(repo, dashboards, time.Minute, nil)
	ctx := asRole(session.RoleAdmin)

	first, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if first.Stats.TotalMedicines != 3 || first.Stats.LowStockCount < 1 || first.Stats.PendingPrescriptions != 1 {
		t.Fatalf("unexpected stats %+v", first.Stats)
	}
	if _, err := svc.Dashboard(ctx); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboards.hits != 1 {
		t.Fatalf("expected second read from cache, hits=%d", dashboards.hits)
	}

	if _, err := svc.RecordSale(ctx, simpleSale("dash-1", memory.SeedParacetamolID, 1)); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if dashboards.invalidated == 0 {
		t.Fatalf("expected sale to invalidate dashboards")
	}

	fresh, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if fresh.Stats.TodaySalesCount != 1 || fresh.Stats.TodayRevenueCents != 1350 {
		t.Fatalf("expected today's sale in fresh dashboard, got %+v", fresh.Stats)
	}
}

func TestSalesReportAndTopMedicines(t *testing.T) {
	svc, _ := newTestService()
	ctx := asRole(session.RoleAdmin)

	for i, line := range []struct {
		id  string
		qty int
	}{
		{memory.SeedParacetamolID, 2},
		{memory.SeedLisinoprilID, 1},
		{memory.SeedParacetamolID, 3},
	} {
		req := simpleSale("rep-"+string(rune('a'+i)), line.id, line.qty)
		if i == 1 {
			req.PaymentMethod = domain.PaymentCard
		}
		if _, err := svc.RecordSale(ctx, req); err != nil {
			t.Fatalf("sale %d: %v", i, err)
		}
	}
	refund, err := svc.RecordSale(ctx, simpleSale("rep-refund", memory.SeedLisinoprilID, 1))
	if err != nil {
		t.Fatalf("sale to refund: %v", err)
	}
	if _, err := svc.RefundSale(ctx, refund.Sale.ID, "customer return"); err != nil {
		t.Fatalf("refund: %v", err)
	}

	report, err := svc.SalesReport(ctx, "", "")
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	// 2700 + 2025 + 4050
	if report.Transactions != 3 || report.RevenueCents != 8775 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.RefundedCount != 1 {
		t.Fatalf("expected one refund, got %d", report.RefundedCount)
	}
	if report.ByPaymentMethod[domain.PaymentCard] != 2025 {
		t.Fatalf("unexpected payment split %+v", report.ByPaymentMethod)
	}
	if len(report.Days) != 7 {
		t.Fatalf("expected a seven day window, got %d days", len(report.Days))
	}

	top, err := svc.TopMedicines(ctx, "", "", 1)
	if err != nil {
		t.Fatalf("top medicines: %v", err)
	}
	if len(top) != 1 || top[0].MedicineID != memory.SeedParacetamolID || top[0].UnitsSold != 5 {
		t.Fatalf("unexpected top medicines %+v", top)
	}

	if _, err := svc.SalesReport(ctx, "2026-01-10", "2026-01-01"); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("reversed range: expected invalid record, got %v", err)
	}
}

func TestDailySummaryCollectsTheDay(t *testing.T) {
	svc, _ := newTestService()
	ctx := session.With(context.Background(), session.System())

	if _, err := svc.RecordSale(ctx, simpleSale("ds-1", memory.SeedParacetamolID, 2)); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	summary, err := svc.DailySummary(ctx, "")
	if err != nil {
		t.Fatalf("daily summary: %v", err)
	}
	if summary.Sales.Transactions != 1 || summary.Sales.RevenueCents != 2700 {
		t.Fatalf("unexpected sales %+v", summary.Sales)
	}
	if len(summary.Sales.Days) != 1 {
		t.Fatalf("expected a single day window")
	}
	if len(summary.StockAlerts) == 0 {
		t.Fatalf("expected stock alerts in summary")
	}
}

func TestUpdateSettingsIsAdminOnly(t *testing.T) {
	svc, _ := newTestService()
	rate := 5.0

	if _, err := svc.UpdateSettings(asRole(session.RolePharmacist), domain.SettingsUpdateRequest{TaxRatePercent: &rate}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("pharmacist: expected forbidden, got %v", err)
	}

	badTimeout := 2
	if _, err := svc.UpdateSettings(asRole(session.RoleAdmin), domain.SettingsUpdateRequest{SessionTimeoutMinutes: &badTimeout}); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("timeout: expected invalid record, got %v", err)
	}

	updated, err := svc.UpdateSettings(asRole(session.RoleAdmin), domain.SettingsUpdateRequest{TaxRatePercent: &rate})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if updated.TaxRatePercent != 5 {
		t.Fatalf("expected tax 5, got %v", updated.TaxRatePercent)
	}

	resp, err := svc.RecordSale(asRole(session.RoleCashier), simpleSale("tax-1", memory.SeedParacetamolID, 2))
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if resp.Sale.TaxCents != 125 {
		t.Fatalf("expected new tax rate applied (125), got %d", resp.Sale.TaxCents)
	}
}

func TestAuditLogFollowsSetting(t *testing.T) {
	svc, _ := newTestService()
	admin := asRole(session.RoleAdmin)

	if _, err := svc.RecordSale(admin, simpleSale("a-1", memory.SeedParacetamolID, 1)); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	logs, err := svc.ListAuditLogs(admin, "", 10)
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "sale.create" || logs[0].ActorEmail != "admin@pharmacy.com" {
		t.Fatalf("unexpected audit logs %+v", logs)
	}

	off := false
	if _, err := svc.UpdateSettings(admin, domain.SettingsUpdateRequest{AuditLogEnabled: &off}); err != nil {
		t.Fatalf("disable audit: %v", err)
	}
	if _, err := svc.RecordSale(admin, simpleSale("a-2", memory.SeedParacetamolID, 1)); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	logs, err = svc.ListAuditLogs(admin, "", 10)
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	if len(logs) != 2 || logs[0].Action != "settings.update" {
		t.Fatalf("expected only the disabling change to be recorded, got %+v", logs)
	}
}

func TestFinanceSummary(t *testing.T) {
	svc, _ := newTestService()
	admin := asRole(session.RoleAdmin)

	if _, err := svc.CreateExpense(admin, domain.ExpenseCreateRequest{Category: "Rent", Description: "Shop rent", AmountCents: 0, Date: "2026-10-01", PaymentMethod: domain.ExpensePaymentCash}); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("zero amount: expected invalid record, got %v", err)
	}
	if _, err := svc.CreateExpense(admin, domain.ExpenseCreateRequest{Category: "Rent", Description: "Shop rent", AmountCents: 150000, Date: "2026-10-01", PaymentMethod: domain.ExpensePaymentCash}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	summary, err := svc.FinanceSummary(admin, "2026-10-01", "2026-10-31")
	if err != nil {
		t.Fatalf("finance summary: %v", err)
	}
	if summary.TotalExpensesCents != 150000 {
		t.Fatalf("expected expenses 150000, got %d", summary.TotalExpensesCents)
	}
}

func TestDeleteMedicineWaitsForOpenSales(t *testing.T) {
	svc, repo := newTestService()
	ctx := asRole(session.RoleAdmin)

	completed, err := svc.RecordSale(ctx, simpleSale("del-1", memory.SeedParacetamolID, 2))
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	held := simpleSale("del-2", memory.SeedParacetamolID, 1)
	held.Hold = true
	pending, err := svc.RecordSale(ctx, held)
	if err != nil {
		t.Fatalf("hold sale: %v", err)
	}

	if err := svc.DeleteMedicine(ctx, memory.SeedParacetamolID); !errors.Is(err, store.ErrInUse) {
		t.Fatalf("delete with open sales: expected in use, got %v", err)
	}

	if _, err := svc.RefundSale(ctx, completed.Sale.ID, "wrong item"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if err := svc.DeleteMedicine(ctx, memory.SeedParacetamolID); !errors.Is(err, store.ErrInUse) {
		t.Fatalf("delete with held sale: expected in use, got %v", err)
	}
	if _, err := svc.CancelSale(ctx, pending.Sale.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := stockOf(t, repo, memory.SeedParacetamolID); got != 150 {
		t.Fatalf("expected full restock to 150, got %d", got)
	}

	if err := svc.DeleteMedicine(ctx, memory.SeedParacetamolID); err != nil {
		t.Fatalf("delete after sales closed: %v", err)
	}
	if _, err := repo.GetMedicine(context.Background(), memory.SeedParacetamolID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected medicine gone, got %v", err)
	}
}

func TestDashboardHidesAdminFieldsFromOtherRoles(t *testing.T) {
	repo := memory.NewSeeded(nil)
	dashboards := &recordingCache{}
	svc := New(repo, dashboards, time.Minute, nil)
	admin := asRole(session.RoleAdmin)

	if _, err := svc.CreateExpense(admin, domain.ExpenseCreateRequest{
		Category:    "Utilities",
		Description: "Electricity",
		AmountCents: 42000,
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	full, err := svc.Dashboard(admin)
	if err != nil {
		t.Fatalf("admin dashboard: %v", err)
	}
	if full.Stats.MonthlyExpensesCents < 42000 || len(full.RecentActivities) == 0 {
		t.Fatalf("expected admin to see expenses and activity, got %+v", full)
	}

	for _, role := range []session.Role{session.RoleCashier, session.RolePharmacist} {
		scoped, err := svc.Dashboard(asRole(role))
		if err != nil {
			t.Fatalf("%s dashboard: %v", role, err)
		}
		if scoped.Stats.MonthlyExpensesCents != 0 || len(scoped.RecentActivities) != 0 {
			t.Fatalf("%s saw admin-only fields: %+v", role, scoped)
		}
		if scoped.Stats.TotalMedicines != full.Stats.TotalMedicines {
			t.Fatalf("%s lost shared stats: %+v", role, scoped.Stats)
		}
	}
	if dashboards.hits != 2 {
		t.Fatalf("expected scoped reads to reuse the cache, hits=%d", dashboards.hits)
	}

	again, err := svc.Dashboard(admin)
	if err != nil {
		t.Fatalf("admin dashboard: %v", err)
	}
	if again.Stats.MonthlyExpensesCents != full.Stats.MonthlyExpensesCents || len(again.RecentActivities) != len(full.RecentActivities) {
		t.Fatalf("cached dashboard was altered by a scoped read: %+v", again)
	}
}

func TestHeldSaleCountsOnTheDayItCompletes(t *testing.T) {
	svc, _ := newTestService()
	ctx := asRole(session.RoleAdmin)
	today := startOfDay(time.Now().UTC()).Add(10 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)

	svc.now = func() time.Time { return yesterday }
	held := simpleSale("late-1", memory.SeedLisinoprilID, 2)
	held.Hold = true
	resp, err := svc.RecordSale(ctx, held)
	if err != nil {
		t.Fatalf("hold sale: %v", err)
	}

	svc.now = func() time.Time { return today }
	if _, err := svc.CompleteSale(ctx, resp.Sale.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	report, err := svc.SalesReport(ctx, formatDay(yesterday), formatDay(today))
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	if report.Transactions != 1 || len(report.Days) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Days[0].Transactions != 0 || report.Days[1].Transactions != 1 {
		t.Fatalf("expected the sale on its completion day, got %+v", report.Days)
	}

	dashboard, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.Stats.TodaySalesCount != 1 {
		t.Fatalf("expected completed held sale in today's stats, got %+v", dashboard.Stats)
	}
}
