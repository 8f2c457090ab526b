package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharmacare/backend/internal/archive"
	"pharmacare/backend/internal/cache"
	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/stocklevel"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/workflow"
)

const (
	dashboardListSize = 5
	maxReportDays     = 366
	uncategorized     = "Uncategorized"
)

// Dashboard returns today's overview, served from cache while it is fresh.
// The cached copy is complete; fields the caller's role may not see are
// cleared on the way out.
func (s *Service) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	sess, err := requireSection(ctx, session.SectionDashboard)
	if err != nil {
		return nil, err
	}
	dashboard, err := s.dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return scopeDashboard(dashboard, sess.Role), nil
}

func (s *Service) dashboard(ctx context.Context) (*domain.Dashboard, error) {
	now := s.now()
	today := formatDay(now)
	key := cache.DashboardKey(today)
	if cached, ok, err := s.dashboards.Get(ctx, key); err != nil {
		s.log.Warn("dashboard cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	dashboard, err := s.buildDashboard(ctx, now)
	if err != nil {
		return nil, err
	}
	if err := s.dashboards.Set(ctx, key, dashboard, s.cacheTTL); err != nil {
		s.log.Warn("dashboard cache write failed", zap.Error(err))
	}
	return dashboard, nil
}

func scopeDashboard(dashboard *domain.Dashboard, role session.Role) *domain.Dashboard {
	out := *dashboard
	if !session.Allowed(role, session.SectionExpenses) {
		out.Stats.MonthlyExpensesCents = 0
	}
	if !session.Allowed(role, session.SectionAudit) {
		out.RecentActivities = []domain.AuditLog{}
	}
	return &out
}

func (s *Service) buildDashboard(ctx context.Context, now time.Time) (*domain.Dashboard, error) {
	medicines, err := s.repo.ListMedicines(ctx, "")
	if err != nil {
		return nil, err
	}
	settings := s.settings(ctx)

	stats := domain.DashboardStats{TotalMedicines: len(medicines)}
	for _, m := range medicines {
		if stocklevel.NeedsAttention(m.StockStatus) {
			stats.LowStockCount++
		}
		if stocklevel.ExpiresWithin(m.ExpiryDate, now, settings.ExpiryAlertDays) {
			stats.ExpiringCount++
		}
	}

	day := startOfDay(now)
	sales, err := s.repo.ListSales(ctx, string(workflow.SaleCompleted), store.Period{From: day, To: day.AddDate(0, 0, 1)}, 0)
	if err != nil {
		return nil, err
	}
	stats.TodaySalesCount = len(sales)
	for _, sale := range sales {
		stats.TodayRevenueCents += sale.TotalCents
	}

	pending, err := s.repo.ListPrescriptions(ctx, string(workflow.PrescriptionPending), 0)
	if err != nil {
		return nil, err
	}
	stats.PendingPrescriptions = len(pending)

	customers, err := s.repo.ListCustomers(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, c := range customers {
		if c.Status == domain.StatusActive {
			stats.ActiveCustomers++
		}
	}

	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	expenses, err := s.repo.ListExpenses(ctx, store.Period{From: monthStart, To: monthStart.AddDate(0, 1, 0)})
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		stats.MonthlyExpensesCents += e.AmountCents
	}

	activities, err := s.repo.ListAuditLogs(ctx, store.Period{}, dashboardListSize)
	if err != nil {
		return nil, err
	}
	low, err := s.lowStock(ctx)
	if err != nil {
		return nil, err
	}
	if len(low) > dashboardListSize {
		low = low[:dashboardListSize]
	}

	return &domain.Dashboard{
		Date:             formatDay(now),
		Stats:            stats,
		RecentActivities: activities,
		LowStockItems:    low,
		GeneratedAt:      now,
	}, nil
}

// reportPeriod resolves inclusive from/to days. to defaults to today and
// from to six days before to.
func (s *Service) reportPeriod(from string, to string) (store.Period, error) {
	end, err := parseOptionalDate("to", to, startOfDay(s.now()))
	if err != nil {
		return store.Period{}, err
	}
	start, err := parseOptionalDate("from", from, end.AddDate(0, 0, -6))
	if err != nil {
		return store.Period{}, err
	}
	if start.After(end) {
		return store.Period{}, invalid("from must not be after to")
	}
	if end.Sub(start) > maxReportDays*24*time.Hour {
		return store.Period{}, invalid("report range is limited to %d days", maxReportDays)
	}
	return store.Period{From: start, To: end.AddDate(0, 0, 1)}, nil
}

func (s *Service) SalesReport(ctx context.Context, from string, to string) (*domain.SalesReport, error) {
	if _, err := requireSection(ctx, session.SectionReports); err != nil {
		return nil, err
	}
	period, err := s.reportPeriod(from, to)
	if err != nil {
		return nil, err
	}
	return s.salesReport(ctx, period)
}

func (s *Service) salesReport(ctx context.Context, period store.Period) (*domain.SalesReport, error) {
	sales, err := s.repo.ListSales(ctx, "", period, 0)
	if err != nil {
		return nil, err
	}

	report := &domain.SalesReport{
		From:            formatDay(period.From),
		To:              formatDay(lastDay(period.To)),
		ByPaymentMethod: map[string]int64{},
	}
	index := map[string]int{}
	for d := period.From; d.Before(period.To); d = d.AddDate(0, 0, 1) {
		index[formatDay(d)] = len(report.Days)
		report.Days = append(report.Days, domain.DailySales{Date: formatDay(d)})
	}

	for _, sale := range sales {
		if sale.Status == workflow.SaleRefunded {
			report.RefundedCount++
			continue
		}
		if sale.Status != workflow.SaleCompleted {
			continue
		}
		report.Transactions++
		report.RevenueCents += sale.TotalCents
		report.TaxCents += sale.TaxCents
		report.DiscountCents += sale.DiscountCents
		report.ByPaymentMethod[sale.PaymentMethod] += sale.TotalCents

		if i, ok := index[formatDay(store.SaleDate(sale))]; ok {
			day := &report.Days[i]
			day.Transactions++
			day.RevenueCents += sale.TotalCents
			day.TaxCents += sale.TaxCents
			day.DiscountCents += sale.DiscountCents
		}
	}
	if report.Transactions > 0 {
		report.AverageSaleCents = report.RevenueCents / int64(report.Transactions)
	}
	return report, nil
}

func (s *Service) CategoryBreakdown(ctx context.Context, from string, to string) ([]domain.CategoryBreakdown, error) {
	if _, err := requireSection(ctx, session.SectionReports); err != nil {
		return nil, err
	}
	period, err := s.reportPeriod(from, to)
	if err != nil {
		return nil, err
	}
	return s.categoryBreakdown(ctx, period)
}

func (s *Service) categoryBreakdown(ctx context.Context, period store.Period) ([]domain.CategoryBreakdown, error) {
	medicines, err := s.repo.ListMedicines(ctx, "")
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx, string(workflow.SaleCompleted), period, 0)
	if err != nil {
		return nil, err
	}

	categoryOf := make(map[string]string, len(medicines))
	rows := map[string]*domain.CategoryBreakdown{}
	row := func(category string) *domain.CategoryBreakdown {
		r, ok := rows[category]
		if !ok {
			r = &domain.CategoryBreakdown{Category: category}
			rows[category] = r
		}
		return r
	}

	for _, m := range medicines {
		categoryOf[m.ID] = m.Category
		row(m.Category).Medicines++
	}
	for _, sale := range sales {
		for _, item := range sale.Items {
			category, ok := categoryOf[item.MedicineID]
			if !ok {
				category = uncategorized
			}
			r := row(category)
			r.UnitsSold += item.Quantity
			r.RevenueCents += item.TotalCents
		}
	}

	out := make([]domain.CategoryBreakdown, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b domain.CategoryBreakdown) int {
		if a.RevenueCents != b.RevenueCents {
			if a.RevenueCents > b.RevenueCents {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Category, b.Category)
	})
	return out, nil
}

// TopMedicines ranks medicines by units sold in completed sales.
func (s *Service) TopMedicines(ctx context.Context, from string, to string, limit int) ([]domain.TopMedicine, error) {
	if _, err := requireSection(ctx, session.SectionReports); err != nil {
		return nil, err
	}
	period, err := s.reportPeriod(from, to)
	if err != nil {
		return nil, err
	}
	return s.topMedicines(ctx, period, limit)
}

func (s *Service) topMedicines(ctx context.Context, period store.Period, limit int) ([]domain.TopMedicine, error) {
	sales, err := s.repo.ListSales(ctx, string(workflow.SaleCompleted), period, 0)
	if err != nil {
		return nil, err
	}

	totals := map[string]*domain.TopMedicine{}
	for _, sale := range sales {
		for _, item := range sale.Items {
			t, ok := totals[item.MedicineID]
			if !ok {
				t = &domain.TopMedicine{MedicineID: item.MedicineID, Name: item.MedicineName}
				totals[item.MedicineID] = t
			}
			t.UnitsSold += item.Quantity
			t.RevenueCents += item.TotalCents
		}
	}

	out := make([]domain.TopMedicine, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b domain.TopMedicine) int {
		switch {
		case a.UnitsSold != b.UnitsSold:
			return b.UnitsSold - a.UnitsSold
		case a.RevenueCents > b.RevenueCents:
			return -1
		case a.RevenueCents < b.RevenueCents:
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// StockAlerts lists medicines that are low, medium or close to expiry.
// A medicine that is both appears once per reason.
func (s *Service) StockAlerts(ctx context.Context) ([]domain.StockAlert, error) {
	if _, err := requireSection(ctx, session.SectionInventory); err != nil {
		return nil, err
	}

	low, err := s.lowStock(ctx)
	if err != nil {
		return nil, err
	}
	expiring, err := s.expiring(ctx, 0)
	if err != nil {
		return nil, err
	}

	now := s.now()
	alerts := make([]domain.StockAlert, 0, len(low)+len(expiring))
	for _, m := range low {
		reason := "medium_stock"
		if m.StockStatus == stocklevel.Low {
			reason = "low_stock"
		}
		alerts = append(alerts, stockAlert(m, reason))
	}
	for _, m := range expiring {
		reason := "expiring"
		if m.ExpiryDate.Before(startOfDay(now)) {
			reason = "expired"
		}
		alerts = append(alerts, stockAlert(m, reason))
	}
	return alerts, nil
}

func stockAlert(m domain.Medicine, reason string) domain.StockAlert {
	return domain.StockAlert{
		MedicineID: m.ID,
		Name:       m.Name,
		Stock:      m.Stock,
		MinStock:   m.MinStock,
		Status:     m.StockStatus,
		ExpiryDate: m.ExpiryDate,
		Reason:     reason,
	}
}

// DailySummary collects the end-of-day figures for date (YYYY-MM-DD, or
// today when blank) in the shape the archive stores.
func (s *Service) DailySummary(ctx context.Context, date string) (*archive.DailySummary, error) {
	if _, err := requireSection(ctx, session.SectionReports); err != nil {
		return nil, err
	}
	day, err := parseOptionalDate("date", date, startOfDay(s.now()))
	if err != nil {
		return nil, err
	}
	period := store.Period{From: day, To: day.AddDate(0, 0, 1)}

	sales, err := s.salesReport(ctx, period)
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryBreakdown(ctx, period)
	if err != nil {
		return nil, err
	}
	top, err := s.topMedicines(ctx, period, 10)
	if err != nil {
		return nil, err
	}
	finance, err := s.financeSummary(ctx, period)
	if err != nil {
		return nil, err
	}
	alerts, err := s.StockAlerts(ctx)
	if err != nil {
		return nil, err
	}

	return &archive.DailySummary{
		Date:         formatDay(day),
		Sales:        *sales,
		Categories:   categories,
		TopMedicines: top,
		Finance:      *finance,
		StockAlerts:  alerts,
		GeneratedAt:  s.now(),
	}, nil
}
