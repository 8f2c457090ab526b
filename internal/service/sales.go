package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacare/backend/internal/billing"
	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/workflow"
)

var paymentMethods = map[string]bool{
	domain.PaymentCash:      true,
	domain.PaymentCard:      true,
	domain.PaymentInsurance: true,
}

func lineItems(items []domain.SaleItem) []billing.LineItem {
	out := make([]billing.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, billing.LineItem{Quantity: item.Quantity, UnitPriceCents: item.UnitPriceCents})
	}
	return out
}

// QuoteSale prices a cart against the catalog without writing anything.
func (s *Service) QuoteSale(ctx context.Context, req domain.SaleQuoteRequest) (*domain.SaleQuoteResponse, error) {
	if _, err := requireSection(ctx, session.SectionSales); err != nil {
		return nil, err
	}
	items, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	settings := s.settings(ctx)
	totals := billing.RecomputeAtRate(lineItems(items), req.DiscountCents, billing.RateFromPercent(settings.TaxRatePercent))
	return &domain.SaleQuoteResponse{
		Items:          items,
		Totals:         totals,
		TaxRatePercent: settings.TaxRatePercent,
	}, nil
}

// RecordSale prices, validates and stores a sale. A repeated idempotency key
// returns the stored sale with Duplicate set instead of selling twice.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.SaleResponse, error) {
	actor, err := requireSection(ctx, session.SectionSales)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindSaleByIdempotency(ctx, key)
		if err == nil {
			return &domain.SaleResponse{Sale: *existing, Duplicate: true}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	customerName := strings.TrimSpace(req.CustomerName)
	customerPhone := strings.TrimSpace(req.CustomerPhone)
	if req.CustomerID != "" {
		customer, err := s.repo.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("customer %s: %w", req.CustomerID, err)
		}
		customerName = defaultString(customerName, customer.Name)
		customerPhone = defaultString(customerPhone, customer.Phone)
	}
	if err := required("customer_name", customerName); err != nil {
		return nil, err
	}

	paymentMethod := defaultString(req.PaymentMethod, domain.PaymentCash)
	if !paymentMethods[paymentMethod] {
		return nil, invalid("payment_method must be Cash, Card or Insurance")
	}

	items, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	settings := s.settings(ctx)
	totals := billing.RecomputeAtRate(lineItems(items), req.DiscountCents, billing.RateFromPercent(settings.TaxRatePercent))
	if err := checkDiscount(ctx, actor, totals, settings.DiscountLimitPercent); err != nil {
		return nil, err
	}

	status := workflow.Sales.Initial()
	if req.Hold {
		status = workflow.SalePending
	}

	now := s.now()
	sale, err := s.repo.CreateSale(ctx, domain.Sale{
		IdempotencyKey:     key,
		CustomerID:         req.CustomerID,
		CustomerName:       customerName,
		CustomerPhone:      customerPhone,
		Items:              items,
		SubtotalCents:      totals.SubtotalCents,
		TaxCents:           totals.TaxCents,
		DiscountCents:      totals.DiscountCents,
		TotalCents:         totals.TotalCents,
		PaymentMethod:      paymentMethod,
		PrescriptionNumber: strings.TrimSpace(req.PrescriptionNumber),
		Status:             status,
		CreatedBy:          actor.Email,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if errors.Is(err, store.ErrDuplicate) && key != "" {
		// Lost a race with a concurrent request carrying the same key.
		existing, findErr := s.repo.FindSaleByIdempotency(ctx, key)
		if findErr != nil {
			return nil, err
		}
		return &domain.SaleResponse{Sale: *existing, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}

	s.changed(ctx, "sale.create", "sale", sale.ID,
		fmt.Sprintf("%s total=%s status=%s", sale.SaleNumber, billing.FormatCents(sale.TotalCents), sale.Status))
	return &domain.SaleResponse{Sale: *sale}, nil
}

// checkDiscount rejects discounts that are negative or exceed the bill, and
// discounts above the configured share of the subtotal unless an admin or a
// manager approved them.
func checkDiscount(ctx context.Context, actor session.Session, totals billing.Totals, limitPercent float64) error {
	if totals.DiscountCents < 0 {
		return invalid("discount_cents must not be negative")
	}
	if totals.DiscountCents > totals.SubtotalCents+totals.TaxCents {
		return invalid("discount_cents exceeds subtotal plus tax")
	}
	if totals.DiscountCents == 0 {
		return nil
	}

	limit := decimal.NewFromInt(totals.SubtotalCents).Mul(billing.RateFromPercent(limitPercent))
	if decimal.NewFromInt(totals.DiscountCents).LessThanOrEqual(limit) {
		return nil
	}
	if actor.IsAdmin() || hasManagerApproval(ctx) {
		return nil
	}
	return fmt.Errorf("discount above %.0f%% of subtotal: %w", limitPercent, ErrApprovalRequired)
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	if _, err := requireSection(ctx, session.SectionSales); err != nil {
		return nil, err
	}
	return s.repo.GetSale(ctx, id)
}

// ListSales filters by status and by the calendar day date when given.
func (s *Service) ListSales(ctx context.Context, status string, date string, limit int) ([]domain.Sale, error) {
	if _, err := requireSection(ctx, session.SectionSales); err != nil {
		return nil, err
	}
	if status != "" && !workflow.Sales.Known(workflow.SaleStatus(status)) {
		return nil, fmt.Errorf("%w: %s", workflow.ErrUnknownStatus, status)
	}
	period := store.Period{}
	if strings.TrimSpace(date) != "" {
		day, err := parseDate("date", date)
		if err != nil {
			return nil, err
		}
		period = store.Period{From: day, To: day.AddDate(0, 0, 1)}
	}
	return s.repo.ListSales(ctx, status, period, limit)
}

// CompleteSale settles a held sale.
func (s *Service) CompleteSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.transitionSale(ctx, id, workflow.SaleCompleted, "sale.complete", "")
}

// CancelSale voids a held sale and returns its stock.
func (s *Service) CancelSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.transitionSale(ctx, id, workflow.SaleCancelled, "sale.cancel", "")
}

// RefundSale reverses a completed sale. Callers verify the manager PIN first.
func (s *Service) RefundSale(ctx context.Context, id string, reason string) (*domain.Sale, error) {
	if err := required("reason", reason); err != nil {
		return nil, err
	}
	return s.transitionSale(ctx, id, workflow.SaleRefunded, "sale.refund", strings.TrimSpace(reason))
}

func (s *Service) transitionSale(ctx context.Context, id string, to workflow.SaleStatus, action string, detail string) (*domain.Sale, error) {
	if _, err := requireSection(ctx, session.SectionSales); err != nil {
		return nil, err
	}
	current, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Sales.Transition(current.Status, to); err != nil {
		return nil, err
	}

	updated, err := s.repo.TransitionSale(ctx, id, current.Status, to, s.now())
	if err != nil {
		return nil, err
	}
	s.log.Info("sale status changed",
		zap.String("sale", updated.SaleNumber),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)))
	s.changed(ctx, action, "sale", updated.ID, strings.TrimSpace(updated.SaleNumber+" "+detail))
	return updated, nil
}
