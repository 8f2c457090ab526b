package service

import (
	"context"
	"strings"
	"time"

	"pharmacare/backend/internal/billing"
	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/store"
)

var expensePaymentMethods = map[string]bool{
	domain.ExpensePaymentCash:         true,
	domain.ExpensePaymentBankTransfer: true,
	domain.ExpensePaymentCreditCard:   true,
	domain.ExpensePaymentCheque:       true,
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (*domain.Expense, error) {
	actor, err := requireSection(ctx, session.SectionExpenses)
	if err != nil {
		return nil, err
	}
	if err := requireAll("category", req.Category, "description", req.Description); err != nil {
		return nil, err
	}
	if req.AmountCents <= 0 {
		return nil, invalid("amount_cents must be positive")
	}
	method := defaultString(req.PaymentMethod, domain.ExpensePaymentCash)
	if !expensePaymentMethods[method] {
		return nil, invalid("payment_method %q is not supported", method)
	}
	date, err := parseOptionalDate("date", req.Date, startOfDay(s.now()))
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		Category:      strings.TrimSpace(req.Category),
		Description:   strings.TrimSpace(req.Description),
		AmountCents:   req.AmountCents,
		Date:          date,
		PaymentMethod: method,
		Receipt:       strings.TrimSpace(req.Receipt),
		CreatedBy:     actor.Email,
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "expense.create", "expense", created.ID,
		created.Category+" "+billing.FormatCents(created.AmountCents))
	return created, nil
}

func (s *Service) ListExpenses(ctx context.Context, from string, to string) ([]domain.Expense, error) {
	if _, err := requireSection(ctx, session.SectionExpenses); err != nil {
		return nil, err
	}
	period, err := parsePeriod(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, period)
}

func (s *Service) CreateCashFlow(ctx context.Context, req domain.CashFlowCreateRequest) (*domain.CashFlow, error) {
	actor, err := requireSection(ctx, session.SectionExpenses)
	if err != nil {
		return nil, err
	}
	flowType := strings.TrimSpace(req.Type)
	if flowType != domain.CashIn && flowType != domain.CashOut {
		return nil, invalid("type must be %q or %q", domain.CashIn, domain.CashOut)
	}
	if req.AmountCents <= 0 {
		return nil, invalid("amount_cents must be positive")
	}
	if err := required("description", req.Description); err != nil {
		return nil, err
	}
	date, err := parseOptionalDate("date", req.Date, startOfDay(s.now()))
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateCashFlow(ctx, domain.CashFlow{
		Type:        flowType,
		AmountCents: req.AmountCents,
		Description: strings.TrimSpace(req.Description),
		Date:        date,
		Reference:   strings.TrimSpace(req.Reference),
		CreatedBy:   actor.Email,
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "cashflow.create", "cash_flow", created.ID,
		created.Type+" "+billing.FormatCents(created.AmountCents))
	return created, nil
}

func (s *Service) ListCashFlows(ctx context.Context, from string, to string) ([]domain.CashFlow, error) {
	if _, err := requireSection(ctx, session.SectionExpenses); err != nil {
		return nil, err
	}
	period, err := parsePeriod(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCashFlows(ctx, period)
}

// FinanceSummary totals expenses and cash movements between from and to,
// both inclusive calendar days.
func (s *Service) FinanceSummary(ctx context.Context, from string, to string) (*domain.FinanceSummary, error) {
	if _, err := requireSection(ctx, session.SectionExpenses); err != nil {
		return nil, err
	}
	period, err := parsePeriod(from, to)
	if err != nil {
		return nil, err
	}
	return s.financeSummary(ctx, period)
}

func (s *Service) financeSummary(ctx context.Context, period store.Period) (*domain.FinanceSummary, error) {
	expenses, err := s.repo.ListExpenses(ctx, period)
	if err != nil {
		return nil, err
	}
	flows, err := s.repo.ListCashFlows(ctx, period)
	if err != nil {
		return nil, err
	}

	summary := &domain.FinanceSummary{
		From: formatDay(period.From),
		To:   formatDay(lastDay(period.To)),
	}
	for _, expense := range expenses {
		summary.TotalExpensesCents += expense.AmountCents
	}
	for _, flow := range flows {
		switch flow.Type {
		case domain.CashIn:
			summary.CashInCents += flow.AmountCents
		case domain.CashOut:
			summary.CashOutCents += flow.AmountCents
		}
	}
	summary.NetCashCents = summary.CashInCents - summary.CashOutCents
	return summary, nil
}

// parsePeriod turns inclusive YYYY-MM-DD bounds into a half-open Period.
// Blank bounds stay open.
func parsePeriod(from string, to string) (store.Period, error) {
	period := store.Period{}
	if strings.TrimSpace(from) != "" {
		start, err := parseDate("from", from)
		if err != nil {
			return period, err
		}
		period.From = start
	}
	if strings.TrimSpace(to) != "" {
		end, err := parseDate("to", to)
		if err != nil {
			return period, err
		}
		period.To = end.AddDate(0, 0, 1)
	}
	if !period.From.IsZero() && !period.To.IsZero() && !period.From.Before(period.To) {
		return period, invalid("from must not be after to")
	}
	return period, nil
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}

// lastDay maps an exclusive period end back to its inclusive calendar day.
func lastDay(end time.Time) time.Time {
	if end.IsZero() {
		return end
	}
	return end.AddDate(0, 0, -1)
}
