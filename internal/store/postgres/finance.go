package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/xid"
)

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.Category == "" || expense.Description == "" || expense.AmountCents <= 0 {
		return nil, store.ErrInvalidRecord
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	expense.Date = dateUTC(expense.Date)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, category, description, amount_cents, expense_date, payment_method, receipt, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, expense.ID, expense.Category, expense.Description, expense.AmountCents, expense.Date,
		expense.PaymentMethod, expense.Receipt, expense.CreatedBy)
	if err != nil {
		return nil, err
	}
	out := expense
	return &out, nil
}

func (s *Store) ListExpenses(ctx context.Context, period store.Period) ([]domain.Expense, error) {
	filter, args := periodClause(utcDay("expense_date"), period, nil)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, description, amount_cents, expense_date, payment_method, receipt, created_by
		FROM expenses
		`+where(filter)+`
		ORDER BY expense_date DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Category, &e.Description, &e.AmountCents, &e.Date, &e.PaymentMethod, &e.Receipt, &e.CreatedBy); err != nil {
			return nil, err
		}
		e.Date = e.Date.UTC()
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) CreateCashFlow(ctx context.Context, flow domain.CashFlow) (*domain.CashFlow, error) {
	if (flow.Type != domain.CashIn && flow.Type != domain.CashOut) || flow.AmountCents <= 0 || flow.Description == "" {
		return nil, store.ErrInvalidRecord
	}
	if flow.ID == "" {
		flow.ID = xid.New("cf")
	}
	flow.Date = dateUTC(flow.Date)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_flows (id, flow_type, amount_cents, description, flow_date, reference, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, flow.ID, flow.Type, flow.AmountCents, flow.Description, flow.Date, flow.Reference, flow.CreatedBy)
	if err != nil {
		return nil, err
	}
	out := flow
	return &out, nil
}

func (s *Store) ListCashFlows(ctx context.Context, period store.Period) ([]domain.CashFlow, error) {
	filter, args := periodClause(utcDay("flow_date"), period, nil)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flow_type, amount_cents, description, flow_date, reference, created_by
		FROM cash_flows
		`+where(filter)+`
		ORDER BY flow_date DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.CashFlow, 0, 32)
	for rows.Next() {
		var f domain.CashFlow
		if err := rows.Scan(&f.ID, &f.Type, &f.AmountCents, &f.Description, &f.Date, &f.Reference, &f.CreatedBy); err != nil {
			return nil, err
		}
		f.Date = f.Date.UTC()
		result = append(result, f)
	}
	return result, rows.Err()
}

// GetSettings falls back to the defaults until the first save.
func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, err
	}

	settings := domain.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, data, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, string(raw), time.Now().UTC())
	return err
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_email, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.ActorEmail, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID,
		entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, period store.Period, limit int) ([]domain.AuditLog, error) {
	filter, args := periodClause("created_at", period, nil)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_email, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		`+where(filter)+`
		ORDER BY created_at DESC
		`+limitClause(limit), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.AuditLog, 0, 32)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorEmail, &entry.ActorRole, &entry.Action, &entry.EntityType,
			&entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
