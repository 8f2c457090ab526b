package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/stocklevel"
	"pharmacare/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates missing tables and stores default settings when none
// exist yet. It is safe to run on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM settings`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return s.SaveSettings(ctx, domain.DefaultSettings())
	}
	return nil
}

// stockTx applies signed stock changes inside tx, locking every touched row
// first. No row is written when any result would go negative.
func stockTx(ctx context.Context, tx *sql.Tx, changes []domain.StockChange, at time.Time) error {
	if len(changes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(changes))
	seen := make(map[string]bool, len(changes))
	for _, change := range changes {
		if !seen[change.MedicineID] {
			seen[change.MedicineID] = true
			ids = append(ids, change.MedicineID)
		}
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, stock
		FROM medicines
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return err
	}
	next := make(map[string]int, len(ids))
	for rows.Next() {
		var id string
		var stock int
		if err := rows.Scan(&id, &stock); err != nil {
			_ = rows.Close()
			return err
		}
		next[id] = stock
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, change := range changes {
		current, ok := next[change.MedicineID]
		if !ok {
			return store.ErrNotFound
		}
		current += change.Delta
		if current < 0 {
			return store.ErrInsufficientStock
		}
		next[change.MedicineID] = current
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			UPDATE medicines SET stock = $2, updated_at = $3 WHERE id = $1
		`, id, next[id], at); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// periodClause appends the period bounds to args and returns the matching
// SQL fragment for column. The upper bound is exclusive.
func periodClause(column string, period store.Period, args []any) (string, []any) {
	parts := make([]string, 0, 2)
	if !period.From.IsZero() {
		args = append(args, period.From)
		parts = append(parts, fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if !period.To.IsZero() {
		args = append(args, period.To)
		parts = append(parts, fmt.Sprintf("%s < $%d", column, len(args)))
	}
	return strings.Join(parts, " AND "), args
}

// utcDay reads a DATE column as midnight UTC so it compares with period bounds.
func utcDay(column string) string {
	return "(" + column + "::timestamp AT TIME ZONE 'UTC')"
}

func where(clauses ...string) string {
	kept := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		if clause != "" {
			kept = append(kept, clause)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(kept, " AND ")
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf("LIMIT %d", limit)
}

func withStockStatus(m domain.Medicine) domain.Medicine {
	m.StockStatus = stocklevel.Classify(m.Stock, m.MinStock)
	return m
}

func dateUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullDate(val *time.Time) any {
	if val == nil {
		return nil
	}
	return dateUTC(*val)
}

func nullZeroDate(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return dateUTC(val)
}

func timePtr(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time.UTC()
	return &t
}
