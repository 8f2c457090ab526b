package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/workflow"
	"pharmacare/backend/internal/xid"
)

const prescriptionColumns = `id, prescription_number, patient_name, doctor_name, date_issued, medications,
	instructions, total_amount_cents, insurance, status, created_at, updated_at`

func scanPrescription(row rowScanner) (domain.Prescription, error) {
	var p domain.Prescription
	var medications []byte
	var status string
	if err := row.Scan(
		&p.ID, &p.PrescriptionNumber, &p.PatientName, &p.DoctorName, &p.DateIssued, &medications,
		&p.Instructions, &p.TotalAmountCents, &p.Insurance, &status, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return domain.Prescription{}, err
	}
	p.Status = workflow.PrescriptionStatus(status)
	p.DateIssued = p.DateIssued.UTC()
	if err := json.Unmarshal(medications, &p.Medications); err != nil {
		return domain.Prescription{}, err
	}
	return p, nil
}

func (s *Store) CreatePrescription(ctx context.Context, prescription domain.Prescription) (*domain.Prescription, error) {
	if prescription.PrescriptionNumber == "" || prescription.PatientName == "" || prescription.DoctorName == "" {
		return nil, store.ErrInvalidRecord
	}
	if prescription.ID == "" {
		prescription.ID = xid.New("rx")
	}
	if prescription.Status == "" {
		prescription.Status = workflow.Prescriptions.Initial()
	}
	if prescription.Medications == nil {
		prescription.Medications = []domain.Medication{}
	}
	now := time.Now().UTC()
	if prescription.CreatedAt.IsZero() {
		prescription.CreatedAt = now
	}
	if prescription.UpdatedAt.IsZero() {
		prescription.UpdatedAt = prescription.CreatedAt
	}
	medications, err := json.Marshal(prescription.Medications)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO prescriptions (id, prescription_number, patient_name, doctor_name, date_issued, medications,
			instructions, total_amount_cents, insurance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, prescription.ID, prescription.PrescriptionNumber, prescription.PatientName, prescription.DoctorName,
		dateUTC(prescription.DateIssued), string(medications), prescription.Instructions, prescription.TotalAmountCents,
		prescription.Insurance, string(prescription.Status), prescription.CreatedAt, prescription.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	out := prescription
	return &out, nil
}

func (s *Store) GetPrescription(ctx context.Context, id string) (*domain.Prescription, error) {
	p, err := scanPrescription(s.db.QueryRowContext(ctx, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) ListPrescriptions(ctx context.Context, status string, limit int) ([]domain.Prescription, error) {
	args := []any{}
	filter := ""
	if status != "" {
		args = append(args, status)
		filter = "WHERE status = $1"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		`+filter+`
		ORDER BY date_issued DESC, created_at DESC
		`+limitClause(limit), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Prescription, 0, 32)
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) UpdatePrescriptionStatus(ctx context.Context, id string, from workflow.PrescriptionStatus, to workflow.PrescriptionStatus, at time.Time) (*domain.Prescription, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE prescriptions
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+prescriptionColumns, id, string(from), string(to), at)
	p, err := scanPrescription(row)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM prescriptions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrStaleStatus
}

const saleColumns = `id, sale_number, COALESCE(idempotency_key, ''), COALESCE(customer_id, ''), customer_name,
	customer_phone, subtotal_cents, tax_cents, discount_cents, total_cents, payment_method,
	prescription_number, status, created_by, created_at, updated_at`

// saleDateColumn mirrors store.SaleDate.
const saleDateColumn = `(CASE WHEN status = 'Completed' THEN updated_at ELSE created_at END)`

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	var status string
	if err := row.Scan(
		&sale.ID, &sale.SaleNumber, &sale.IdempotencyKey, &sale.CustomerID, &sale.CustomerName,
		&sale.CustomerPhone, &sale.SubtotalCents, &sale.TaxCents, &sale.DiscountCents, &sale.TotalCents,
		&sale.PaymentMethod, &sale.PrescriptionNumber, &status, &sale.CreatedBy, &sale.CreatedAt, &sale.UpdatedAt,
	); err != nil {
		return domain.Sale{}, err
	}
	sale.Status = workflow.SaleStatus(status)
	return sale, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// attachSaleItems loads the lines of every sale in sales, in line order.
func attachSaleItems(ctx context.Context, q queryer, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, len(sales))
	index := make(map[string]int, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ID
		index[sale.ID] = i
		sales[i].Items = []domain.SaleItem{}
	}

	rows, err := q.QueryContext(ctx, `
		SELECT sale_id, medicine_id, medicine_name, quantity, unit_price_cents, total_cents
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, line_no
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var saleID string
		var item domain.SaleItem
		if err := rows.Scan(&saleID, &item.MedicineID, &item.MedicineName, &item.Quantity, &item.UnitPriceCents, &item.TotalCents); err != nil {
			return err
		}
		i := index[saleID]
		sales[i].Items = append(sales[i].Items, item)
	}
	return rows.Err()
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.CustomerName == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.UpdatedAt = sale.CreatedAt

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := stockTx(ctx, tx, saleStockChanges(sale.Items, -1), sale.CreatedAt); err != nil {
		return nil, err
	}

	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT nextval('sale_number_seq')`).Scan(&seq); err != nil {
		return nil, err
	}
	sale.SaleNumber = xid.Sequence("SAL", seq)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, sale_number, idempotency_key, customer_id, customer_name, customer_phone,
			subtotal_cents, tax_cents, discount_cents, total_cents, payment_method, prescription_number,
			status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, sale.ID, sale.SaleNumber, nullIfEmpty(sale.IdempotencyKey), nullIfEmpty(sale.CustomerID), sale.CustomerName,
		sale.CustomerPhone, sale.SubtotalCents, sale.TaxCents, sale.DiscountCents, sale.TotalCents,
		sale.PaymentMethod, sale.PrescriptionNumber, string(sale.Status), sale.CreatedBy, sale.CreatedAt, sale.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, store.ErrDuplicate
		case isForeignKeyViolation(err):
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	for i, item := range sale.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, line_no, medicine_id, medicine_name, quantity, unit_price_cents, total_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, sale.ID, i+1, item.MedicineID, item.MedicineName, item.Quantity, item.UnitPriceCents, item.TotalCents); err != nil {
			return nil, err
		}
	}

	if sale.Status == workflow.SaleCompleted {
		if err := creditCustomerTx(ctx, tx, sale.CustomerID, sale.TotalCents); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	out := sale
	out.Items = append([]domain.SaleItem(nil), sale.Items...)
	return &out, nil
}

func (s *Store) getSaleWhere(ctx context.Context, clause string, arg any) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE `+clause, arg))
	if err != nil {
		return nil, notFound(err)
	}
	sales := []domain.Sale{sale}
	if err := attachSaleItems(ctx, s.db, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.getSaleWhere(ctx, "id = $1", id)
}

func (s *Store) FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error) {
	if key == "" {
		return nil, store.ErrNotFound
	}
	return s.getSaleWhere(ctx, "idempotency_key = $1", key)
}

func (s *Store) ListSales(ctx context.Context, status string, period store.Period, limit int) ([]domain.Sale, error) {
	args := []any{}
	statusFilter := ""
	if status != "" {
		args = append(args, status)
		statusFilter = "status = $1"
	}
	periodFilter, args := periodClause(saleDateColumn, period, args)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		`+where(statusFilter, periodFilter)+`
		ORDER BY created_at DESC
		`+limitClause(limit), args...)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		result = append(result, sale)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if err := attachSaleItems(ctx, s.db, result); err != nil {
		return nil, err
	}
	return result, nil
}

// TransitionSale restocks on cancel or refund and keeps the customer's
// purchase total in step with completed sales.
func (s *Store) TransitionSale(ctx context.Context, id string, from workflow.SaleStatus, to workflow.SaleStatus, at time.Time) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale, err := scanSale(tx.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err)
	}
	if sale.Status != from {
		return nil, store.ErrStaleStatus
	}
	sales := []domain.Sale{sale}
	if err := attachSaleItems(ctx, tx, sales); err != nil {
		return nil, err
	}
	sale = sales[0]

	switch to {
	case workflow.SaleRefunded, workflow.SaleCancelled:
		if err := stockTx(ctx, tx, saleStockChanges(sale.Items, 1), at); err != nil {
			return nil, err
		}
		if from == workflow.SaleCompleted {
			if err := creditCustomerTx(ctx, tx, sale.CustomerID, -sale.TotalCents); err != nil {
				return nil, err
			}
		}
	case workflow.SaleCompleted:
		if err := creditCustomerTx(ctx, tx, sale.CustomerID, sale.TotalCents); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sales SET status = $2, updated_at = $3 WHERE id = $1`, id, string(to), at); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	sale.Status = to
	sale.UpdatedAt = at
	return &sale, nil
}

func saleStockChanges(items []domain.SaleItem, sign int) []domain.StockChange {
	changes := make([]domain.StockChange, 0, len(items))
	for _, item := range items {
		if item.MedicineID == "" || item.Quantity <= 0 {
			continue
		}
		changes = append(changes, domain.StockChange{MedicineID: item.MedicineID, Delta: sign * item.Quantity})
	}
	return changes
}
