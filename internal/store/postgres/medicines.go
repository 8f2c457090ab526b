package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/workflow"
	"pharmacare/backend/internal/xid"
)

const medicineColumns = `id, name, category, manufacturer, price_cents, stock, min_stock,
	expiry_date, batch_number, description, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row rowScanner) (domain.Medicine, error) {
	var m domain.Medicine
	var expiry sql.NullTime
	if err := row.Scan(
		&m.ID, &m.Name, &m.Category, &m.Manufacturer, &m.PriceCents, &m.Stock, &m.MinStock,
		&expiry, &m.BatchNumber, &m.Description, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return domain.Medicine{}, err
	}
	if expiry.Valid {
		m.ExpiryDate = expiry.Time.UTC()
	}
	return withStockStatus(m), nil
}

func (s *Store) ListMedicines(ctx context.Context, query string) ([]domain.Medicine, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	args := []any{}
	filter := ""
	if needle != "" {
		args = append(args, containsPattern(needle))
		filter = `WHERE lower(name) LIKE $1 OR lower(category) LIKE $1 OR lower(manufacturer) LIKE $1`
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+medicineColumns+` FROM medicines `+filter+` ORDER BY category, name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Medicine, 0, 64)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) GetMedicine(ctx context.Context, id string) (*domain.Medicine, error) {
	m, err := scanMedicine(s.db.QueryRowContext(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *Store) GetMedicinesByIDs(ctx context.Context, ids []string) (map[string]domain.Medicine, error) {
	result := make(map[string]domain.Medicine, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		result[m.ID] = m
	}
	return result, rows.Err()
}

func (s *Store) CreateMedicine(ctx context.Context, medicine domain.Medicine) (*domain.Medicine, error) {
	if medicine.Name == "" || medicine.Category == "" || medicine.PriceCents < 0 || medicine.Stock < 0 {
		return nil, store.ErrInvalidRecord
	}
	if medicine.ID == "" {
		medicine.ID = xid.New("med")
	}
	now := time.Now().UTC()
	if medicine.CreatedAt.IsZero() {
		medicine.CreatedAt = now
	}
	medicine.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO medicines (id, name, category, manufacturer, price_cents, stock, min_stock,
			expiry_date, batch_number, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, medicine.ID, medicine.Name, medicine.Category, medicine.Manufacturer, medicine.PriceCents,
		medicine.Stock, medicine.MinStock, nullZeroDate(medicine.ExpiryDate), medicine.BatchNumber,
		medicine.Description, medicine.CreatedAt, medicine.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	out := withStockStatus(medicine)
	return &out, nil
}

// UpdateMedicine rewrites catalogue fields. Stock is left to ApplyStockChanges.
func (s *Store) UpdateMedicine(ctx context.Context, medicine domain.Medicine) (*domain.Medicine, error) {
	if medicine.Name == "" || medicine.Category == "" || medicine.PriceCents < 0 {
		return nil, store.ErrInvalidRecord
	}
	if medicine.UpdatedAt.IsZero() {
		medicine.UpdatedAt = time.Now().UTC()
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE medicines
		SET name = $2, category = $3, manufacturer = $4, price_cents = $5, min_stock = $6,
			expiry_date = $7, batch_number = $8, description = $9, updated_at = $10
		WHERE id = $1
		RETURNING `+medicineColumns,
		medicine.ID, medicine.Name, medicine.Category, medicine.Manufacturer, medicine.PriceCents,
		medicine.MinStock, nullZeroDate(medicine.ExpiryDate), medicine.BatchNumber,
		medicine.Description, medicine.UpdatedAt)
	updated, err := scanMedicine(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, notFound(err)
	}
	return &updated, nil
}

// DeleteMedicine refuses while a Pending or Completed sale still holds the
// medicine, since refunding or cancelling that sale restocks it.
func (s *Store) DeleteMedicine(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var open bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM sale_items si
			JOIN sales sa ON sa.id = si.sale_id
			WHERE si.medicine_id = $1 AND sa.status IN ($2, $3)
		)
	`, id, string(workflow.SalePending), string(workflow.SaleCompleted)).Scan(&open); err != nil {
		return err
	}
	if open {
		return store.ErrInUse
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) ApplyStockChanges(ctx context.Context, changes []domain.StockChange) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := stockTx(ctx, tx, changes, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

const customerColumns = `id, name, email, phone, address, date_of_birth, gender, emergency_contact,
	allergies, registration_date, total_purchases_cents, status`

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.DateOfBirth, &c.Gender, &c.EmergencyContact,
		&c.Allergies, &c.RegistrationDate, &c.TotalPurchasesCents, &c.Status,
	); err != nil {
		return domain.Customer{}, err
	}
	c.RegistrationDate = c.RegistrationDate.UTC()
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	args := []any{}
	filter := ""
	if needle != "" {
		args = append(args, containsPattern(needle))
		filter = `WHERE lower(name) LIKE $1 OR lower(email) LIKE $1 OR lower(phone) LIKE $1`
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers `+filter+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Customer, 0, 64)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" || customer.Email == "" || customer.Phone == "" {
		return nil, store.ErrInvalidRecord
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.RegistrationDate.IsZero() {
		customer.RegistrationDate = time.Now().UTC()
	}
	customer.RegistrationDate = dateUTC(customer.RegistrationDate)
	if customer.Status == "" {
		customer.Status = domain.StatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, phone, address, date_of_birth, gender, emergency_contact,
			allergies, registration_date, total_purchases_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, customer.ID, customer.Name, customer.Email, customer.Phone, customer.Address, customer.DateOfBirth,
		customer.Gender, customer.EmergencyContact, customer.Allergies, customer.RegistrationDate,
		customer.TotalPurchasesCents, customer.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	out := customer
	return &out, nil
}

// UpdateCustomer keeps the purchase total and registration date as stored.
func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" || customer.Email == "" || customer.Phone == "" {
		return nil, store.ErrInvalidRecord
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, email = $3, phone = $4, address = $5, date_of_birth = $6, gender = $7,
			emergency_contact = $8, allergies = $9, status = $10
		WHERE id = $1
		RETURNING `+customerColumns,
		customer.ID, customer.Name, customer.Email, customer.Phone, customer.Address, customer.DateOfBirth,
		customer.Gender, customer.EmergencyContact, customer.Allergies, customer.Status)
	updated, err := scanCustomer(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, notFound(err)
	}
	return &updated, nil
}

// containsPattern builds a LIKE pattern matching needle literally anywhere.
func containsPattern(needle string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(needle)
	return "%" + escaped + "%"
}

func creditCustomerTx(ctx context.Context, tx *sql.Tx, customerID string, deltaCents int64) error {
	if customerID == "" || deltaCents == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE customers
		SET total_purchases_cents = GREATEST(total_purchases_cents + $2, 0)
		WHERE id = $1
	`, customerID, deltaCents)
	return err
}
