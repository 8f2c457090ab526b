package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/workflow"
	"pharmacare/backend/internal/xid"
)

const supplierColumns = `id, name, email, phone, address, contact_person, payment_terms, status,
	total_orders, last_order, created_at`

func scanSupplier(row rowScanner) (domain.Supplier, error) {
	var sup domain.Supplier
	var lastOrder sql.NullTime
	if err := row.Scan(
		&sup.ID, &sup.Name, &sup.Email, &sup.Phone, &sup.Address, &sup.ContactPerson, &sup.PaymentTerms,
		&sup.Status, &sup.TotalOrders, &lastOrder, &sup.CreatedAt,
	); err != nil {
		return domain.Supplier{}, err
	}
	sup.LastOrder = timePtr(lastOrder)
	return sup, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalidRecord
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.Status == "" {
		supplier.Status = domain.StatusActive
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, email, phone, address, contact_person, payment_terms, status,
			total_orders, last_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, supplier.ID, supplier.Name, supplier.Email, supplier.Phone, supplier.Address, supplier.ContactPerson,
		supplier.PaymentTerms, supplier.Status, supplier.TotalOrders, nullDate(supplier.LastOrder), supplier.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	out := supplier
	return &out, nil
}

func (s *Store) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	sup, err := scanSupplier(s.db.QueryRowContext(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &sup, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sup)
	}
	return result, rows.Err()
}

func (s *Store) UpdateSupplierStatus(ctx context.Context, id string, status string) (*domain.Supplier, error) {
	sup, err := scanSupplier(s.db.QueryRowContext(ctx, `
		UPDATE suppliers SET status = $2 WHERE id = $1
		RETURNING `+supplierColumns, id, status))
	if err != nil {
		return nil, notFound(err)
	}
	return &sup, nil
}

const purchaseColumns = `id, purchase_order_id, COALESCE(supplier_id, ''), supplier_name, order_date,
	expected_delivery, items, total_amount_cents, status, created_at, updated_at`

func scanPurchase(row rowScanner) (domain.Purchase, error) {
	var p domain.Purchase
	var expected sql.NullTime
	var items []byte
	var status string
	if err := row.Scan(
		&p.ID, &p.PurchaseOrderID, &p.SupplierID, &p.SupplierName, &p.OrderDate,
		&expected, &items, &p.TotalAmountCents, &status, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return domain.Purchase{}, err
	}
	p.OrderDate = p.OrderDate.UTC()
	p.ExpectedDelivery = timePtr(expected)
	p.Status = workflow.PurchaseStatus(status)
	if err := json.Unmarshal(items, &p.Items); err != nil {
		return domain.Purchase{}, err
	}
	return p, nil
}

// CreatePurchase inserts the order and bumps the supplier's order counters in
// one transaction.
func (s *Store) CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if purchase.PurchaseOrderID == "" || purchase.SupplierName == "" {
		return nil, store.ErrInvalidRecord
	}
	if purchase.ID == "" {
		purchase.ID = xid.New("po")
	}
	if purchase.Status == "" {
		purchase.Status = workflow.Purchases.Initial()
	}
	if purchase.Items == nil {
		purchase.Items = []domain.PurchaseItem{}
	}
	now := time.Now().UTC()
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = now
	}
	if purchase.UpdatedAt.IsZero() {
		purchase.UpdatedAt = purchase.CreatedAt
	}
	items, err := json.Marshal(purchase.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, purchase_order_id, supplier_id, supplier_name, order_date, expected_delivery,
			items, total_amount_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, purchase.ID, purchase.PurchaseOrderID, nullIfEmpty(purchase.SupplierID), purchase.SupplierName,
		dateUTC(purchase.OrderDate), nullDate(purchase.ExpectedDelivery), string(items), purchase.TotalAmountCents,
		string(purchase.Status), purchase.CreatedAt, purchase.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, store.ErrDuplicate
		case isForeignKeyViolation(err):
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if purchase.SupplierID != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE suppliers SET total_orders = total_orders + 1, last_order = $2 WHERE id = $1
		`, purchase.SupplierID, dateUTC(purchase.OrderDate)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := purchase
	out.Items = append([]domain.PurchaseItem(nil), purchase.Items...)
	return &out, nil
}

func (s *Store) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	p, err := scanPurchase(s.db.QueryRowContext(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) ListPurchases(ctx context.Context, status string, limit int) ([]domain.Purchase, error) {
	args := []any{}
	filter := ""
	if status != "" {
		args = append(args, status)
		filter = "WHERE status = $1"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		`+filter+`
		ORDER BY order_date DESC, created_at DESC
		`+limitClause(limit), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Purchase, 0, 16)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) ReceivePurchase(ctx context.Context, id string, from workflow.PurchaseStatus, to workflow.PurchaseStatus, receipts []store.StockReceipt, at time.Time) (*domain.Purchase, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	purchase, err := scanPurchase(tx.QueryRowContext(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err)
	}
	if purchase.Status != from {
		return nil, store.ErrStaleStatus
	}

	changes := make([]domain.StockChange, 0, len(receipts))
	for _, receipt := range receipts {
		if receipt.Index < 0 || receipt.Index >= len(purchase.Items) || receipt.Quantity < 0 {
			return nil, store.ErrInvalidRecord
		}
		item := &purchase.Items[receipt.Index]
		if item.ReceivedQty+receipt.Quantity > item.Quantity {
			return nil, store.ErrInvalidRecord
		}
		item.ReceivedQty += receipt.Quantity
		if item.MedicineID != "" && receipt.Quantity > 0 {
			changes = append(changes, domain.StockChange{MedicineID: item.MedicineID, Delta: receipt.Quantity})
		}
	}
	if err := stockTx(ctx, tx, changes, at); err != nil {
		return nil, err
	}

	items, err := json.Marshal(purchase.Items)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE purchases SET items = $2, status = $3, updated_at = $4 WHERE id = $1
	`, id, string(items), string(to), at); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	purchase.Status = to
	purchase.UpdatedAt = at
	return &purchase, nil
}
