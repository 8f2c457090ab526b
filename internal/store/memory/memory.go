package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/stocklevel"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/workflow"
	"pharmacare/backend/internal/xid"
)

type Store struct {
	mu            sync.RWMutex
	medicines     map[string]domain.Medicine
	customers     map[string]domain.Customer
	prescriptions map[string]domain.Prescription
	sales         map[string]domain.Sale
	salesByIdem   map[string]string
	saleSeq       int
	suppliers     map[string]domain.Supplier
	purchases     map[string]domain.Purchase
	expenses      []domain.Expense
	cashFlows     []domain.CashFlow
	settings      domain.Settings
	auditLogs     []domain.AuditLog
	usersByEmail  map[string]domain.UserAccount
}

// New returns an empty store with default settings.
func New() *Store {
	return &Store{
		medicines:     make(map[string]domain.Medicine),
		customers:     make(map[string]domain.Customer),
		prescriptions: make(map[string]domain.Prescription),
		sales:         make(map[string]domain.Sale),
		salesByIdem:   make(map[string]string),
		suppliers:     make(map[string]domain.Supplier),
		purchases:     make(map[string]domain.Purchase),
		settings:      domain.DefaultSettings(),
		usersByEmail:  make(map[string]domain.UserAccount),
	}
}

func (s *Store) ListMedicines(_ context.Context, query string) ([]domain.Medicine, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Medicine, 0, len(s.medicines))
	for _, m := range s.medicines {
		if needle != "" && !matchesAny(needle, m.Name, m.Category, m.Manufacturer) {
			continue
		}
		result = append(result, withStockStatus(m))
	}
	slices.SortFunc(result, func(a, b domain.Medicine) int {
		if c := cmpString(a.Category, b.Category); c != 0 {
			return c
		}
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) GetMedicine(_ context.Context, id string) (*domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.medicines[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := withStockStatus(m)
	return &out, nil
}

func (s *Store) GetMedicinesByIDs(_ context.Context, ids []string) (map[string]domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Medicine, len(ids))
	for _, id := range ids {
		if m, ok := s.medicines[id]; ok {
			result[id] = withStockStatus(m)
		}
	}
	return result, nil
}

func (s *Store) CreateMedicine(_ context.Context, medicine domain.Medicine) (*domain.Medicine, error) {
	if medicine.Name == "" || medicine.Category == "" || medicine.PriceCents < 0 || medicine.Stock < 0 {
		return nil, store.ErrInvalidRecord
	}
	if medicine.ID == "" {
		medicine.ID = xid.New("med")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.medicines[medicine.ID]; exists {
		return nil, store.ErrDuplicate
	}
	for _, existing := range s.medicines {
		if strings.EqualFold(existing.Name, medicine.Name) && existing.BatchNumber == medicine.BatchNumber {
			return nil, store.ErrDuplicate
		}
	}
	s.medicines[medicine.ID] = medicine
	out := withStockStatus(medicine)
	return &out, nil
}

func (s *Store) UpdateMedicine(_ context.Context, medicine domain.Medicine) (*domain.Medicine, error) {
	if medicine.Name == "" || medicine.Category == "" || medicine.PriceCents < 0 {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.medicines[medicine.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	// Stock moves only through ApplyStockChanges.
	medicine.Stock = existing.Stock
	medicine.CreatedAt = existing.CreatedAt
	s.medicines[medicine.ID] = medicine
	out := withStockStatus(medicine)
	return &out, nil
}

func (s *Store) DeleteMedicine(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.medicines[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		if sale.Status != workflow.SalePending && sale.Status != workflow.SaleCompleted {
			continue
		}
		for _, item := range sale.Items {
			if item.MedicineID == id {
				return store.ErrInUse
			}
		}
	}
	delete(s.medicines, id)
	return nil
}

func (s *Store) ApplyStockChanges(_ context.Context, changes []domain.StockChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyStockLocked(changes, time.Now().UTC())
}

// applyStockLocked validates every change before writing any of them.
func (s *Store) applyStockLocked(changes []domain.StockChange, at time.Time) error {
	next := make(map[string]int, len(changes))
	for _, change := range changes {
		current, seen := next[change.MedicineID]
		if !seen {
			m, ok := s.medicines[change.MedicineID]
			if !ok {
				return store.ErrNotFound
			}
			current = m.Stock
		}
		current += change.Delta
		if current < 0 {
			return store.ErrInsufficientStock
		}
		next[change.MedicineID] = current
	}
	for id, qty := range next {
		m := s.medicines[id]
		m.Stock = qty
		m.UpdatedAt = at
		s.medicines[id] = m
	}
	return nil
}

func (s *Store) ListCustomers(_ context.Context, query string) ([]domain.Customer, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if needle != "" && !matchesAny(needle, c.Name, c.Email, c.Phone) {
			continue
		}
		result = append(result, c)
	}
	slices.SortFunc(result, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" || customer.Email == "" || customer.Phone == "" {
		return nil, store.ErrInvalidRecord
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.customers {
		if strings.EqualFold(existing.Email, customer.Email) {
			return nil, store.ErrDuplicate
		}
	}
	s.customers[customer.ID] = customer
	out := customer
	return &out, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" || customer.Email == "" || customer.Phone == "" {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for id, other := range s.customers {
		if id != customer.ID && strings.EqualFold(other.Email, customer.Email) {
			return nil, store.ErrDuplicate
		}
	}
	customer.TotalPurchasesCents = existing.TotalPurchasesCents
	customer.RegistrationDate = existing.RegistrationDate
	s.customers[customer.ID] = customer
	out := customer
	return &out, nil
}

func (s *Store) CreatePrescription(_ context.Context, prescription domain.Prescription) (*domain.Prescription, error) {
	if prescription.PrescriptionNumber == "" || prescription.PatientName == "" || prescription.DoctorName == "" {
		return nil, store.ErrInvalidRecord
	}
	if prescription.ID == "" {
		prescription.ID = xid.New("rx")
	}
	if prescription.Status == "" {
		prescription.Status = workflow.Prescriptions.Initial()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.prescriptions {
		if existing.PrescriptionNumber == prescription.PrescriptionNumber {
			return nil, store.ErrDuplicate
		}
	}
	s.prescriptions[prescription.ID] = clonePrescription(prescription)
	out := clonePrescription(prescription)
	return &out, nil
}

func (s *Store) GetPrescription(_ context.Context, id string) (*domain.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prescriptions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := clonePrescription(p)
	return &out, nil
}

func (s *Store) ListPrescriptions(_ context.Context, status string, limit int) ([]domain.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Prescription, 0, len(s.prescriptions))
	for _, p := range s.prescriptions {
		if status != "" && string(p.Status) != status {
			continue
		}
		result = append(result, clonePrescription(p))
	}
	slices.SortFunc(result, func(a, b domain.Prescription) int {
		return b.DateIssued.Compare(a.DateIssued)
	})
	return truncate(result, limit), nil
}

func (s *Store) UpdatePrescriptionStatus(_ context.Context, id string, from workflow.PrescriptionStatus, to workflow.PrescriptionStatus, at time.Time) (*domain.Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prescriptions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Status != from {
		return nil, store.ErrStaleStatus
	}
	p.Status = to
	p.UpdatedAt = at
	s.prescriptions[id] = p
	out := clonePrescription(p)
	return &out, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.CustomerName == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.IdempotencyKey != "" {
		if _, exists := s.salesByIdem[sale.IdempotencyKey]; exists {
			return nil, store.ErrDuplicate
		}
	}
	if sale.CustomerID != "" {
		if _, ok := s.customers[sale.CustomerID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	if err := s.applyStockLocked(saleStockChanges(sale.Items, -1), sale.CreatedAt); err != nil {
		return nil, err
	}
	if sale.Status == workflow.SaleCompleted {
		s.creditCustomerLocked(sale.CustomerID, sale.TotalCents)
	}

	s.saleSeq++
	sale.SaleNumber = xid.Sequence("SAL", s.saleSeq)
	sale.UpdatedAt = sale.CreatedAt
	s.sales[sale.ID] = cloneSale(sale)
	if sale.IdempotencyKey != "" {
		s.salesByIdem[sale.IdempotencyKey] = sale.ID
	}
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) FindSaleByIdempotency(_ context.Context, key string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.salesByIdem[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneSale(s.sales[id])
	return &out, nil
}

func (s *Store) ListSales(_ context.Context, status string, period store.Period, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if status != "" && string(sale.Status) != status {
			continue
		}
		if !period.Contains(store.SaleDate(sale)) {
			continue
		}
		result = append(result, cloneSale(sale))
	}
	slices.SortFunc(result, func(a, b domain.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return truncate(result, limit), nil
}

func (s *Store) TransitionSale(_ context.Context, id string, from workflow.SaleStatus, to workflow.SaleStatus, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != from {
		return nil, store.ErrStaleStatus
	}

	switch {
	case to == workflow.SaleRefunded || to == workflow.SaleCancelled:
		if err := s.applyStockLocked(saleStockChanges(sale.Items, 1), at); err != nil {
			return nil, err
		}
		if from == workflow.SaleCompleted {
			s.creditCustomerLocked(sale.CustomerID, -sale.TotalCents)
		}
	case to == workflow.SaleCompleted:
		s.creditCustomerLocked(sale.CustomerID, sale.TotalCents)
	}

	sale.Status = to
	sale.UpdatedAt = at
	s.sales[id] = sale
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) creditCustomerLocked(customerID string, deltaCents int64) {
	if customerID == "" {
		return
	}
	c, ok := s.customers[customerID]
	if !ok {
		return
	}
	c.TotalPurchasesCents += deltaCents
	if c.TotalPurchasesCents < 0 {
		c.TotalPurchasesCents = 0
	}
	s.customers[customerID] = c
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalidRecord
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.Status == "" {
		supplier.Status = domain.StatusActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.suppliers {
		if strings.EqualFold(existing.Name, supplier.Name) {
			return nil, store.ErrDuplicate
		}
	}
	s.suppliers[supplier.ID] = supplier
	out := supplier
	return &out, nil
}

func (s *Store) GetSupplier(_ context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	supplier, ok := s.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &supplier, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Supplier, 0, len(s.suppliers))
	for _, supplier := range s.suppliers {
		result = append(result, supplier)
	}
	slices.SortFunc(result, func(a, b domain.Supplier) int {
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) UpdateSupplierStatus(_ context.Context, id string, status string) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	supplier, ok := s.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	supplier.Status = status
	s.suppliers[id] = supplier
	return &supplier, nil
}

func (s *Store) CreatePurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if purchase.PurchaseOrderID == "" || purchase.SupplierName == "" {
		return nil, store.ErrInvalidRecord
	}
	if purchase.ID == "" {
		purchase.ID = xid.New("po")
	}
	if purchase.Status == "" {
		purchase.Status = workflow.Purchases.Initial()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.purchases {
		if existing.PurchaseOrderID == purchase.PurchaseOrderID {
			return nil, store.ErrDuplicate
		}
	}
	if purchase.SupplierID != "" {
		supplier, ok := s.suppliers[purchase.SupplierID]
		if !ok {
			return nil, store.ErrNotFound
		}
		supplier.TotalOrders++
		orderDate := purchase.OrderDate
		supplier.LastOrder = &orderDate
		s.suppliers[supplier.ID] = supplier
	}

	s.purchases[purchase.ID] = clonePurchase(purchase)
	out := clonePurchase(purchase)
	return &out, nil
}

func (s *Store) GetPurchase(_ context.Context, id string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := clonePurchase(purchase)
	return &out, nil
}

func (s *Store) ListPurchases(_ context.Context, status string, limit int) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Purchase, 0, len(s.purchases))
	for _, purchase := range s.purchases {
		if status != "" && string(purchase.Status) != status {
			continue
		}
		result = append(result, clonePurchase(purchase))
	}
	slices.SortFunc(result, func(a, b domain.Purchase) int {
		return b.OrderDate.Compare(a.OrderDate)
	})
	return truncate(result, limit), nil
}

func (s *Store) ReceivePurchase(_ context.Context, id string, from workflow.PurchaseStatus, to workflow.PurchaseStatus, receipts []store.StockReceipt, at time.Time) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if purchase.Status != from {
		return nil, store.ErrStaleStatus
	}

	updated := clonePurchase(purchase)
	changes := make([]domain.StockChange, 0, len(receipts))
	for _, receipt := range receipts {
		if receipt.Index < 0 || receipt.Index >= len(updated.Items) || receipt.Quantity < 0 {
			return nil, store.ErrInvalidRecord
		}
		item := &updated.Items[receipt.Index]
		if item.ReceivedQty+receipt.Quantity > item.Quantity {
			return nil, store.ErrInvalidRecord
		}
		item.ReceivedQty += receipt.Quantity
		if item.MedicineID != "" && receipt.Quantity > 0 {
			changes = append(changes, domain.StockChange{MedicineID: item.MedicineID, Delta: receipt.Quantity})
		}
	}
	if err := s.applyStockLocked(changes, at); err != nil {
		return nil, err
	}

	updated.Status = to
	updated.UpdatedAt = at
	s.purchases[id] = updated
	out := clonePurchase(updated)
	return &out, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.Category == "" || expense.Description == "" || expense.AmountCents <= 0 {
		return nil, store.ErrInvalidRecord
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.expenses = append(s.expenses, expense)
	out := expense
	return &out, nil
}

func (s *Store) ListExpenses(_ context.Context, period store.Period) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, len(s.expenses))
	for _, expense := range s.expenses {
		if period.Contains(expense.Date) {
			result = append(result, expense)
		}
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		return b.Date.Compare(a.Date)
	})
	return result, nil
}

func (s *Store) CreateCashFlow(_ context.Context, flow domain.CashFlow) (*domain.CashFlow, error) {
	if (flow.Type != domain.CashIn && flow.Type != domain.CashOut) || flow.AmountCents <= 0 || flow.Description == "" {
		return nil, store.ErrInvalidRecord
	}
	if flow.ID == "" {
		flow.ID = xid.New("cf")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cashFlows = append(s.cashFlows, flow)
	out := flow
	return &out, nil
}

func (s *Store) ListCashFlows(_ context.Context, period store.Period) ([]domain.CashFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CashFlow, 0, len(s.cashFlows))
	for _, flow := range s.cashFlows {
		if period.Contains(flow.Date) {
			result = append(result, flow)
		}
	}
	slices.SortFunc(result, func(a, b domain.CashFlow) int {
		return b.Date.Compare(a.Date)
	})
	return result, nil
}

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, period store.Period, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 32)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if !period.Contains(entry.CreatedAt) {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" || user.Password == "" || !user.Role.Valid() {
		return store.ErrInvalidRecord
	}
	user.Email = email
	if user.ID == "" {
		user.ID = xid.New("usr")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[email]; exists {
		return store.ErrDuplicate
	}
	s.usersByEmail[email] = user
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.UserAccount, 0, len(s.usersByEmail))
	for _, user := range s.usersByEmail {
		result = append(result, user)
	}
	slices.SortFunc(result, func(a, b domain.UserAccount) int {
		return cmpString(a.Email, b.Email)
	})
	return result, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, email string, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByEmail[email]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByEmail[email] = user
	return nil
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

func withStockStatus(m domain.Medicine) domain.Medicine {
	m.StockStatus = stocklevel.Classify(m.Stock, m.MinStock)
	return m
}

func matchesAny(needle string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cloneSale(src domain.Sale) domain.Sale {
	out := src
	out.Items = slices.Clone(src.Items)
	return out
}

func clonePrescription(src domain.Prescription) domain.Prescription {
	out := src
	out.Medications = slices.Clone(src.Medications)
	return out
}

func clonePurchase(src domain.Purchase) domain.Purchase {
	out := src
	out.Items = slices.Clone(src.Items)
	if src.ExpectedDelivery != nil {
		expected := *src.ExpectedDelivery
		out.ExpectedDelivery = &expected
	}
	return out
}
