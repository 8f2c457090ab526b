package store

import (
	"context"
	"errors"
	"time"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/workflow"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrDuplicate         = errors.New("duplicate record")
	// ErrInUse means an open sale still references the record.
	ErrInUse = errors.New("record in use")
	// ErrStaleStatus means the record changed status since it was read.
	ErrStaleStatus = errors.New("status changed concurrently")
)

// Period bounds a listing by creation time. Zero values are open ends.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !t.Before(p.To) {
		return false
	}
	return true
}

// SaleDate is the instant a sale is reported under. A Completed sale counts
// from when it completed, which for a held sale is its last update.
func SaleDate(sale domain.Sale) time.Time {
	if sale.Status == workflow.SaleCompleted {
		return sale.UpdatedAt
	}
	return sale.CreatedAt
}

// StockReceipt adds Quantity units to the purchase item at Index.
type StockReceipt struct {
	Index    int
	Quantity int
}

type Repository interface {
	ListMedicines(ctx context.Context, query string) ([]domain.Medicine, error)
	GetMedicine(ctx context.Context, id string) (*domain.Medicine, error)
	GetMedicinesByIDs(ctx context.Context, ids []string) (map[string]domain.Medicine, error)
	CreateMedicine(ctx context.Context, medicine domain.Medicine) (*domain.Medicine, error)
	UpdateMedicine(ctx context.Context, medicine domain.Medicine) (*domain.Medicine, error)
	DeleteMedicine(ctx context.Context, id string) error
	ApplyStockChanges(ctx context.Context, changes []domain.StockChange) error

	ListCustomers(ctx context.Context, query string) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	CreatePrescription(ctx context.Context, prescription domain.Prescription) (*domain.Prescription, error)
	GetPrescription(ctx context.Context, id string) (*domain.Prescription, error)
	ListPrescriptions(ctx context.Context, status string, limit int) ([]domain.Prescription, error)
	UpdatePrescriptionStatus(ctx context.Context, id string, from workflow.PrescriptionStatus, to workflow.PrescriptionStatus, at time.Time) (*domain.Prescription, error)

	// CreateSale reserves stock for every item and credits the customer when
	// the sale is Completed, all or nothing.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error)
	// ListSales matches period against SaleDate, newest created first.
	ListSales(ctx context.Context, status string, period Period, limit int) ([]domain.Sale, error)
	// TransitionSale moves a sale between statuses and applies the stock and
	// customer side effects of that move.
	TransitionSale(ctx context.Context, id string, from workflow.SaleStatus, to workflow.SaleStatus, at time.Time) (*domain.Sale, error)

	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	UpdateSupplierStatus(ctx context.Context, id string, status string) (*domain.Supplier, error)

	// CreatePurchase also bumps the linked supplier's order counters.
	CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, id string) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, status string, limit int) ([]domain.Purchase, error)
	// ReceivePurchase records receipts, adds received units to linked
	// medicines and moves the purchase to the next status.
	ReceivePurchase(ctx context.Context, id string, from workflow.PurchaseStatus, to workflow.PurchaseStatus, receipts []StockReceipt, at time.Time) (*domain.Purchase, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, period Period) ([]domain.Expense, error)
	CreateCashFlow(ctx context.Context, flow domain.CashFlow) (*domain.CashFlow, error)
	ListCashFlows(ctx context.Context, period Period) ([]domain.CashFlow, error)

	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, period Period, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, email string, password string) error
}
