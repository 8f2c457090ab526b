package domain

import (
	"time"

	"pharmacare/backend/internal/billing"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/stocklevel"
	"pharmacare/backend/internal/workflow"
)

// DateLayout is the wire format for calendar dates in requests.
const DateLayout = "2006-01-02"

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

const (
	PaymentCash      = "Cash"
	PaymentCard      = "Card"
	PaymentInsurance = "Insurance"
)

const (
	ExpensePaymentCash         = "Cash"
	ExpensePaymentBankTransfer = "Bank Transfer"
	ExpensePaymentCreditCard   = "Credit Card"
	ExpensePaymentCheque       = "Cheque"
)

const (
	CashIn  = "Cash In"
	CashOut = "Cash Out"
)

type Medicine struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Manufacturer string            `json:"manufacturer"`
	PriceCents   int64             `json:"price_cents"`
	Stock        int               `json:"stock"`
	MinStock     int               `json:"min_stock"`
	ExpiryDate   time.Time         `json:"expiry_date"`
	BatchNumber  string            `json:"batch_number"`
	Description  string            `json:"description"`
	StockStatus  stocklevel.Status `json:"stock_status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type MedicineCreateRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	Manufacturer string `json:"manufacturer"`
	PriceCents   int64  `json:"price_cents"`
	Stock        int    `json:"stock"`
	MinStock     int    `json:"min_stock"`
	ExpiryDate   string `json:"expiry_date"`
	BatchNumber  string `json:"batch_number"`
	Description  string `json:"description"`
}

type MedicineUpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	Category     *string `json:"category,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
	PriceCents   *int64  `json:"price_cents,omitempty"`
	MinStock     *int    `json:"min_stock,omitempty"`
	ExpiryDate   *string `json:"expiry_date,omitempty"`
	BatchNumber  *string `json:"batch_number,omitempty"`
	Description  *string `json:"description,omitempty"`
}

type StockAdjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// StockChange is a signed quantity change applied to one medicine.
type StockChange struct {
	MedicineID string
	Delta      int
}

type Customer struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone"`
	Address             string    `json:"address"`
	DateOfBirth         string    `json:"date_of_birth"`
	Gender              string    `json:"gender"`
	EmergencyContact    string    `json:"emergency_contact"`
	Allergies           string    `json:"allergies"`
	RegistrationDate    time.Time `json:"registration_date"`
	TotalPurchasesCents int64     `json:"total_purchases_cents"`
	Status              string    `json:"status"`
}

type CustomerCreateRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	DateOfBirth      string `json:"date_of_birth"`
	Gender           string `json:"gender"`
	EmergencyContact string `json:"emergency_contact"`
	Allergies        string `json:"allergies"`
}

type CustomerUpdateRequest struct {
	Name             *string `json:"name,omitempty"`
	Email            *string `json:"email,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Address          *string `json:"address,omitempty"`
	EmergencyContact *string `json:"emergency_contact,omitempty"`
	Allergies        *string `json:"allergies,omitempty"`
	Status           *string `json:"status,omitempty"`
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
	Quantity  int    `json:"quantity"`
}

type Prescription struct {
	ID                 string                      `json:"id"`
	PrescriptionNumber string                      `json:"prescription_number"`
	PatientName        string                      `json:"patient_name"`
	DoctorName         string                      `json:"doctor_name"`
	DateIssued         time.Time                   `json:"date_issued"`
	Medications        []Medication                `json:"medications"`
	Instructions       string                      `json:"instructions"`
	TotalAmountCents   int64                       `json:"total_amount_cents"`
	Insurance          string                      `json:"insurance"`
	Status             workflow.PrescriptionStatus `json:"status"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

type PrescriptionCreateRequest struct {
	PrescriptionNumber string       `json:"prescription_number"`
	PatientName        string       `json:"patient_name"`
	DoctorName         string       `json:"doctor_name"`
	DateIssued         string       `json:"date_issued"`
	Medications        []Medication `json:"medications"`
	Instructions       string       `json:"instructions"`
	TotalAmountCents   int64        `json:"total_amount_cents"`
	Insurance          string       `json:"insurance"`
}

type PrescriptionStatusRequest struct {
	Status workflow.PrescriptionStatus `json:"status"`
}

type SaleItem struct {
	MedicineID     string `json:"medicine_id"`
	MedicineName   string `json:"medicine_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type Sale struct {
	ID                 string              `json:"id"`
	SaleNumber         string              `json:"sale_number"`
	IdempotencyKey     string              `json:"idempotency_key"`
	CustomerID         string              `json:"customer_id,omitempty"`
	CustomerName       string              `json:"customer_name"`
	CustomerPhone      string              `json:"customer_phone"`
	Items              []SaleItem          `json:"items"`
	SubtotalCents      int64               `json:"subtotal_cents"`
	TaxCents           int64               `json:"tax_cents"`
	DiscountCents      int64               `json:"discount_cents"`
	TotalCents         int64               `json:"total_cents"`
	PaymentMethod      string              `json:"payment_method"`
	PrescriptionNumber string              `json:"prescription_number,omitempty"`
	Status             workflow.SaleStatus `json:"status"`
	CreatedBy          string              `json:"created_by"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type SaleItemRequest struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
}

type SaleCreateRequest struct {
	IdempotencyKey     string            `json:"idempotency_key"`
	CustomerID         string            `json:"customer_id"`
	CustomerName       string            `json:"customer_name"`
	CustomerPhone      string            `json:"customer_phone"`
	Items              []SaleItemRequest `json:"items"`
	DiscountCents      int64             `json:"discount_cents"`
	PaymentMethod      string            `json:"payment_method"`
	PrescriptionNumber string            `json:"prescription_number"`
	Hold               bool              `json:"hold"`
	ManagerPIN         string            `json:"manager_pin"`
}

type SaleQuoteRequest struct {
	Items         []SaleItemRequest `json:"items"`
	DiscountCents int64             `json:"discount_cents"`
}

type SaleQuoteResponse struct {
	Items          []SaleItem     `json:"items"`
	Totals         billing.Totals `json:"totals"`
	TaxRatePercent float64        `json:"tax_rate_percent"`
}

type SaleResponse struct {
	Sale      Sale `json:"sale"`
	Duplicate bool `json:"duplicate"`
}

type SaleRefundRequest struct {
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin"`
}

type Supplier struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address"`
	ContactPerson string     `json:"contact_person"`
	PaymentTerms  string     `json:"payment_terms"`
	Status        string     `json:"status"`
	TotalOrders   int        `json:"total_orders"`
	LastOrder     *time.Time `json:"last_order,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type SupplierCreateRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	ContactPerson string `json:"contact_person"`
	PaymentTerms  string `json:"payment_terms"`
}

type SupplierStatusRequest struct {
	Status string `json:"status"`
}

type PurchaseItem struct {
	MedicineID     string `json:"medicine_id,omitempty"`
	MedicineName   string `json:"medicine_name"`
	Quantity       int    `json:"quantity"`
	ReceivedQty    int    `json:"received_qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	BatchNumber    string `json:"batch_number"`
	ExpiryDate     string `json:"expiry_date"`
}

type Purchase struct {
	ID               string                  `json:"id"`
	PurchaseOrderID  string                  `json:"purchase_order_id"`
	SupplierID       string                  `json:"supplier_id"`
	SupplierName     string                  `json:"supplier_name"`
	OrderDate        time.Time               `json:"order_date"`
	ExpectedDelivery *time.Time              `json:"expected_delivery,omitempty"`
	Items            []PurchaseItem          `json:"items"`
	TotalAmountCents int64                   `json:"total_amount_cents"`
	Status           workflow.PurchaseStatus `json:"status"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

type PurchaseCreateRequest struct {
	PurchaseOrderID  string         `json:"purchase_order_id"`
	SupplierID       string         `json:"supplier_id"`
	SupplierName     string         `json:"supplier_name"`
	OrderDate        string         `json:"order_date"`
	ExpectedDelivery string         `json:"expected_delivery"`
	Items            []PurchaseItem `json:"items"`
}

// ReceivedLine reports the quantity received for the item at Index.
type ReceivedLine struct {
	Index    int `json:"index"`
	Quantity int `json:"quantity"`
}

type PurchaseStatusRequest struct {
	Status   workflow.PurchaseStatus `json:"status"`
	Received []ReceivedLine          `json:"received,omitempty"`
}

type Expense struct {
	ID            string    `json:"id"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	AmountCents   int64     `json:"amount_cents"`
	Date          time.Time `json:"date"`
	PaymentMethod string    `json:"payment_method"`
	Receipt       string    `json:"receipt"`
	CreatedBy     string    `json:"created_by"`
}

type ExpenseCreateRequest struct {
	Category      string `json:"category"`
	Description   string `json:"description"`
	AmountCents   int64  `json:"amount_cents"`
	Date          string `json:"date"`
	PaymentMethod string `json:"payment_method"`
	Receipt       string `json:"receipt"`
}

type CashFlow struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Reference   string    `json:"reference"`
	CreatedBy   string    `json:"created_by"`
}

type CashFlowCreateRequest struct {
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Reference   string `json:"reference"`
}

type FinanceSummary struct {
	From               string `json:"from"`
	To                 string `json:"to"`
	TotalExpensesCents int64  `json:"total_expenses_cents"`
	CashInCents        int64  `json:"cash_in_cents"`
	CashOutCents       int64  `json:"cash_out_cents"`
	NetCashCents       int64  `json:"net_cash_cents"`
}

type PharmacyProfile struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	License string `json:"license"`
}

type Settings struct {
	Pharmacy              PharmacyProfile `json:"pharmacy"`
	Currency              string          `json:"currency"`
	TaxRatePercent        float64         `json:"tax_rate_percent"`
	DiscountLimitPercent  float64         `json:"discount_limit_percent"`
	Rounding              string          `json:"rounding"`
	LowStockThreshold     int             `json:"low_stock_threshold"`
	ExpiryAlertDays       int             `json:"expiry_alert_days"`
	InvoicePrefix         string          `json:"invoice_prefix"`
	ReceiptPrefix         string          `json:"receipt_prefix"`
	InvoiceFooter         string          `json:"invoice_footer"`
	SessionTimeoutMinutes int             `json:"session_timeout_minutes"`
	AuditLogEnabled       bool            `json:"audit_log_enabled"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// DefaultSettings mirrors the values a fresh pharmacy starts with.
func DefaultSettings() Settings {
	return Settings{
		Pharmacy: PharmacyProfile{
			Name:    "PharmaCare Pharmacy",
			Address: "123 Health Street, Medical District",
			Phone:   "+1 (555) 123-4567",
			Email:   "info@pharmacare.com",
			License: "PH-2024-001",
		},
		Currency:              "USD",
		TaxRatePercent:        8,
		DiscountLimitPercent:  10,
		Rounding:              "nearest",
		LowStockThreshold:     10,
		ExpiryAlertDays:       30,
		InvoicePrefix:         "INV",
		ReceiptPrefix:         "REC",
		InvoiceFooter:         "Thank you for choosing PharmaCare!",
		SessionTimeoutMinutes: 30,
		AuditLogEnabled:       true,
	}
}

type SettingsUpdateRequest struct {
	Pharmacy              *PharmacyProfile `json:"pharmacy,omitempty"`
	Currency              *string          `json:"currency,omitempty"`
	TaxRatePercent        *float64         `json:"tax_rate_percent,omitempty"`
	DiscountLimitPercent  *float64         `json:"discount_limit_percent,omitempty"`
	LowStockThreshold     *int             `json:"low_stock_threshold,omitempty"`
	ExpiryAlertDays       *int             `json:"expiry_alert_days,omitempty"`
	InvoicePrefix         *string          `json:"invoice_prefix,omitempty"`
	ReceiptPrefix         *string          `json:"receipt_prefix,omitempty"`
	InvoiceFooter         *string          `json:"invoice_footer,omitempty"`
	SessionTimeoutMinutes *int             `json:"session_timeout_minutes,omitempty"`
	AuditLogEnabled       *bool            `json:"audit_log_enabled,omitempty"`
}

// UserAccount is the persistence model for login credentials.
type UserAccount struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	FullName  string       `json:"full_name"`
	Password  string       `json:"-"`
	Role      session.Role `json:"role"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
}

type UserCreateRequest struct {
	Email    string       `json:"email"`
	FullName string       `json:"full_name"`
	Password string       `json:"password"`
	Role     session.Role `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string            `json:"access_token"`
	ExpiresAt   string            `json:"expires_at"`
	Session     session.Session   `json:"session"`
	Sections    []session.Section `json:"sections"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	ActorEmail string    `json:"actor_email"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

type DashboardStats struct {
	TotalMedicines       int   `json:"total_medicines"`
	LowStockCount        int   `json:"low_stock_count"`
	ExpiringCount        int   `json:"expiring_count"`
	TodaySalesCount      int   `json:"today_sales_count"`
	TodayRevenueCents    int64 `json:"today_revenue_cents"`
	PendingPrescriptions int   `json:"pending_prescriptions"`
	ActiveCustomers      int   `json:"active_customers"`
	MonthlyExpensesCents int64 `json:"monthly_expenses_cents"`
}

type Dashboard struct {
	Date             string         `json:"date"`
	Stats            DashboardStats `json:"stats"`
	RecentActivities []AuditLog     `json:"recent_activities"`
	LowStockItems    []Medicine     `json:"low_stock_items"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

type DailySales struct {
	Date          string `json:"date"`
	Transactions  int    `json:"transactions"`
	RevenueCents  int64  `json:"revenue_cents"`
	TaxCents      int64  `json:"tax_cents"`
	DiscountCents int64  `json:"discount_cents"`
}

type SalesReport struct {
	From             string           `json:"from"`
	To               string           `json:"to"`
	Transactions     int              `json:"transactions"`
	RevenueCents     int64            `json:"revenue_cents"`
	TaxCents         int64            `json:"tax_cents"`
	DiscountCents    int64            `json:"discount_cents"`
	AverageSaleCents int64            `json:"average_sale_cents"`
	RefundedCount    int              `json:"refunded_count"`
	ByPaymentMethod  map[string]int64 `json:"by_payment_method"`
	Days             []DailySales     `json:"days"`
}

type CategoryBreakdown struct {
	Category     string `json:"category"`
	Medicines    int    `json:"medicines"`
	UnitsSold    int    `json:"units_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

type TopMedicine struct {
	MedicineID   string `json:"medicine_id"`
	Name         string `json:"name"`
	UnitsSold    int    `json:"units_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

// StockAlert is one medicine flagged by the scheduled stock scan.
type StockAlert struct {
	MedicineID string            `json:"medicine_id"`
	Name       string            `json:"name"`
	Stock      int               `json:"stock"`
	MinStock   int               `json:"min_stock"`
	Status     stocklevel.Status `json:"status"`
	ExpiryDate time.Time         `json:"expiry_date"`
	Reason     string            `json:"reason"`
}
