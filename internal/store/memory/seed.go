package memory

import (
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/workflow"
	"pharmacare/backend/internal/xid"
)

// Seed identifiers are stable so demo clients and tests can refer to them.
const (
	SeedParacetamolID = "med_001"
	SeedAmoxicillinID = "med_002"
	SeedLisinoprilID  = "med_003"

	SeedCustomerJohnID = "cus_001"
	SeedCustomerJaneID = "cus_002"

	SeedSupplierMedSupplyID = "sup_001"
	SeedSupplierPharmaID    = "sup_002"

	SeedPrescriptionFilledID  = "rx_001"
	SeedPrescriptionPendingID = "rx_002"
	SeedPrescriptionPartialID = "rx_003"

	SeedPurchasePendingID = "po_002"
)

// seedUsers builds the demo accounts. Passwords come from SEED_ADMIN_PASSWORD,
// SEED_PHARMACIST_PASSWORD and SEED_CASHIER_PASSWORD, falling back to dev
// defaults with a warning. Postgres deployments never use these.
func seedUsers(log *zap.Logger, now time.Time) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	pharmacistPwd := envOr("SEED_PHARMACIST_PASSWORD", "pharma123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Warn("using default dev credentials; set SEED_*_PASSWORD to override")
	}

	users := map[string]domain.UserAccount{}
	for i, u := range []struct {
		email    string
		name     string
		password string
		role     session.Role
	}{
		{"admin@pharmacy.com", "Admin User", adminPwd, session.RoleAdmin},
		{"pharmacist@pharmacy.com", "John Pharmacist", pharmacistPwd, session.RolePharmacist},
		{"cashier@pharmacy.com", "Jane Cashier", cashierPwd, session.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("failed to hash seed password", zap.String("email", u.email), zap.Error(err))
		}
		users[u.email] = domain.UserAccount{
			ID:        xid.Sequence("usr_", i+1),
			Email:     u.email,
			FullName:  u.name,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func day(value string) time.Time {
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}

// NewSeeded returns a store holding the demo pharmacy: catalog, customers,
// suppliers, prescriptions, one open purchase order, past expenses and users.
func NewSeeded(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now().UTC()
	s := New()

	for _, m := range []domain.Medicine{
		{ID: SeedParacetamolID, Name: "Paracetamol 500mg", Category: "Pain Relief", Manufacturer: "PharmaCorp", PriceCents: 1250, Stock: 150, MinStock: 20, ExpiryDate: day("2027-12-31"), BatchNumber: "PAR001", Description: "Pain reliever and fever reducer"},
		{ID: SeedAmoxicillinID, Name: "Amoxicillin 250mg", Category: "Antibiotic", Manufacturer: "MediLab", PriceCents: 2500, Stock: 5, MinStock: 20, ExpiryDate: day("2027-06-15"), BatchNumber: "AMX002", Description: "Antibiotic for bacterial infections"},
		{ID: SeedLisinoprilID, Name: "Lisinopril 10mg", Category: "Cardiovascular", Manufacturer: "HeartCare", PriceCents: 1875, Stock: 80, MinStock: 25, ExpiryDate: day("2028-03-20"), BatchNumber: "LIS003", Description: "ACE inhibitor for high blood pressure"},
	} {
		m.CreatedAt, m.UpdatedAt = now, now
		s.medicines[m.ID] = m
	}

	for _, c := range []domain.Customer{
		{ID: SeedCustomerJohnID, Name: "John Doe", Email: "john.doe@email.com", Phone: "+1 (555) 123-4567", Address: "123 Main St, Anytown, ST 12345", DateOfBirth: "1985-03-15", Gender: "Male", EmergencyContact: "+1 (555) 987-6543", Allergies: "Penicillin", RegistrationDate: day("2023-01-15"), TotalPurchasesCents: 125075, Status: domain.StatusActive},
		{ID: SeedCustomerJaneID, Name: "Jane Smith", Email: "jane.smith@email.com", Phone: "+1 (555) 234-5678", Address: "456 Oak Ave, Somewhere, ST 67890", DateOfBirth: "1990-07-22", Gender: "Female", EmergencyContact: "+1 (555) 876-5432", Allergies: "None", RegistrationDate: day("2023-03-20"), TotalPurchasesCents: 89050, Status: domain.StatusActive},
		{ID: "cus_003", Name: "Robert Johnson", Email: "robert.j@email.com", Phone: "+1 (555) 345-6789", Address: "789 Pine Rd, Elsewhere, ST 13579", DateOfBirth: "1978-11-08", Gender: "Male", EmergencyContact: "+1 (555) 765-4321", Allergies: "Aspirin, Shellfish", RegistrationDate: day("2022-12-10"), TotalPurchasesCents: 215025, Status: domain.StatusActive},
	} {
		s.customers[c.ID] = c
	}

	lastMedSupply, lastPharma := day("2024-01-15"), day("2024-01-10")
	for _, sup := range []domain.Supplier{
		{ID: SeedSupplierMedSupplyID, Name: "MedSupply Corp", Email: "orders@medsupply.com", Phone: "+1 (555) 123-4567", Address: "123 Medical St, Healthcare City, HC 12345", ContactPerson: "John Medical", PaymentTerms: "Net 30", Status: domain.StatusActive, TotalOrders: 45, LastOrder: &lastMedSupply, CreatedAt: now},
		{ID: SeedSupplierPharmaID, Name: "Pharma Distributors Inc", Email: "contact@pharmadist.com", Phone: "+1 (555) 234-5678", Address: "456 Supply Ave, Distribution City, DC 67890", ContactPerson: "Sarah Johnson", PaymentTerms: "Net 15", Status: domain.StatusActive, TotalOrders: 32, LastOrder: &lastPharma, CreatedAt: now},
	} {
		s.suppliers[sup.ID] = sup
	}

	for _, p := range []domain.Prescription{
		{
			ID: SeedPrescriptionFilledID, PrescriptionNumber: "RX001234", PatientName: "John Doe", DoctorName: "Dr. Sarah Wilson", DateIssued: day("2024-01-15"),
			Medications: []domain.Medication{
				{Name: "Lisinopril 10mg", Dosage: "10mg", Frequency: "Once daily", Duration: "30 days", Quantity: 30},
				{Name: "Metformin 500mg", Dosage: "500mg", Frequency: "Twice daily", Duration: "30 days", Quantity: 60},
			},
			Instructions: "Take with food. Monitor blood pressure regularly.", TotalAmountCents: 4550, Insurance: "BlueCross", Status: workflow.PrescriptionFilled,
		},
		{
			ID: SeedPrescriptionPendingID, PrescriptionNumber: "RX001235", PatientName: "Jane Smith", DoctorName: "Dr. Michael Brown", DateIssued: day("2024-01-16"),
			Medications: []domain.Medication{
				{Name: "Amoxicillin 250mg", Dosage: "250mg", Frequency: "Three times daily", Duration: "7 days", Quantity: 21},
			},
			Instructions: "Complete full course even if symptoms improve.", TotalAmountCents: 2500, Status: workflow.PrescriptionPending,
		},
		{
			ID: SeedPrescriptionPartialID, PrescriptionNumber: "RX001236", PatientName: "Robert Johnson", DoctorName: "Dr. Emily Davis", DateIssued: day("2024-01-17"),
			Medications: []domain.Medication{
				{Name: "Atorvastatin 20mg", Dosage: "20mg", Frequency: "Once daily at bedtime", Duration: "90 days", Quantity: 90},
			},
			Instructions: "Take in the evening. Follow up in 3 months for cholesterol check.", TotalAmountCents: 7525, Insurance: "Aetna", Status: workflow.PrescriptionPartiallyFilled,
		},
	} {
		p.CreatedAt, p.UpdatedAt = now, now
		s.prescriptions[p.ID] = p
	}

	expected := day("2024-01-15")
	s.purchases[SeedPurchasePendingID] = domain.Purchase{
		ID: SeedPurchasePendingID, PurchaseOrderID: "PO-2024-002", SupplierID: SeedSupplierPharmaID, SupplierName: "Pharma Distributors Inc",
		OrderDate: day("2024-01-10"), ExpectedDelivery: &expected,
		Items: []domain.PurchaseItem{
			{MedicineID: SeedAmoxicillinID, MedicineName: "Amoxicillin 250mg", Quantity: 200, UnitPriceCents: 1500, BatchNumber: "AMX003", ExpiryDate: "2028-06-30"},
			{MedicineName: "Insulin Glargine", Quantity: 50, UnitPriceCents: 4500, BatchNumber: "INS001", ExpiryDate: "2027-08-31"},
		},
		TotalAmountCents: 200*1500 + 50*4500,
		Status:           workflow.PurchasePending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.expenses = []domain.Expense{
		{ID: "exp_001", Category: "Utilities", Description: "Electricity Bill - January", AmountCents: 45000, Date: day("2024-01-15"), PaymentMethod: domain.ExpensePaymentBankTransfer, Receipt: "ELEC-001", CreatedBy: "admin@pharmacy.com"},
		{ID: "exp_002", Category: "Office Supplies", Description: "Printer Paper and Ink", AmountCents: 12550, Date: day("2024-01-12"), PaymentMethod: domain.ExpensePaymentCash, Receipt: "OFF-002", CreatedBy: "admin@pharmacy.com"},
		{ID: "exp_003", Category: "Maintenance", Description: "AC Servicing", AmountCents: 20000, Date: day("2024-01-10"), PaymentMethod: domain.ExpensePaymentCash, Receipt: "MAINT-001", CreatedBy: "admin@pharmacy.com"},
	}
	s.cashFlows = []domain.CashFlow{
		{ID: "cf_001", Type: domain.CashIn, AmountCents: 500000, Description: "Daily Sales Collection", Date: day("2024-01-15"), Reference: "SALE-2024-001", CreatedBy: "admin@pharmacy.com"},
		{ID: "cf_002", Type: domain.CashOut, AmountCents: 45000, Description: "Electricity Bill Payment", Date: day("2024-01-15"), Reference: "EXP-001", CreatedBy: "admin@pharmacy.com"},
		{ID: "cf_003", Type: domain.CashIn, AmountCents: 320000, Description: "Insurance Claim Settlement", Date: day("2024-01-14"), Reference: "INS-001", CreatedBy: "admin@pharmacy.com"},
	}

	s.usersByEmail = seedUsers(log, now)
	return s
}
