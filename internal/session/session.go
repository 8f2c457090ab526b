// Package session carries the signed-in user through request contexts and
// decides which dashboard sections each role may open.
package session

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleCashier    Role = "cashier"
	RoleSupplier   Role = "supplier"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePharmacist, RoleCashier, RoleSupplier:
		return true
	}
	return false
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New opens a session for a user that lasts ttl from now.
func New(userID, email, fullName string, role Role, now time.Time, ttl time.Duration) Session {
	return Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		FullName:  fullName,
		Role:      role,
		IssuedAt:  now.UTC(),
		ExpiresAt: now.UTC().Add(ttl),
	}
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// System is the session used for scheduled jobs and startup work.
func System() Session {
	return Session{ID: "system", UserID: "system", Email: "system", FullName: "System", Role: RoleAdmin}
}

type contextKey struct{}

func With(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

type Section string

const (
	SectionDashboard     Section = "dashboard"
	SectionCustomers     Section = "customers"
	SectionSales         Section = "sales"
	SectionInventory     Section = "inventory"
	SectionPrescriptions Section = "prescriptions"
	SectionSuppliers     Section = "suppliers"
	SectionPurchases     Section = "purchases"
	SectionReports       Section = "reports"
	SectionExpenses      Section = "expenses"
	SectionSettings      Section = "settings"
	SectionUsers         Section = "users"
	SectionAudit         Section = "audit"
)

var everyone = []Role{RoleAdmin, RolePharmacist, RoleCashier, RoleSupplier}

var sectionRoles = map[Section][]Role{
	SectionDashboard:     everyone,
	SectionCustomers:     everyone,
	SectionSales:         everyone,
	SectionInventory:     {RoleAdmin, RolePharmacist},
	SectionPrescriptions: {RoleAdmin, RolePharmacist},
	SectionSuppliers:     {RoleAdmin, RolePharmacist},
	SectionPurchases:     {RoleAdmin, RolePharmacist},
	SectionReports:       {RoleAdmin, RolePharmacist},
	SectionExpenses:      {RoleAdmin},
	SectionSettings:      {RoleAdmin},
	SectionUsers:         {RoleAdmin},
	SectionAudit:         {RoleAdmin},
}

// Allowed reports whether role may open section. Unknown sections are denied.
func Allowed(role Role, section Section) bool {
	return slices.Contains(sectionRoles[section], role)
}

// Sections lists what role may open, in a stable order.
func Sections(role Role) []Section {
	order := []Section{
		SectionDashboard, SectionInventory, SectionCustomers, SectionPrescriptions,
		SectionSales, SectionPurchases, SectionSuppliers, SectionExpenses,
		SectionReports, SectionSettings, SectionUsers, SectionAudit,
	}
	out := make([]Section, 0, len(order))
	for _, section := range order {
		if Allowed(role, section) {
			out = append(out, section)
		}
	}
	return out
}
