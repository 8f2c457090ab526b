package service

import (
	"context"
	"fmt"
	"strings"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/workflow"
)

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (*domain.Supplier, error) {
	if _, err := requireSection(ctx, session.SectionSuppliers); err != nil {
		return nil, err
	}
	if err := required("name", req.Name); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		PaymentTerms:  defaultString(req.PaymentTerms, "Net 30"),
		Status:        domain.StatusActive,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "supplier.create", "supplier", created.ID, created.Name)
	return created, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	if _, err := requireSection(ctx, session.SectionSuppliers); err != nil {
		return nil, err
	}
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) UpdateSupplierStatus(ctx context.Context, id string, status string) (*domain.Supplier, error) {
	if _, err := requireSection(ctx, session.SectionSuppliers); err != nil {
		return nil, err
	}
	status = strings.TrimSpace(status)
	if status != domain.StatusActive && status != domain.StatusInactive {
		return nil, invalid("status must be Active or Inactive")
	}
	updated, err := s.repo.UpdateSupplierStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "supplier.status", "supplier", id, status)
	return updated, nil
}

func (s *Service) CreatePurchase(ctx context.Context, req domain.PurchaseCreateRequest) (*domain.Purchase, error) {
	if _, err := requireSection(ctx, session.SectionPurchases); err != nil {
		return nil, err
	}
	if err := required("purchase_order_id", req.PurchaseOrderID); err != nil {
		return nil, err
	}

	supplierName := strings.TrimSpace(req.SupplierName)
	if req.SupplierID != "" {
		supplier, err := s.repo.GetSupplier(ctx, req.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("supplier %s: %w", req.SupplierID, err)
		}
		if supplier.Status != domain.StatusActive {
			return nil, invalid("supplier %s is inactive", supplier.Name)
		}
		supplierName = defaultString(supplierName, supplier.Name)
	}
	if err := required("supplier_name", supplierName); err != nil {
		return nil, err
	}

	now := s.now()
	orderDate, err := parseOptionalDate("order_date", req.OrderDate, startOfDay(now))
	if err != nil {
		return nil, err
	}

	purchase := domain.Purchase{
		PurchaseOrderID: strings.TrimSpace(req.PurchaseOrderID),
		SupplierID:      req.SupplierID,
		SupplierName:    supplierName,
		OrderDate:       orderDate,
		Items:           make([]domain.PurchaseItem, 0, len(req.Items)),
		Status:          workflow.Purchases.Initial(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if strings.TrimSpace(req.ExpectedDelivery) != "" {
		expected, err := parseDate("expected_delivery", req.ExpectedDelivery)
		if err != nil {
			return nil, err
		}
		if expected.Before(orderDate) {
			return nil, invalid("expected_delivery is before order_date")
		}
		purchase.ExpectedDelivery = &expected
	}

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, invalid("items[%d].quantity must be positive", i)
		}
		if item.UnitPriceCents < 0 {
			return nil, invalid("items[%d].unit_price_cents must not be negative", i)
		}
		if item.MedicineID != "" {
			medicine, err := s.repo.GetMedicine(ctx, item.MedicineID)
			if err != nil {
				return nil, fmt.Errorf("items[%d] medicine %s: %w", i, item.MedicineID, err)
			}
			item.MedicineName = defaultString(item.MedicineName, medicine.Name)
		}
		if strings.TrimSpace(item.MedicineName) == "" {
			return nil, invalid("items[%d].medicine_name is required", i)
		}
		if item.ExpiryDate != "" {
			if _, err := parseDate(fmt.Sprintf("items[%d].expiry_date", i), item.ExpiryDate); err != nil {
				return nil, err
			}
		}
		item.ReceivedQty = 0
		purchase.TotalAmountCents += int64(item.Quantity) * item.UnitPriceCents
		purchase.Items = append(purchase.Items, item)
	}

	created, err := s.repo.CreatePurchase(ctx, purchase)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "purchase.create", "purchase", created.ID, created.PurchaseOrderID)
	return created, nil
}

func (s *Service) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	if _, err := requireSection(ctx, session.SectionPurchases); err != nil {
		return nil, err
	}
	return s.repo.GetPurchase(ctx, id)
}

func (s *Service) ListPurchases(ctx context.Context, status string, limit int) ([]domain.Purchase, error) {
	if _, err := requireSection(ctx, session.SectionPurchases); err != nil {
		return nil, err
	}
	if status != "" && !workflow.Purchases.Known(workflow.PurchaseStatus(status)) {
		return nil, fmt.Errorf("%w: %s", workflow.ErrUnknownStatus, status)
	}
	return s.repo.ListPurchases(ctx, status, limit)
}

// UpdatePurchaseStatus moves a purchase along its workflow. Partial records
// the received lines; Delivered receives everything still outstanding.
func (s *Service) UpdatePurchaseStatus(ctx context.Context, id string, req domain.PurchaseStatusRequest) (*domain.Purchase, error) {
	if _, err := requireSection(ctx, session.SectionPurchases); err != nil {
		return nil, err
	}
	current, err := s.repo.GetPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Purchases.Transition(current.Status, req.Status); err != nil {
		return nil, err
	}

	var receipts []store.StockReceipt
	switch req.Status {
	case workflow.PurchasePartial:
		if len(req.Received) == 0 {
			return nil, invalid("received lines are required for a partial delivery")
		}
		for _, line := range req.Received {
			if line.Index < 0 || line.Index >= len(current.Items) {
				return nil, invalid("received index %d is out of range", line.Index)
			}
			if line.Quantity <= 0 {
				return nil, invalid("received quantity must be positive")
			}
			receipts = append(receipts, store.StockReceipt{Index: line.Index, Quantity: line.Quantity})
		}
	case workflow.PurchaseDelivered:
		for i, item := range current.Items {
			if remaining := item.Quantity - item.ReceivedQty; remaining > 0 {
				receipts = append(receipts, store.StockReceipt{Index: i, Quantity: remaining})
			}
		}
	}

	updated, err := s.repo.ReceivePurchase(ctx, id, current.Status, req.Status, receipts, s.now())
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "purchase.status", "purchase", id,
		fmt.Sprintf("%s %s -> %s", updated.PurchaseOrderID, current.Status, req.Status))
	return updated, nil
}
