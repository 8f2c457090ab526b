package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/stocklevel"
	"pharmacare/backend/internal/store"
)

func (s *Service) ListMedicines(ctx context.Context, query string) ([]domain.Medicine, error) {
	// Cashiers search the catalog from the sales screen.
	if _, err := requireSection(ctx, session.SectionSales); err != nil {
		return nil, err
	}
	return s.repo.ListMedicines(ctx, query)
}

func (s *Service) GetMedicine(ctx context.Context, id string) (*domain.Medicine, error) {
	if _, err := requireSection(ctx, session.SectionInventory); err != nil {
		return nil, err
	}
	return s.repo.GetMedicine(ctx, id)
}

func (s *Service) CreateMedicine(ctx context.Context, req domain.MedicineCreateRequest) (*domain.Medicine, error) {
	if _, err := requireSection(ctx, session.SectionInventory); err != nil {
		return nil, err
	}
	if err := requireAll("name", req.Name, "category", req.Category); err != nil {
		return nil, err
	}
	if req.PriceCents < 0 {
		return nil, invalid("price_cents must not be negative")
	}
	if req.Stock < 0 || req.MinStock < 0 {
		return nil, invalid("stock and min_stock must not be negative")
	}

	now := s.now()
	medicine := domain.Medicine{
		Name:         strings.TrimSpace(req.Name),
		Category:     strings.TrimSpace(req.Category),
		Manufacturer: strings.TrimSpace(req.Manufacturer),
		PriceCents:   req.PriceCents,
		Stock:        req.Stock,
		MinStock:     req.MinStock,
		BatchNumber:  strings.TrimSpace(req.BatchNumber),
		Description:  strings.TrimSpace(req.Description),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if strings.TrimSpace(req.ExpiryDate) != "" {
		expiry, err := parseDate("expiry_date", req.ExpiryDate)
		if err != nil {
			return nil, err
		}
		medicine.ExpiryDate = expiry
	}

	created, err := s.repo.CreateMedicine(ctx, medicine)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "medicine.create", "medicine", created.ID, created.Name)
	return created, nil
}

func (s *Service) UpdateMedicine(ctx context.Context, id string, req domain.MedicineUpdateRequest) (*domain.Medicine, error) {
	if _, err := requireSection(ctx, session.SectionInventory); err != nil {
		return nil, err
	}
	current, err := s.repo.GetMedicine(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		next.Category = strings.TrimSpace(*req.Category)
	}
	if req.Manufacturer != nil {
		next.Manufacturer = trimPtr(req.Manufacturer)
	}
	if req.PriceCents != nil {
		next.PriceCents = *req.PriceCents
	}
	if req.MinStock != nil {
		next.MinStock = *req.MinStock
	}
	if req.BatchNumber != nil {
		next.BatchNumber = trimPtr(req.BatchNumber)
	}
	if req.Description != nil {
		next.Description = trimPtr(req.Description)
	}
	if req.ExpiryDate != nil {
		expiry, err := parseDate("expiry_date", *req.ExpiryDate)
		if err != nil {
			return nil, err
		}
		next.ExpiryDate = expiry
	}

	if err := requireAll("name", next.Name, "category", next.Category); err != nil {
		return nil, err
	}
	if next.PriceCents < 0 || next.MinStock < 0 {
		return nil, invalid("price_cents and min_stock must not be negative")
	}
	next.UpdatedAt = s.now()

	updated, err := s.repo.UpdateMedicine(ctx, next)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "medicine.update", "medicine", updated.ID, updated.Name)
	return updated, nil
}

func (s *Service) DeleteMedicine(ctx context.Context, id string) error {
	if _, err := requireSection(ctx, session.SectionInventory); err != nil {
		return err
	}
	if err := s.repo.DeleteMedicine(ctx, id); err != nil {
		if errors.Is(err, store.ErrInUse) {
			return fmt.Errorf("medicine %s is on a held or completed sale: %w", id, err)
		}
		return err
	}
	s.changed(ctx, "medicine.delete", "medicine", id, "")
	return nil
}

// AdjustStock applies a manual correction such as a count or write-off.
func (s *Service) AdjustStock(ctx context.Context, id string, req domain.StockAdjustRequest) (*domain.Medicine, error) {
	if _, err := requireSection(ctx, session.SectionInventory); err != nil {
		return nil, err
	}
	if req.Delta == 0 {
		return nil, invalid("delta must not be zero")
	}
	if err := required("reason", req.Reason); err != nil {
		return nil, err
	}

	if err := s.repo.ApplyStockChanges(ctx, []domain.StockChange{{MedicineID: id, Delta: req.Delta}}); err != nil {
		return nil, err
	}
	medicine, err := s.repo.GetMedicine(ctx, id)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "medicine.stock_adjust", "medicine", id,
		fmt.Sprintf("delta=%d reason=%s stock=%d", req.Delta, strings.TrimSpace(req.Reason), medicine.Stock))
	return medicine, nil
}

// LowStock lists medicines classified Low or Medium, lowest first.
func (s *Service) LowStock(ctx context.Context) ([]domain.Medicine, error) {
	if _, err := requireSection(ctx, session.SectionInventory); err != nil {
		return nil, err
	}
	return s.lowStock(ctx)
}

func (s *Service) lowStock(ctx context.Context) ([]domain.Medicine, error) {
	medicines, err := s.repo.ListMedicines(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Medicine, 0, len(medicines))
	for _, m := range medicines {
		if stocklevel.NeedsAttention(m.StockStatus) {
			out = append(out, m)
		}
	}
	sortByStockRatio(out)
	return out, nil
}

// Expiring lists medicines expiring within days, or within the configured
// alert window when days is not positive.
func (s *Service) Expiring(ctx context.Context, days int) ([]domain.Medicine, error) {
	if _, err := requireSection(ctx, session.SectionInventory); err != nil {
		return nil, err
	}
	return s.expiring(ctx, days)
}

func (s *Service) expiring(ctx context.Context, days int) ([]domain.Medicine, error) {
	if days <= 0 {
		days = s.settings(ctx).ExpiryAlertDays
	}
	medicines, err := s.repo.ListMedicines(ctx, "")
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]domain.Medicine, 0)
	for _, m := range medicines {
		if stocklevel.ExpiresWithin(m.ExpiryDate, now, days) {
			out = append(out, m)
		}
	}
	sortByExpiry(out)
	return out, nil
}

// priceItems resolves catalog prices for the requested lines.
func (s *Service) priceItems(ctx context.Context, lines []domain.SaleItemRequest) ([]domain.SaleItem, error) {
	if len(lines) == 0 {
		return nil, invalid("at least one item is required")
	}

	ids := make([]string, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line.MedicineID) == "" {
			return nil, invalid("items[%d].medicine_id is required", i)
		}
		if line.Quantity <= 0 {
			return nil, invalid("items[%d].quantity must be positive", i)
		}
		ids = append(ids, line.MedicineID)
	}

	catalog, err := s.repo.GetMedicinesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.SaleItem, 0, len(lines))
	for _, line := range lines {
		medicine, ok := catalog[line.MedicineID]
		if !ok {
			return nil, fmt.Errorf("medicine %s: %w", line.MedicineID, store.ErrNotFound)
		}
		items = append(items, domain.SaleItem{
			MedicineID:     medicine.ID,
			MedicineName:   medicine.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: medicine.PriceCents,
			TotalCents:     int64(line.Quantity) * medicine.PriceCents,
		})
	}
	return items, nil
}

// sortByStockRatio puts the emptiest shelves first.
func sortByStockRatio(items []domain.Medicine) {
	slices.SortStableFunc(items, func(a, b domain.Medicine) int {
		// a.Stock/a.MinStock < b.Stock/b.MinStock without division.
		left := int64(a.Stock) * int64(max(b.MinStock, 1))
		right := int64(b.Stock) * int64(max(a.MinStock, 1))
		switch {
		case left < right:
			return -1
		case left > right:
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
}

func sortByExpiry(items []domain.Medicine) {
	slices.SortStableFunc(items, func(a, b domain.Medicine) int {
		return a.ExpiryDate.Compare(b.ExpiryDate)
	})
}
