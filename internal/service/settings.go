package service

import (
	"context"
	"fmt"
	"strings"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
)

// Settings is readable by every signed-in role; the sales screen needs the
// tax rate and discount limit.
func (s *Service) Settings(ctx context.Context) (domain.Settings, error) {
	if _, ok := session.FromContext(ctx); !ok {
		return domain.Settings{}, fmt.Errorf("no active session: %w", ErrForbidden)
	}
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Settings{}, err
	}
	current, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	next := current
	changed := make([]string, 0, 4)
	if req.Pharmacy != nil {
		if err := required("pharmacy.name", req.Pharmacy.Name); err != nil {
			return domain.Settings{}, err
		}
		next.Pharmacy = *req.Pharmacy
		changed = append(changed, "pharmacy")
	}
	if req.Currency != nil {
		currency := strings.ToUpper(trimPtr(req.Currency))
		if len(currency) != 3 {
			return domain.Settings{}, invalid("currency must be a 3-letter code")
		}
		next.Currency = currency
		changed = append(changed, "currency")
	}
	if req.TaxRatePercent != nil {
		if *req.TaxRatePercent < 0 || *req.TaxRatePercent > 100 {
			return domain.Settings{}, invalid("tax_rate_percent must be between 0 and 100")
		}
		next.TaxRatePercent = *req.TaxRatePercent
		changed = append(changed, "tax_rate_percent")
	}
	if req.DiscountLimitPercent != nil {
		if *req.DiscountLimitPercent < 0 || *req.DiscountLimitPercent > 100 {
			return domain.Settings{}, invalid("discount_limit_percent must be between 0 and 100")
		}
		next.DiscountLimitPercent = *req.DiscountLimitPercent
		changed = append(changed, "discount_limit_percent")
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return domain.Settings{}, invalid("low_stock_threshold must not be negative")
		}
		next.LowStockThreshold = *req.LowStockThreshold
		changed = append(changed, "low_stock_threshold")
	}
	if req.ExpiryAlertDays != nil {
		if *req.ExpiryAlertDays < 1 {
			return domain.Settings{}, invalid("expiry_alert_days must be at least 1")
		}
		next.ExpiryAlertDays = *req.ExpiryAlertDays
		changed = append(changed, "expiry_alert_days")
	}
	if req.InvoicePrefix != nil {
		next.InvoicePrefix = trimPtr(req.InvoicePrefix)
		changed = append(changed, "invoice_prefix")
	}
	if req.ReceiptPrefix != nil {
		next.ReceiptPrefix = trimPtr(req.ReceiptPrefix)
		changed = append(changed, "receipt_prefix")
	}
	if req.InvoiceFooter != nil {
		next.InvoiceFooter = trimPtr(req.InvoiceFooter)
		changed = append(changed, "invoice_footer")
	}
	if req.SessionTimeoutMinutes != nil {
		if *req.SessionTimeoutMinutes < 5 || *req.SessionTimeoutMinutes > 24*60 {
			return domain.Settings{}, invalid("session_timeout_minutes must be between 5 and 1440")
		}
		next.SessionTimeoutMinutes = *req.SessionTimeoutMinutes
		changed = append(changed, "session_timeout_minutes")
	}
	if req.AuditLogEnabled != nil {
		next.AuditLogEnabled = *req.AuditLogEnabled
		changed = append(changed, "audit_log_enabled")
	}
	if len(changed) == 0 {
		return current, nil
	}

	next.UpdatedAt = s.now()
	if err := s.repo.SaveSettings(ctx, next); err != nil {
		return domain.Settings{}, err
	}
	// Turning the audit log off is itself recorded.
	if current.AuditLogEnabled && !next.AuditLogEnabled {
		s.writeAudit(ctx, "settings.update", "settings", "pharmacy", strings.Join(changed, ","))
		s.invalidateDashboards(ctx)
	} else {
		s.changed(ctx, "settings.update", "settings", "pharmacy", strings.Join(changed, ","))
	}
	return next, nil
}
