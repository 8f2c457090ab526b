package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharmacare/backend/internal/cache"
	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/xid"
)

var (
	// ErrForbidden marks an operation the caller's role may not perform.
	ErrForbidden = errors.New("forbidden")
	// ErrApprovalRequired marks an operation that needs manager approval.
	ErrApprovalRequired = errors.New("manager approval required")
)

type approvalContextKey struct{}

// WithManagerApproval marks ctx as carrying a verified manager PIN.
func WithManagerApproval(ctx context.Context) context.Context {
	return context.WithValue(ctx, approvalContextKey{}, true)
}

func hasManagerApproval(ctx context.Context) bool {
	approved, _ := ctx.Value(approvalContextKey{}).(bool)
	return approved
}

type Service struct {
	repo       store.Repository
	dashboards cache.DashboardCache
	cacheTTL   time.Duration
	log        *zap.Logger
	now        func() time.Time
}

func New(repo store.Repository, dashboards cache.DashboardCache, cacheTTL time.Duration, log *zap.Logger) *Service {
	if dashboards == nil {
		dashboards = cache.NoopDashboardCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		repo:       repo,
		dashboards: dashboards,
		cacheTTL:   cacheTTL,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// requireSection returns the caller's session when its role may open section.
func requireSection(ctx context.Context, section session.Section) (session.Session, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return session.Session{}, fmt.Errorf("no active session: %w", ErrForbidden)
	}
	if !session.Allowed(sess.Role, section) {
		return session.Session{}, fmt.Errorf("%s role may not access %s: %w", sess.Role, section, ErrForbidden)
	}
	return sess, nil
}

func requireAdmin(ctx context.Context) (session.Session, error) {
	sess, ok := session.FromContext(ctx)
	if !ok || !sess.IsAdmin() {
		return session.Session{}, fmt.Errorf("admin role required: %w", ErrForbidden)
	}
	return sess, nil
}

func (s *Service) settings(ctx context.Context) domain.Settings {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		s.log.Warn("failed to load settings, using defaults", zap.Error(err))
		return domain.DefaultSettings()
	}
	return settings
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	if !s.settings(ctx).AuditLogEnabled {
		return
	}
	s.writeAudit(ctx, action, entityType, entityID, detail)
}

// Audit records a change made outside the service, such as an account change.
func (s *Service) Audit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	s.logAudit(ctx, action, entityType, entityID, detail)
}

func (s *Service) writeAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := session.FromContext(ctx)
	if !ok {
		actor = session.System()
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:         xid.New("audit"),
		ActorEmail: actor.Email,
		ActorRole:  string(actor.Role),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  s.now(),
	}); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err))
	}
}

// changed records an audit entry and drops cached dashboards after a write.
func (s *Service) changed(ctx context.Context, action string, entityType string, entityID string, detail string) {
	s.logAudit(ctx, action, entityType, entityID, detail)
	s.invalidateDashboards(ctx)
}

func (s *Service) invalidateDashboards(ctx context.Context) {
	if err := s.dashboards.Invalidate(ctx); err != nil {
		s.log.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := requireSection(ctx, session.SectionAudit); err != nil {
		return nil, err
	}
	period := store.Period{}
	if strings.TrimSpace(date) != "" {
		day, err := parseDate("date", date)
		if err != nil {
			return nil, err
		}
		period = store.Period{From: day, To: day.AddDate(0, 0, 1)}
	}
	return s.repo.ListAuditLogs(ctx, period, limit)
}

func required(field string, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", store.ErrInvalidRecord, field)
	}
	return nil
}

// requireAll checks presence of each field/value pair in order.
func requireAll(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := required(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidRecord, fmt.Sprintf(format, args...))
}

func parseDate(field string, raw string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, invalid("%s must be YYYY-MM-DD", field)
	}
	return t, nil
}

// parseOptionalDate returns fallback when raw is blank.
func parseOptionalDate(field string, raw string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return parseDate(field, raw)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func defaultString(value string, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

func trimPtr(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
