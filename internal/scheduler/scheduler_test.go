package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pharmacare/backend/internal/archive"
	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/service"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/store/memory"
)

type archiveRecorder struct {
	mu        sync.Mutex
	summaries []archive.DailySummary
	err       error
}

func (a *archiveRecorder) SaveDailySummary(_ context.Context, summary archive.DailySummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.summaries = append(a.summaries, summary)
	return nil
}

type notifierRecorder struct {
	pharmacy string
	alerts   []domain.StockAlert
	calls    int
}

func (n *notifierRecorder) NotifyStockAlerts(_ context.Context, pharmacy string, alerts []domain.StockAlert) error {
	n.calls++
	n.pharmacy = pharmacy
	n.alerts = alerts
	return nil
}

func systemContext() context.Context {
	return session.With(context.Background(), session.System())
}

func newTestScheduler(sink archive.Archive, notifier *notifierRecorder) *Scheduler {
	svc := service.New(memory.NewSeeded(nil), nil, 0, nil)
	return New(svc, sink, notifier, "55 23 * * *", "0 8 * * *", nil)
}

func TestArchiveDailySummaryStoresToday(t *testing.T) {
	sink := &archiveRecorder{}
	s := newTestScheduler(sink, &notifierRecorder{})

	if err := s.ArchiveDailySummary(systemContext()); err != nil {
		t.Fatalf("archive daily summary: %v", err)
	}
	if len(sink.summaries) != 1 {
		t.Fatalf("expected one archived summary, got %d", len(sink.summaries))
	}
	if sink.summaries[0].Date == "" || sink.summaries[0].GeneratedAt.IsZero() {
		t.Fatalf("expected dated summary, got %+v", sink.summaries[0])
	}
}

func TestArchiveDailySummaryReportsSaveFailure(t *testing.T) {
	sink := &archiveRecorder{err: errors.New("mongo down")}
	s := newTestScheduler(sink, &notifierRecorder{})

	if err := s.ArchiveDailySummary(systemContext()); err == nil {
		t.Fatalf("expected archive error to surface")
	}
}

func TestArchiveDailySummaryNeedsSession(t *testing.T) {
	s := newTestScheduler(&archiveRecorder{}, &notifierRecorder{})

	if err := s.ArchiveDailySummary(context.Background()); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected forbidden without a session, got %v", err)
	}
}

func TestSendStockAlertsUsesPharmacyName(t *testing.T) {
	notifier := &notifierRecorder{}
	s := newTestScheduler(&archiveRecorder{}, notifier)

	if err := s.SendStockAlerts(systemContext()); err != nil {
		t.Fatalf("send stock alerts: %v", err)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected one notification, got %d", notifier.calls)
	}
	if notifier.pharmacy != "PharmaCare Pharmacy" {
		t.Fatalf("unexpected pharmacy name %q", notifier.pharmacy)
	}

	found := false
	for _, alert := range notifier.alerts {
		if alert.MedicineID == memory.SeedAmoxicillinID && alert.Reason == "low_stock" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected low stock alert for amoxicillin, got %+v", notifier.alerts)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc := service.New(memory.NewSeeded(nil), nil, 0, nil)
	s := New(svc, nil, nil, "not a schedule", "0 8 * * *", nil)

	if err := s.Start(); err == nil {
		s.Stop(context.Background())
		t.Fatalf("expected invalid cron expression to fail")
	}
}

func TestStartAndStop(t *testing.T) {
	s := newTestScheduler(&archiveRecorder{}, &notifierRecorder{})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := len(s.cron.Entries()); got != 2 {
		t.Fatalf("expected 2 cron entries, got %d", got)
	}
	s.Stop(context.Background())
}
