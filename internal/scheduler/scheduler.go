package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pharmacare/backend/internal/archive"
	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/notify"
	"pharmacare/backend/internal/session"
)

const jobTimeout = 2 * time.Minute

// Reporter is the part of the service the scheduled jobs read from.
type Reporter interface {
	DailySummary(ctx context.Context, date string) (*archive.DailySummary, error)
	StockAlerts(ctx context.Context) ([]domain.StockAlert, error)
	Settings(ctx context.Context) (domain.Settings, error)
}

// Scheduler runs the end-of-day archive job and the morning stock alert job.
type Scheduler struct {
	cron     *cron.Cron
	reports  Reporter
	archive  archive.Archive
	notifier notify.Notifier
	logger   *zap.Logger

	summarySpec string
	alertSpec   string
}

func New(reports Reporter, sink archive.Archive, notifier notify.Notifier, summarySpec string, alertSpec string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = archive.NoopArchive{}
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Scheduler{
		cron:        cron.New(),
		reports:     reports,
		archive:     sink,
		notifier:    notifier,
		logger:      logger,
		summarySpec: summarySpec,
		alertSpec:   alertSpec,
	}
}

// Start registers both jobs and starts the cron loop. A bad schedule is
// reported before anything runs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.summarySpec, s.runJob("daily_summary", s.ArchiveDailySummary)); err != nil {
		return fmt.Errorf("schedule daily summary %q: %w", s.summarySpec, err)
	}
	if _, err := s.cron.AddFunc(s.alertSpec, s.runJob("stock_alerts", s.SendStockAlerts)); err != nil {
		return fmt.Errorf("schedule stock alerts %q: %w", s.alertSpec, err)
	}

	s.logger.Info("starting scheduler",
		zap.String("daily_summary", s.summarySpec),
		zap.String("stock_alerts", s.alertSpec),
	)
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("stopping scheduler")
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) runJob(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(session.With(context.Background(), session.System()), jobTimeout)
		defer cancel()

		started := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job finished", zap.String("job", name), zap.Duration("took", time.Since(started)))
	}
}

// ArchiveDailySummary stores today's figures in the archive. ctx must carry
// a session allowed to read reports.
func (s *Scheduler) ArchiveDailySummary(ctx context.Context) error {
	summary, err := s.reports.DailySummary(ctx, "")
	if err != nil {
		return fmt.Errorf("build daily summary: %w", err)
	}
	if err := s.archive.SaveDailySummary(ctx, *summary); err != nil {
		return fmt.Errorf("save daily summary %s: %w", summary.Date, err)
	}
	return nil
}

// SendStockAlerts notifies about low, medium and expiring stock. Nothing is
// sent when the scan comes back empty.
func (s *Scheduler) SendStockAlerts(ctx context.Context) error {
	alerts, err := s.reports.StockAlerts(ctx)
	if err != nil {
		return fmt.Errorf("scan stock: %w", err)
	}
	if len(alerts) == 0 {
		return nil
	}

	pharmacy := domain.DefaultSettings().Pharmacy.Name
	if settings, err := s.reports.Settings(ctx); err == nil && settings.Pharmacy.Name != "" {
		pharmacy = settings.Pharmacy.Name
	}
	if err := s.notifier.NotifyStockAlerts(ctx, pharmacy, alerts); err != nil {
		return fmt.Errorf("notify %d stock alerts: %w", len(alerts), err)
	}
	return nil
}
