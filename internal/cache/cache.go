package cache

import (
	"context"
	"time"

	"pharmacare/backend/internal/domain"
)

// DashboardCache holds rendered dashboards keyed by day.
type DashboardCache interface {
	Get(ctx context.Context, key string) (*domain.Dashboard, bool, error)
	Set(ctx context.Context, key string, value *domain.Dashboard, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopDashboardCache struct{}

func (NoopDashboardCache) Get(_ context.Context, _ string) (*domain.Dashboard, bool, error) {
	return nil, false, nil
}

func (NoopDashboardCache) Set(_ context.Context, _ string, _ *domain.Dashboard, _ time.Duration) error {
	return nil
}

func (NoopDashboardCache) Invalidate(_ context.Context) error {
	return nil
}

const keyPrefix = "pharmacare:dashboard:"

// DashboardKey namespaces a dashboard date.
func DashboardKey(date string) string {
	return keyPrefix + date
}
