package cache

import (
	"context"
	"testing"
	"time"

	"pharmacare/backend/internal/domain"
)

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c DashboardCache = NoopDashboardCache{}
	ctx := context.Background()

	if err := c.Set(ctx, DashboardKey("2026-01-02"), &domain.Dashboard{Date: "2026-01-02"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, DashboardKey("2026-01-02"))
	if err != nil || ok || got != nil {
		t.Fatalf("expected miss, got %+v ok=%v err=%v", got, ok, err)
	}
}

func TestDashboardKeyIsNamespaced(t *testing.T) {
	if got := DashboardKey("2026-01-02"); got != "pharmacare:dashboard:2026-01-02" {
		t.Fatalf("unexpected key %q", got)
	}
}
