// Package report caches daily sales summaries so dashboard polling does not
// hit the database on every request.
package report

import (
	"context"

	"kudipos/backend/internal/domain"
)

// Cache stores computed daily summaries keyed by date. Implementations must
// treat a miss as (zero, false, nil).
type Cache interface {
	Get(ctx context.Context, day string) (domain.DailySummary, bool, error)
	Set(ctx context.Context, day string, summary domain.DailySummary) error
}

// NoopCache disables caching; every lookup is a miss.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (domain.DailySummary, bool, error) {
	return domain.DailySummary{}, false, nil
}

func (NoopCache) Set(context.Context, string, domain.DailySummary) error { return nil }
