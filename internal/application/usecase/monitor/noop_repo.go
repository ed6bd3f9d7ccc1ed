package monitor

import (
	"context"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

type noopRepo struct{}

// NewNoopRepo returns a repository that discards everything. Used when
// storage is disabled.
func NewNoopRepo() port.Repository { return &noopRepo{} }

func (n *noopRepo) UpsertLatestPrice(ctx context.Context, venue domain.Venue, instrument string, price float64, ts int64) error {
	return nil
}

func (n *noopRepo) InsertOpportunity(ctx context.Context, ev *domain.OpportunityEvent) error {
	return nil
}

func (n *noopRepo) Close() error { return nil }

var _ port.Repository = (*noopRepo)(nil)
