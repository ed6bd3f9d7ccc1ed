package port

import (
	"context"

	"spreadwatch/internal/domain"
)

// Repository journals observed prices and accepted opportunity events.
// Write-path observability only: nothing here feeds the cooldown or dedup
// logic, and a write failure never blocks a cycle.
type Repository interface {
	// Price operations
	UpsertLatestPrice(ctx context.Context, venue domain.Venue, instrument string, price float64, ts int64) error

	// Opportunity operations
	InsertOpportunity(ctx context.Context, ev *domain.OpportunityEvent) error

	// Connection management
	Close() error
}
