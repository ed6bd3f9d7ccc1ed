package port

import (
	"context"

	"spreadwatch/internal/domain"
)

// PriceSource fetches one venue's current price for an instrument. One
// outbound call per invocation, no internal retry; the scheduler's next
// cycle is the retry. A source never substitutes a stale value for a failed
// fetch.
type PriceSource interface {
	Venue() domain.Venue
	Fetch(ctx context.Context, instrument string) (domain.PriceSnapshot, error)
}

// InstrumentLister enumerates a venue's tradable perpetuals in common
// notation. Used by instrument discovery at startup.
type InstrumentLister interface {
	Venue() domain.Venue
	ListInstruments(ctx context.Context) ([]string, error)
}

// StreamFeed keeps a venue's latest ticks flowing into a local cache in the
// background. Start validates its inputs, spawns the feed loop, and returns;
// the loop reconnects on its own until ctx is done.
type StreamFeed interface {
	Name() string
	Start(ctx context.Context, instruments []string) error
}
