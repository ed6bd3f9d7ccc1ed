package exchange

import (
	"context"
	"errors"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// StreamSource serves fetches out of a venue's stream cache. A cache gap or
// an aged tick is a failed fetch; a stream hiccup must never look like a
// live quote.
type StreamSource struct {
	venue  domain.Venue
	cache  *TickerCache
	maxAge time.Duration
}

func NewStreamSource(venue domain.Venue, cache *TickerCache, maxAge time.Duration) *StreamSource {
	return &StreamSource{venue: venue, cache: cache, maxAge: maxAge}
}

func (s *StreamSource) Venue() domain.Venue { return s.venue }

func (s *StreamSource) Fetch(ctx context.Context, instrument string) (domain.PriceSnapshot, error) {
	snap, ok := s.cache.Latest(instrument, time.Now(), s.maxAge)
	if !ok {
		return domain.PriceSnapshot{}, &port.FetchError{
			Venue: s.venue,
			Kind:  port.FetchTimeout,
			Err:   errors.New("no fresh tick in stream cache"),
		}
	}
	return snap, nil
}

var _ port.PriceSource = (*StreamSource)(nil)
