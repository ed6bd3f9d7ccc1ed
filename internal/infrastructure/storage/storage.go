package storage

import (
	"context"
	"sync"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// LatestPrice is the most recent price written for one venue and instrument.
type LatestPrice struct {
	Venue      domain.Venue
	Instrument string
	Price      float64
	Ts         int64
}

// Memory is a simple in-memory repository. It backs tests and runs in place
// of a real backend when storage is disabled but write-path coverage is wanted.
type Memory struct {
	mu            sync.Mutex
	latest        map[string]LatestPrice
	opportunities []*domain.OpportunityEvent
}

// NewMemory creates a new in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		latest: make(map[string]LatestPrice),
	}
}

func (m *Memory) UpsertLatestPrice(ctx context.Context, venue domain.Venue, instrument string, price float64, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(venue) + ":" + instrument
	m.latest[key] = LatestPrice{Venue: venue, Instrument: instrument, Price: price, Ts: ts}
	return nil
}

func (m *Memory) InsertOpportunity(ctx context.Context, ev *domain.OpportunityEvent) error {
	cp := *ev
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opportunities = append(m.opportunities, &cp)
	return nil
}

func (m *Memory) Close() error { return nil }

// Latest returns the stored price for a venue and instrument.
func (m *Memory) Latest(venue domain.Venue, instrument string) (LatestPrice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lp, ok := m.latest[string(venue)+":"+instrument]
	return lp, ok
}

// Opportunities returns stored events in insertion order.
func (m *Memory) Opportunities() []*domain.OpportunityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.OpportunityEvent, len(m.opportunities))
	copy(out, m.opportunities)
	return out
}

// DeleteOldOpportunities removes events detected before the cutoff.
func (m *Memory) DeleteOldOpportunities(before time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	filtered := make([]*domain.OpportunityEvent, 0, len(m.opportunities))
	for _, o := range m.opportunities {
		if o.DetectedAt.After(before) {
			filtered = append(filtered, o)
		}
	}
	m.opportunities = filtered
}

var _ port.Repository = (*Memory)(nil)
