package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/application/service"
	"spreadwatch/internal/domain"
	dsvc "spreadwatch/internal/domain/service"
)

type stubSource struct {
	venue domain.Venue
	snap  domain.PriceSnapshot
	err   error
	at    time.Time
	calls int
}

func (s *stubSource) Venue() domain.Venue { return s.venue }

func (s *stubSource) Fetch(ctx context.Context, instrument string) (domain.PriceSnapshot, error) {
	s.calls++
	if s.err != nil {
		return domain.PriceSnapshot{}, s.err
	}
	snap := s.snap
	snap.Venue = s.venue
	snap.Instrument = instrument
	snap.ObservedAt = s.at
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = time.Now()
	}
	return snap, nil
}

type captureSink struct {
	mu    sync.Mutex
	fail  bool
	sends []string
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Send(ctx context.Context, title, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("sink down")
	}
	c.sends = append(c.sends, title+"\n"+body)
	return nil
}

func (c *captureSink) setFail(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

func (c *captureSink) message(i int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends[i]
}

func newTestService(a, b port.PriceSource, sink port.Sink) *Service {
	filter := service.NewOpportunityFilter(service.FilterParams{
		ThresholdPct:   5.0,
		CostPct:        0.5,
		NetProfitCheck: true,
		Cooldown:       time.Minute,
	}, NewHistory())

	return NewService(ServiceDeps{
		Sources:      []port.PriceSource{a, b},
		Instruments:  []string{"BTCUSDT"},
		PollInterval: 10 * time.Millisecond,
		FetchTimeout: 5 * time.Millisecond,
		MaxStaleness: 20 * time.Second,
		PriceMode:    dsvc.PriceModeMid,
		Filter:       filter,
		Dispatcher:   service.NewDispatcher([]port.Sink{sink}, time.Second),
		Repo:         NewNoopRepo(),
	})
}

func TestCycleDispatchesOpportunityOnce(t *testing.T) {
	a := &stubSource{venue: domain.VenueBybit, snap: domain.PriceSnapshot{Bid: 99.5, Ask: 100.5}}
	b := &stubSource{venue: domain.VenueHyperliquid, snap: domain.PriceSnapshot{Bid: 105.5, Ask: 106.5}}
	sink := &captureSink{}
	svc := newTestService(a, b, sink)

	svc.cycle(context.Background(), "BTCUSDT")
	if sink.count() != 1 {
		t.Fatalf("sends = %d, want exactly 1", sink.count())
	}
	msg := sink.message(0)
	for _, want := range []string{"6.00%", "buy BYBIT", "sell HYPERLIQUID"} {
		if !strings.Contains(msg, want) {
			t.Errorf("alert %q missing %q", msg, want)
		}
	}

	// same persistent spread inside the cooldown window: no second alert
	svc.cycle(context.Background(), "BTCUSDT")
	if sink.count() != 1 {
		t.Errorf("sends = %d after second cycle, want still 1", sink.count())
	}
	if a.calls != 2 || b.calls != 2 {
		t.Errorf("fetch calls = %d/%d, want 2/2 (every cycle fetches fresh)", a.calls, b.calls)
	}
}

func TestCycleSkipsOnFetchFailure(t *testing.T) {
	a := &stubSource{venue: domain.VenueBybit, snap: domain.PriceSnapshot{Bid: 99.5, Ask: 100.5}}
	b := &stubSource{
		venue: domain.VenueHyperliquid,
		err:   &port.FetchError{Venue: domain.VenueHyperliquid, Kind: port.FetchTimeout, Err: errors.New("deadline exceeded")},
	}
	sink := &captureSink{}
	svc := newTestService(a, b, sink)

	svc.cycle(context.Background(), "BTCUSDT")
	if sink.count() != 0 {
		t.Fatalf("sends = %d with one venue down, want 0", sink.count())
	}

	// the venue recovers, the next cycle works without restart
	b.err = nil
	b.snap = domain.PriceSnapshot{Bid: 105.5, Ask: 106.5}
	svc.cycle(context.Background(), "BTCUSDT")
	if sink.count() != 1 {
		t.Errorf("sends = %d after recovery, want 1", sink.count())
	}
}

func TestCycleSkipsStalePair(t *testing.T) {
	a := &stubSource{venue: domain.VenueBybit, snap: domain.PriceSnapshot{Bid: 99.5, Ask: 100.5}}
	b := &stubSource{
		venue: domain.VenueHyperliquid,
		snap:  domain.PriceSnapshot{Bid: 105.5, Ask: 106.5},
		at:    time.Now().Add(-60 * time.Second),
	}
	sink := &captureSink{}
	svc := newTestService(a, b, sink)

	svc.cycle(context.Background(), "BTCUSDT")
	if sink.count() != 0 {
		t.Errorf("sends = %d with a 60s-old snapshot against a 20s cap, want 0", sink.count())
	}
}

func TestCycleFailedDispatchHoldsCooldown(t *testing.T) {
	a := &stubSource{venue: domain.VenueBybit, snap: domain.PriceSnapshot{Bid: 99.5, Ask: 100.5}}
	b := &stubSource{venue: domain.VenueHyperliquid, snap: domain.PriceSnapshot{Bid: 105.5, Ask: 106.5}}
	sink := &captureSink{fail: true}
	svc := newTestService(a, b, sink)

	svc.cycle(context.Background(), "BTCUSDT")
	if sink.count() != 0 {
		t.Fatalf("sends = %d with a failing sink, want 0", sink.count())
	}

	// the drop is final: the window was claimed at accept time, so the
	// recovered sink stays quiet until the cooldown expires
	sink.setFail(false)
	svc.cycle(context.Background(), "BTCUSDT")
	if sink.count() != 0 {
		t.Errorf("sends = %d, want 0 inside the cooldown window", sink.count())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a := &stubSource{venue: domain.VenueBybit, snap: domain.PriceSnapshot{Bid: 99.5, Ask: 100.5}}
	b := &stubSource{venue: domain.VenueHyperliquid, snap: domain.PriceSnapshot{Bid: 99.5, Ask: 100.5}}
	svc := newTestService(a, b, &captureSink{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunRequiresTwoSources(t *testing.T) {
	a := &stubSource{venue: domain.VenueBybit, snap: domain.PriceSnapshot{Bid: 99.5, Ask: 100.5}}
	svc := NewService(ServiceDeps{
		Sources:      []port.PriceSource{a},
		Instruments:  []string{"BTCUSDT"},
		PollInterval: time.Second,
		FetchTimeout: 100 * time.Millisecond,
	})

	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("Run must refuse a single price source")
	}
}
