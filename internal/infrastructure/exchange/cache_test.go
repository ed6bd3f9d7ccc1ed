package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

func TestCacheApplyAndLatest(t *testing.T) {
	c := NewTickerCache(domain.VenueBybit)
	now := time.Now()

	ok := c.Apply(domain.PriceSnapshot{Instrument: "btcusdt", Bid: 100, Ask: 101, ObservedAt: now})
	if !ok {
		t.Fatal("first tick must be stored")
	}

	snap, ok := c.Latest("BTCUSDT", now, 20*time.Second)
	if !ok {
		t.Fatal("fresh tick must be served")
	}
	if snap.Venue != domain.VenueBybit || snap.Instrument != "BTCUSDT" {
		t.Errorf("snapshot = %+v, want normalized instrument and cache venue", snap)
	}
	if snap.Bid != 100 || snap.Ask != 101 {
		t.Errorf("prices = %v/%v, want 100/101", snap.Bid, snap.Ask)
	}
}

func TestCacheDropsOutOfOrderTicks(t *testing.T) {
	c := NewTickerCache(domain.VenueBybit)
	now := time.Now()

	c.Apply(domain.PriceSnapshot{Instrument: "BTCUSDT", Bid: 100, Ask: 101, ObservedAt: now})
	if c.Apply(domain.PriceSnapshot{Instrument: "BTCUSDT", Bid: 90, Ask: 91, ObservedAt: now.Add(-time.Second)}) {
		t.Error("older tick must be dropped")
	}
	if c.Apply(domain.PriceSnapshot{Instrument: "BTCUSDT", Bid: 90, Ask: 91, ObservedAt: now}) {
		t.Error("equal-time tick must be dropped")
	}

	snap, _ := c.Latest("BTCUSDT", now, 20*time.Second)
	if snap.Bid != 100 {
		t.Errorf("Bid = %v, want 100 from the newest tick", snap.Bid)
	}
}

func TestCacheMergesPartialUpdates(t *testing.T) {
	c := NewTickerCache(domain.VenueBybit)
	now := time.Now()

	c.Apply(domain.PriceSnapshot{Instrument: "BTCUSDT", Bid: 100, Ask: 101, Mark: 100.5, ObservedAt: now})
	// delta carries only a new bid
	c.Apply(domain.PriceSnapshot{Instrument: "BTCUSDT", Bid: 100.2, ObservedAt: now.Add(time.Second)})

	snap, ok := c.Latest("BTCUSDT", now.Add(time.Second), 20*time.Second)
	if !ok {
		t.Fatal("merged tick must be served")
	}
	if snap.Bid != 100.2 || snap.Ask != 101 || snap.Mark != 100.5 {
		t.Errorf("merged snapshot = %+v, want bid updated and the rest carried forward", snap)
	}
}

func TestCacheRefusesAgedTicks(t *testing.T) {
	c := NewTickerCache(domain.VenueHyperliquid)
	now := time.Now()

	c.Apply(domain.PriceSnapshot{Instrument: "BTCUSDT", Mark: 100, ObservedAt: now.Add(-30 * time.Second)})
	if _, ok := c.Latest("BTCUSDT", now, 20*time.Second); ok {
		t.Error("aged tick must not be served")
	}
	if _, ok := c.Latest("ETHUSDT", now, 20*time.Second); ok {
		t.Error("unknown instrument must not be served")
	}
}

func TestStreamSourceFailsClosed(t *testing.T) {
	cache := NewTickerCache(domain.VenueHyperliquid)
	src := NewStreamSource(domain.VenueHyperliquid, cache, 20*time.Second)

	_, err := src.Fetch(context.Background(), "BTCUSDT")
	var fe *port.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError on empty cache", err)
	}
	if fe.Venue != domain.VenueHyperliquid || fe.Kind != port.FetchTimeout {
		t.Errorf("classification = %s/%s, want HYPERLIQUID/timeout", fe.Venue, fe.Kind)
	}

	cache.Apply(domain.PriceSnapshot{Instrument: "BTCUSDT", Mark: 100, ObservedAt: time.Now()})
	snap, err := src.Fetch(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Fetch failed with a fresh tick: %v", err)
	}
	if snap.Mark != 100 {
		t.Errorf("Mark = %v, want 100", snap.Mark)
	}
}
