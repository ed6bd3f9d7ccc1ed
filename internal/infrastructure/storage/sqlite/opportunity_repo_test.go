package sqlite

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"spreadwatch/internal/domain"
)

func seedOpportunities(t *testing.T, repo *Repo, base time.Time) {
	t.Helper()
	ctx := context.Background()
	events := []*domain.OpportunityEvent{
		{ID: "ev-1", Instrument: "BTCUSDT", SpreadPct: 5.5, BuyVenue: domain.VenueBybit, SellVenue: domain.VenueHyperliquid, LowPrice: 100, HighPrice: 105.5, DetectedAt: base},
		{ID: "ev-2", Instrument: "BTCUSDT", SpreadPct: 6.2, BuyVenue: domain.VenueHyperliquid, SellVenue: domain.VenueBybit, LowPrice: 100, HighPrice: 106.2, DetectedAt: base.Add(time.Minute)},
		{ID: "ev-3", Instrument: "ETHUSDT", SpreadPct: 7.0, BuyVenue: domain.VenueBybit, SellVenue: domain.VenueHyperliquid, LowPrice: 2500, HighPrice: 2675, DetectedAt: base.Add(2 * time.Minute)},
	}
	for _, ev := range events {
		if err := repo.InsertOpportunity(ctx, ev); err != nil {
			t.Fatalf("seed InsertOpportunity: %v", err)
		}
	}
}

func TestOpportunityRepoGetLatest(t *testing.T) {
	dbPath := "test_opp_latest.db"
	defer os.Remove(dbPath)

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	defer repo.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedOpportunities(t, repo, base)

	or := NewOpportunityRepo(repo.GetDB())
	ev, err := or.GetLatestByInstrument(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetLatestByInstrument failed: %v", err)
	}
	if ev.ID != "ev-2" || ev.BuyVenue != domain.VenueHyperliquid {
		t.Errorf("latest = %+v, want ev-2", ev)
	}
	if !ev.DetectedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("DetectedAt = %v", ev.DetectedAt)
	}

	if _, err := or.GetLatestByInstrument(context.Background(), "SOLUSDT"); err != sql.ErrNoRows {
		t.Errorf("missing instrument error = %v, want sql.ErrNoRows", err)
	}
}

func TestOpportunityRepoListSince(t *testing.T) {
	dbPath := "test_opp_list.db"
	defer os.Remove(dbPath)

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	defer repo.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedOpportunities(t, repo, base)

	or := NewOpportunityRepo(repo.GetDB())
	events, err := or.ListSince(context.Background(), base.Add(30*time.Second), 10)
	if err != nil {
		t.Fatalf("ListSince failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].ID != "ev-3" || events[1].ID != "ev-2" {
		t.Errorf("order = %s, %s, want newest first", events[0].ID, events[1].ID)
	}
}

func TestOpportunityRepoCount(t *testing.T) {
	dbPath := "test_opp_count.db"
	defer os.Remove(dbPath)

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	defer repo.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedOpportunities(t, repo, base)

	or := NewOpportunityRepo(repo.GetDB())
	count, err := or.CountByInstrument(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("CountByInstrument failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
