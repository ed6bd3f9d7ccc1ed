package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS latest_prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  venue TEXT NOT NULL,
  instrument TEXT NOT NULL,
  price REAL NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE(venue, instrument)
);
CREATE INDEX IF NOT EXISTS idx_latest_ts ON latest_prices(ts_ms);
CREATE INDEX IF NOT EXISTS idx_latest_instrument ON latest_prices(instrument);

CREATE TABLE IF NOT EXISTS opportunities (
  id TEXT PRIMARY KEY,
  instrument TEXT NOT NULL,
  spread_pct REAL NOT NULL,
  buy_venue TEXT NOT NULL,
  sell_venue TEXT NOT NULL,
  low_price REAL NOT NULL,
  high_price REAL NOT NULL,
  detected_at INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_instrument ON opportunities(instrument);
CREATE INDEX IF NOT EXISTS idx_opps_detected ON opportunities(detected_at);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, venue domain.Venue, instrument string, price float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_prices(venue, instrument, price, ts_ms, created_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(venue, instrument) DO UPDATE SET
		price=excluded.price, ts_ms=excluded.ts_ms
	`, string(venue), instrument, price, ts, ts)
	return err
}

func (r *Repo) InsertOpportunity(ctx context.Context, ev *domain.OpportunityEvent) error {
	detected := ev.DetectedAt.UnixMilli()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO opportunities(id, instrument, spread_pct, buy_venue, sell_venue, low_price, high_price, detected_at, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, ev.ID, ev.Instrument, ev.SpreadPct, string(ev.BuyVenue), string(ev.SellVenue), ev.LowPrice, ev.HighPrice, detected, detected)
	return err
}

var _ port.Repository = (*Repo)(nil)
