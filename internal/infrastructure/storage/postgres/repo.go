package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS latest_prices (
  id BIGSERIAL PRIMARY KEY,
  venue TEXT NOT NULL,
  instrument TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL,
  UNIQUE(venue, instrument)
);
CREATE INDEX IF NOT EXISTS idx_latest_ts ON latest_prices(ts_ms);

CREATE TABLE IF NOT EXISTS opportunities (
  id TEXT PRIMARY KEY,
  instrument TEXT NOT NULL,
  spread_pct DOUBLE PRECISION NOT NULL,
  buy_venue TEXT NOT NULL,
  sell_venue TEXT NOT NULL,
  low_price DOUBLE PRECISION NOT NULL,
  high_price DOUBLE PRECISION NOT NULL,
  detected_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_detected ON opportunities(detected_at);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, venue domain.Venue, instrument string, price float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_prices(venue, instrument, price, ts_ms)
		VALUES($1, $2, $3, $4)
		ON CONFLICT(venue, instrument) DO UPDATE SET
		price=EXCLUDED.price, ts_ms=EXCLUDED.ts_ms
	`, string(venue), instrument, price, ts)
	return err
}

func (r *Repo) InsertOpportunity(ctx context.Context, ev *domain.OpportunityEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO opportunities(id, instrument, spread_pct, buy_venue, sell_venue, low_price, high_price, detected_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(id) DO NOTHING
	`, ev.ID, ev.Instrument, ev.SpreadPct, string(ev.BuyVenue), string(ev.SellVenue), ev.LowPrice, ev.HighPrice, ev.DetectedAt.UnixMilli())
	return err
}

var _ port.Repository = (*Repo)(nil)
