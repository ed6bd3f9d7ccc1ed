package sqlite

import (
	"context"
	"database/sql"
	"time"

	"spreadwatch/internal/domain"
)

// OpportunityRepo 机会查询仓储, 与 Repo 共用一个连接
// 写路径走 Repo.InsertOpportunity, 这里只读
type OpportunityRepo struct {
	db *sql.DB
}

func NewOpportunityRepo(db *sql.DB) *OpportunityRepo {
	return &OpportunityRepo{db: db}
}

// GetLatestByInstrument 获取指定交易对最近一次记录的机会
func (or *OpportunityRepo) GetLatestByInstrument(ctx context.Context, instrument string) (*domain.OpportunityEvent, error) {
	row := or.db.QueryRowContext(ctx, `
		SELECT id, instrument, spread_pct, buy_venue, sell_venue, low_price, high_price, detected_at
		FROM opportunities
		WHERE instrument = ?
		ORDER BY detected_at DESC
		LIMIT 1
	`, instrument)
	return scanOpportunity(row)
}

// ListSince 按时间倒序列出一段时间内的机会
func (or *OpportunityRepo) ListSince(ctx context.Context, since time.Time, limit int) ([]*domain.OpportunityEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := or.db.QueryContext(ctx, `
		SELECT id, instrument, spread_pct, buy_venue, sell_venue, low_price, high_price, detected_at
		FROM opportunities
		WHERE detected_at >= ?
		ORDER BY detected_at DESC
		LIMIT ?
	`, since.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.OpportunityEvent
	for rows.Next() {
		ev, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountByInstrument 统计指定交易对的机会条数
func (or *OpportunityRepo) CountByInstrument(ctx context.Context, instrument string) (int, error) {
	var count int
	err := or.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM opportunities WHERE instrument = ?`, instrument).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(row rowScanner) (*domain.OpportunityEvent, error) {
	var ev domain.OpportunityEvent
	var buy, sell string
	var detectedMs int64
	err := row.Scan(&ev.ID, &ev.Instrument, &ev.SpreadPct, &buy, &sell, &ev.LowPrice, &ev.HighPrice, &detectedMs)
	if err != nil {
		return nil, err
	}
	ev.BuyVenue = domain.Venue(buy)
	ev.SellVenue = domain.Venue(sell)
	ev.DetectedAt = time.UnixMilli(detectedMs)
	return &ev, nil
}
