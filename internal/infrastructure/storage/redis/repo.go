package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"

	"github.com/redis/go-redis/v9"
)

type Repo struct {
	rdb         *redis.Client
	prefix      string
	ttl         time.Duration
	keyLatest   string // prefix + ":latest"
	eventStream string
	eventChan   string
}

type LatestPrice struct {
	Venue      string  `json:"venue"`
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Ts         int64   `json:"ts"`
}

type eventPayload struct {
	ID         string  `json:"id"`
	Instrument string  `json:"instrument"`
	SpreadPct  float64 `json:"spread_pct"`
	BuyVenue   string  `json:"buy_venue"`
	SellVenue  string  `json:"sell_venue"`
	LowPrice   float64 `json:"low_price"`
	HighPrice  float64 `json:"high_price"`
	TsMs       int64   `json:"ts_ms"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, eventStream, eventChan string) *Repo {
	if strings.TrimSpace(eventStream) == "" {
		eventStream = prefix + ":events"
	}
	if strings.TrimSpace(eventChan) == "" {
		eventChan = prefix + ":events:pub"
	}
	return &Repo{
		rdb:         rdb,
		prefix:      prefix,
		ttl:         ttl,
		keyLatest:   prefix + ":latest",
		eventStream: eventStream,
		eventChan:   eventChan,
	}
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, venue domain.Venue, instrument string, price float64, ts int64) error {
	if price <= 0 {
		return nil
	}
	lp := LatestPrice{Venue: string(venue), Instrument: instrument, Price: price, Ts: ts}
	b, _ := json.Marshal(lp)

	// Hash: field = "BYBIT:BTCUSDT" -> json
	field := fmt.Sprintf("%s:%s", venue, instrument)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, field, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertOpportunity(ctx context.Context, ev *domain.OpportunityEvent) error {
	payload := eventPayload{
		ID:         ev.ID,
		Instrument: ev.Instrument,
		SpreadPct:  ev.SpreadPct,
		BuyVenue:   string(ev.BuyVenue),
		SellVenue:  string(ev.SellVenue),
		LowPrice:   ev.LowPrice,
		HighPrice:  ev.HighPrice,
		TsMs:       ev.DetectedAt.UnixMilli(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// 1) Stream: XADD <stream> * id instrument spread payload
	_, err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.eventStream,
		Values: map[string]any{
			"id":         payload.ID,
			"ts_ms":      payload.TsMs,
			"instrument": payload.Instrument,
			"spread_pct": payload.SpreadPct,
			"payload":    string(b),
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	// 用最简单的 JSON，便于消费者
	return r.rdb.Publish(ctx, r.eventChan, string(b)).Err()
}

// Close 空操作, redis.Client 由容器统一关闭
func (r *Repo) Close() error { return nil }

var _ port.Repository = (*Repo)(nil)
