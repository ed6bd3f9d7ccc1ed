package exchange

import (
	"strings"
	"sync"
	"time"

	"spreadwatch/internal/domain"
)

// TickerCache 保存某个交易所每个交易对的最新行情
// 由 ws feed 写入，StreamSource 读取
type TickerCache struct {
	mu    sync.Mutex
	venue domain.Venue
	snaps map[string]domain.PriceSnapshot
}

func NewTickerCache(venue domain.Venue) *TickerCache {
	return &TickerCache{
		venue: venue,
		snaps: make(map[string]domain.PriceSnapshot),
	}
}

// Apply 合并一条增量行情，返回是否有更新
// 缺失的字段沿用上一条的值；时间戳不前进的消息直接丢弃
func (c *TickerCache) Apply(snap domain.PriceSnapshot) bool {
	inst := strings.ToUpper(strings.TrimSpace(snap.Instrument))
	if inst == "" || snap.ObservedAt.IsZero() {
		return false
	}
	snap.Instrument = inst
	snap.Venue = c.venue

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.snaps[inst]
	if ok {
		if !snap.ObservedAt.After(prev.ObservedAt) {
			return false
		}
		if snap.Bid <= 0 {
			snap.Bid = prev.Bid
		}
		if snap.Ask <= 0 {
			snap.Ask = prev.Ask
		}
		if snap.Mark <= 0 {
			snap.Mark = prev.Mark
		}
	}
	c.snaps[inst] = snap
	return true
}

// Latest returns the stored snapshot when its age is within maxAge. A cache
// gap or an aged tick yields ok=false, never a stale price.
func (c *TickerCache) Latest(instrument string, now time.Time, maxAge time.Duration) (domain.PriceSnapshot, bool) {
	inst := strings.ToUpper(strings.TrimSpace(instrument))
	if inst == "" {
		return domain.PriceSnapshot{}, false
	}

	c.mu.Lock()
	snap, ok := c.snaps[inst]
	c.mu.Unlock()

	if !ok || now.Sub(snap.ObservedAt) > maxAge {
		return domain.PriceSnapshot{}, false
	}
	return snap, true
}

// Len reports how many instruments hold a tick.
func (c *TickerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}
