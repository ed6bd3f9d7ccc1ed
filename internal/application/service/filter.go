package service

import (
	"time"

	"github.com/google/uuid"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
	dsvc "spreadwatch/internal/domain/service"
)

// FilterParams carries the filter tunables. CostPct is the estimated
// round-trip cost (both venues' taker fee plus a slippage buffer) in the
// same unit as SpreadPct.
type FilterParams struct {
	ThresholdPct   float64
	CostPct        float64
	NetProfitCheck bool
	Cooldown       time.Duration
}

// OpportunityFilter decides whether a computed spread becomes an alert.
type OpportunityFilter struct {
	params  FilterParams
	history port.AlertHistory
}

func NewOpportunityFilter(params FilterParams, history port.AlertHistory) *OpportunityFilter {
	return &OpportunityFilter{params: params, history: history}
}

// Evaluate applies the rules in order: threshold, net profit, cooldown.
// Rejection returns nil. On accept the history entry is written before
// returning, so a failed dispatch still holds the cooldown window.
func (f *OpportunityFilter) Evaluate(res dsvc.SpreadResult, now time.Time) *domain.OpportunityEvent {
	if !res.Directional() {
		return nil
	}
	if res.SpreadPct < f.params.ThresholdPct {
		return nil
	}
	if f.params.NetProfitCheck && res.SpreadPct-f.params.CostPct <= 0 {
		return nil
	}

	key := domain.AlertKey{Instrument: res.Instrument, Buy: res.BuyVenue, Sell: res.SellVenue}
	if last, ok := f.history.Get(key); ok && now.Sub(last) < f.params.Cooldown {
		return nil
	}

	ev := &domain.OpportunityEvent{
		ID:         uuid.NewString(),
		Instrument: res.Instrument,
		SpreadPct:  res.SpreadPct,
		BuyVenue:   res.BuyVenue,
		SellVenue:  res.SellVenue,
		LowPrice:   res.LowPrice,
		HighPrice:  res.HighPrice,
		DetectedAt: now,
	}
	f.history.Set(key, now)
	return ev
}
