package domain

import "time"

// OpportunityEvent is a spread that passed every filter rule. Immutable once
// constructed; dispatched at most once and never re-sent.
type OpportunityEvent struct {
	ID         string
	Instrument string
	SpreadPct  float64
	BuyVenue   Venue
	SellVenue  Venue
	LowPrice   float64
	HighPrice  float64
	DetectedAt time.Time
}

// AlertKey is the cooldown bucket for an event: same instrument and same
// direction share one window, the opposite direction does not.
type AlertKey struct {
	Instrument string
	Buy        Venue
	Sell       Venue
}

// Key returns the event's cooldown bucket.
func (e OpportunityEvent) Key() AlertKey {
	return AlertKey{Instrument: e.Instrument, Buy: e.BuyVenue, Sell: e.SellVenue}
}
