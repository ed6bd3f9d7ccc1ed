package domain

import "time"

// Venue identifies a price source.
type Venue string

const (
	VenueBybit       Venue = "BYBIT"
	VenueHyperliquid Venue = "HYPERLIQUID"
)

// PriceSnapshot is one venue's view of an instrument at a point in time.
// Bid/Ask come from the top of the book; Mark is the venue's mark price and
// serves as a fallback when a feed carries no book (Hyperliquid streams mids
// only).
type PriceSnapshot struct {
	Venue      Venue
	Instrument string
	Bid        float64
	Ask        float64
	Mark       float64
	ObservedAt time.Time
}

// Mid returns the bid/ask midpoint, falling back to the mark price when a
// book side is missing. ok is false when no usable price exists.
func (s PriceSnapshot) Mid() (float64, bool) {
	if s.Bid > 0 && s.Ask > 0 {
		return (s.Bid + s.Ask) / 2, true
	}
	if s.Mark > 0 {
		return s.Mark, true
	}
	return 0, false
}

// HasBook reports whether both book sides are present.
func (s PriceSnapshot) HasBook() bool {
	return s.Bid > 0 && s.Ask > 0
}

// AlignedPair is two same-instrument snapshots close enough in time to be
// compared.
type AlignedPair struct {
	A PriceSnapshot
	B PriceSnapshot
}
