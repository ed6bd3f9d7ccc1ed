package service

import (
	"fmt"
	"time"

	"spreadwatch/internal/domain"
)

// PriceMode selects which quotes feed the spread computation.
type PriceMode string

const (
	// PriceModeMid compares bid/ask midpoints, mark price as fallback.
	PriceModeMid PriceMode = "mid"
	// PriceModeCross compares the executable crossing: buy at one venue's
	// ask, sell at the other venue's bid.
	PriceModeCross PriceMode = "cross"
)

// SpreadResult is the derived comparison of one aligned pair. Recomputed
// every cycle, never carried across cycles.
type SpreadResult struct {
	Instrument string
	SpreadPct  float64
	BuyVenue   domain.Venue
	SellVenue  domain.Venue
	LowPrice   float64
	HighPrice  float64
	ObservedAt time.Time
}

// Directional reports whether the result carries a buy/sell assignment.
// Tied or non-positive spreads do not.
func (r SpreadResult) Directional() bool {
	return r.BuyVenue != "" && r.SellVenue != ""
}

// InvalidPriceError reports a non-positive reference price. Dividing by it
// would be meaningless, and upstream data that bad must surface loudly.
type InvalidPriceError struct {
	Venue domain.Venue
	Price float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %v from %s", e.Price, e.Venue)
}

// ComputeSpread derives the relative spread and its direction from an
// aligned pair. Pure: identical input yields identical output.
func ComputeSpread(pair domain.AlignedPair, mode PriceMode) (SpreadResult, error) {
	if mode == PriceModeCross {
		return computeCross(pair)
	}
	return computeMid(pair)
}

func computeMid(pair domain.AlignedPair) (SpreadResult, error) {
	pa, ok := pair.A.Mid()
	if !ok || pa <= 0 {
		return SpreadResult{}, &InvalidPriceError{Venue: pair.A.Venue, Price: pa}
	}
	pb, ok := pair.B.Mid()
	if !ok || pb <= 0 {
		return SpreadResult{}, &InvalidPriceError{Venue: pair.B.Venue, Price: pb}
	}

	res := SpreadResult{
		Instrument: pair.A.Instrument,
		ObservedAt: laterOf(pair.A.ObservedAt, pair.B.ObservedAt),
	}
	if pa == pb {
		// tie: zero spread, no direction
		res.LowPrice = pa
		res.HighPrice = pb
		return res, nil
	}

	low, high := pa, pb
	buy, sell := pair.A.Venue, pair.B.Venue
	if pb < pa {
		low, high = pb, pa
		buy, sell = pair.B.Venue, pair.A.Venue
	}
	res.SpreadPct = (high - low) / low * 100
	res.BuyVenue = buy
	res.SellVenue = sell
	res.LowPrice = low
	res.HighPrice = high
	return res, nil
}

func computeCross(pair domain.AlignedPair) (SpreadResult, error) {
	if !pair.A.HasBook() {
		return SpreadResult{}, &InvalidPriceError{Venue: pair.A.Venue, Price: worstQuote(pair.A)}
	}
	if !pair.B.HasBook() {
		return SpreadResult{}, &InvalidPriceError{Venue: pair.B.Venue, Price: worstQuote(pair.B)}
	}

	res := SpreadResult{
		Instrument: pair.A.Instrument,
		ObservedAt: laterOf(pair.A.ObservedAt, pair.B.ObservedAt),
	}

	// buy where the ask is low, sell where the bid is high
	edgeAB := (pair.B.Bid - pair.A.Ask) / pair.A.Ask * 100
	edgeBA := (pair.A.Bid - pair.B.Ask) / pair.B.Ask * 100

	switch {
	case edgeAB <= 0 && edgeBA <= 0:
		// books overlap, nothing executable in either direction
		return res, nil
	case edgeAB >= edgeBA:
		res.SpreadPct = edgeAB
		res.BuyVenue, res.SellVenue = pair.A.Venue, pair.B.Venue
		res.LowPrice, res.HighPrice = pair.A.Ask, pair.B.Bid
	default:
		res.SpreadPct = edgeBA
		res.BuyVenue, res.SellVenue = pair.B.Venue, pair.A.Venue
		res.LowPrice, res.HighPrice = pair.B.Ask, pair.A.Bid
	}
	return res, nil
}

func worstQuote(s domain.PriceSnapshot) float64 {
	if s.Bid <= 0 {
		return s.Bid
	}
	return s.Ask
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
