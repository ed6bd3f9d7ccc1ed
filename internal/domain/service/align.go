package service

import (
	"fmt"
	"time"

	"spreadwatch/internal/domain"
)

// StaleDataError reports two snapshots too far apart in time to compare.
// Comparing them anyway would manufacture spreads out of latency.
type StaleDataError struct {
	Instrument string
	Divergence time.Duration
	Max        time.Duration
}

func (e *StaleDataError) Error() string {
	return fmt.Sprintf("stale pair for %s: snapshots %s apart, max %s",
		e.Instrument, e.Divergence, e.Max)
}

// Align pairs two snapshots of the same instrument, rejecting the pair when
// their observation times diverge beyond maxStaleness. Pure.
func Align(a, b domain.PriceSnapshot, maxStaleness time.Duration) (domain.AlignedPair, error) {
	if a.Instrument != b.Instrument {
		return domain.AlignedPair{}, fmt.Errorf("aligning different instruments: %s vs %s", a.Instrument, b.Instrument)
	}
	div := a.ObservedAt.Sub(b.ObservedAt)
	if div < 0 {
		div = -div
	}
	if div > maxStaleness {
		return domain.AlignedPair{}, &StaleDataError{Instrument: a.Instrument, Divergence: div, Max: maxStaleness}
	}
	return domain.AlignedPair{A: a, B: b}, nil
}
