package exchange

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Guard wraps a venue's outbound calls with a local token bucket and a
// circuit breaker. The bucket paces requests under the venue's public
// limits; the breaker stops hammering a venue that keeps failing.
type Guard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewGuard(name string, rps float64, burst int) *Guard {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}

	return &Guard{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// Do runs fn once the bucket admits it, counted by the breaker. An open
// breaker surfaces as gobreaker.ErrOpenState for Classify to map.
func (g *Guard) Do(ctx context.Context, fn func() error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := g.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// State exposes the breaker state for logs.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}
