// Package exchange carries the pieces shared by every venue adapter: fetch
// guarding, error classification, the stream tick cache, and symbol
// conversion.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// Classify wraps a transport-level failure into a FetchError. Errors that
// already carry a classification pass through untouched.
func Classify(venue domain.Venue, err error) error {
	if err == nil {
		return nil
	}
	var fe *port.FetchError
	if errors.As(err, &fe) {
		return err
	}

	kind := port.FetchTimeout
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		kind = port.FetchRateLimited
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = port.FetchTimeout
	default:
		var nerr net.Error
		if !errors.As(err, &nerr) {
			kind = port.FetchMalformed
		}
	}
	return &port.FetchError{Venue: venue, Kind: kind, Err: err}
}

// KindForStatus maps an HTTP status to the fetch failure taxonomy.
func KindForStatus(code int) port.FetchKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return port.FetchAuth
	case http.StatusTooManyRequests:
		return port.FetchRateLimited
	default:
		return port.FetchMalformed
	}
}

// ParsePrice parses a venue price string, rejecting non-positive and
// non-finite values.
func ParsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("price out of range: %q", s)
	}
	return v, nil
}

// MinDuration returns the minimum of two durations
func MinDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// BuildQueryURL builds a URL with query parameters
func BuildQueryURL(base, path, query string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", errors.New("base url is empty")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = path
	u.RawQuery = query
	return u.String(), nil
}
