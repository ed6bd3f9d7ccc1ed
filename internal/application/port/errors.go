package port

import (
	"fmt"

	"spreadwatch/internal/domain"
)

// FetchKind classifies fetch failures.
type FetchKind string

const (
	FetchTimeout     FetchKind = "timeout"
	FetchAuth        FetchKind = "auth"
	FetchRateLimited FetchKind = "rate_limited"
	FetchMalformed   FetchKind = "malformed"
)

// FetchError is any failure to obtain a fresh snapshot from a venue.
type FetchError struct {
	Venue domain.Venue
	Kind  FetchKind
	Err   error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch %s: %v", e.Venue, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s fetch %s", e.Venue, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }
