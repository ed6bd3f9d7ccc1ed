package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// DispatchError reports that no sink accepted an event.
type DispatchError struct {
	EventID string
	Reasons []string
}

func (e *DispatchError) Error() string {
	return "dispatch failed on every sink: " + strings.Join(e.Reasons, "; ")
}

// Dispatcher hands accepted events to the notification sinks. At-most-once:
// a failed delivery is logged and dropped, never retried. A late alert about
// a window that already closed is worse than no alert.
type Dispatcher struct {
	sinks   []port.Sink
	timeout time.Duration
}

func NewDispatcher(sinks []port.Sink, timeout time.Duration) *Dispatcher {
	return &Dispatcher{sinks: sinks, timeout: timeout}
}

// Dispatch formats the event and offers it to every sink. It succeeds when
// at least one sink delivers and returns *DispatchError when all fail.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *domain.OpportunityEvent) error {
	if len(d.sinks) == 0 {
		return &DispatchError{EventID: ev.ID, Reasons: []string{"no sinks configured"}}
	}

	title, body := FormatAlert(ev)

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	delivered := 0
	var reasons []string
	for _, s := range d.sinks {
		if err := s.Send(ctx, title, body); err != nil {
			log.Error().
				Str("sink", s.Name()).
				Str("event_id", ev.ID).
				Str("instrument", ev.Instrument).
				Err(err).
				Msg("sink delivery failed")
			reasons = append(reasons, s.Name()+": "+err.Error())
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return &DispatchError{EventID: ev.ID, Reasons: reasons}
	}
	return nil
}
