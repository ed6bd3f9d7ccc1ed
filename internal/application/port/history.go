package port

import (
	"time"

	"spreadwatch/internal/domain"
)

// AlertHistory tracks the last alert time per (instrument, direction)
// bucket. In-process only: it starts empty on every run, so a restart
// resets every cooldown window.
type AlertHistory interface {
	Get(key domain.AlertKey) (time.Time, bool)
	Set(key domain.AlertKey, at time.Time)
}
