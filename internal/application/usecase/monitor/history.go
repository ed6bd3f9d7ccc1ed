package monitor

import (
	"sync"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// History is the in-memory alert history. It guards the cooldown windows
// and holds nothing across restarts.
type History struct {
	mu   sync.Mutex
	last map[domain.AlertKey]time.Time
}

func NewHistory() *History {
	return &History{last: make(map[domain.AlertKey]time.Time)}
}

func (h *History) Get(key domain.AlertKey) (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.last[key]
	return t, ok
}

func (h *History) Set(key domain.AlertKey, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[key] = at
}

// Len reports how many cooldown buckets are held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.last)
}

var _ port.AlertHistory = (*History)(nil)
