package store

import (
	"context"
	"sync"
	"time"

	"casino-webhook-backend/internal/catalog"
)

// History is a capacity-bounded in-memory interaction log, used when no
// database is configured. Oldest entries are dropped once the capacity
// is reached.
type History struct {
	mu      sync.Mutex
	entries []catalog.Interaction
	nextID  int64
	max     int
	now     func() time.Time
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = 1000
	}
	return &History{max: max, nextID: 1, now: time.Now}
}

func (h *History) Record(_ context.Context, intent string, parameters map[string]string, responseText string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	params := make(map[string]string, len(parameters))
	for k, v := range parameters {
		params[k] = v
	}
	h.entries = append(h.entries, catalog.Interaction{
		ID:         h.nextID,
		Intent:     intent,
		Parameters: params,
		Response:   responseText,
		Date:       h.now(),
	})
	h.nextID++
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	return nil
}

// Recent returns up to limit interactions, newest first.
func (h *History) Recent(_ context.Context, limit int) ([]catalog.Interaction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.entries) {
		limit = len(h.entries)
	}
	out := make([]catalog.Interaction, 0, limit)
	for i := len(h.entries) - 1; i >= len(h.entries)-limit; i-- {
		out = append(out, h.entries[i])
	}
	return out, nil
}
