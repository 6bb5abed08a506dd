package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Memory holds conversational sessions in a mutex-guarded map. Expired
// entries are evicted when they are read; StartSweeper adds a periodic
// cleanup on top. The mutex makes concurrent turns safe within one
// process; running multiple instances still requires an external keyed
// store, since a turn performs several dependent writes per session.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewMemory builds a store expiring sessions after the given idle
// timeout. A non-positive timeout falls back to SessionTimeout.
func NewMemory(timeout time.Duration, logger zerolog.Logger) *Memory {
	if timeout <= 0 {
		timeout = SessionTimeout
	}
	return &Memory{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      time.Now,
		log:      logger.With().Str("component", "sessions").Logger(),
	}
}

// CreateOrUpdate merges parameters into an existing live session, or
// creates a fresh one when the session is absent or expired.
func (m *Memory) CreateOrUpdate(sessionID, intent string, parameters map[string]string) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.sessions[sessionID]; ok && !existing.IsExpired(now, m.timeout) {
		existing.Merge(parameters, now)
		m.log.Debug().Str("session_id", sessionID).Str("intent", intent).Msg("session updated")
		return existing.view()
	}

	params := make(map[string]string, len(parameters))
	for k, v := range parameters {
		params[k] = v
	}
	session := &Session{
		ID:         sessionID,
		Intent:     intent,
		State:      StateStarted,
		Parameters: params,
		Timestamp:  now,
	}
	m.sessions[sessionID] = session
	m.log.Debug().Str("session_id", sessionID).Str("intent", intent).Msg("session created")
	return session.view()
}

// Get returns the session, evicting it first if it has expired.
func (m *Memory) Get(sessionID string) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.liveLocked(sessionID)
	if !ok {
		return View{}, false
	}
	return session.view(), true
}

// UpdateState merges parameters and sets the session state. Returns
// false when the session is absent or expired.
func (m *Memory) UpdateState(sessionID, state string, parameters map[string]string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.liveLocked(sessionID)
	if !ok {
		return false
	}
	session.State = state
	session.Merge(parameters, m.now())
	return true
}

// IncrementFallbacks bumps the fallback counter and refreshes the
// session timestamp. Returns false when the session is absent or expired.
func (m *Memory) IncrementFallbacks(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.liveLocked(sessionID)
	if !ok {
		return false
	}
	session.Fallbacks++
	session.Timestamp = m.now()
	return true
}

// HasTooManyFallbacks reports whether a live session has exhausted its
// fallback budget. Absent or expired sessions report false.
func (m *Memory) HasTooManyFallbacks(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.liveLocked(sessionID)
	if !ok {
		return false
	}
	return session.HasTooManyFallbacks()
}

// Clear removes the session, reporting whether it was present.
func (m *Memory) Clear(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok
}

// Stats counts stored sessions partitioned by expiry at call time.
type Stats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}

func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	stats := Stats{Total: len(m.sessions)}
	for _, session := range m.sessions {
		if session.IsExpired(now, m.timeout) {
			stats.Expired++
		} else {
			stats.Active++
		}
	}
	return stats
}

// CleanupExpired removes every expired session and returns how many
// were dropped.
func (m *Memory) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, session := range m.sessions {
		if session.IsExpired(now, m.timeout) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Info().Int("count", removed).Msg("expired sessions cleaned up")
	}
	return removed
}

// StartSweeper runs CleanupExpired on the given interval until the
// returned stop function is called. Read-time eviction already upholds
// the expiry invariant; the sweeper only bounds memory growth.
func (m *Memory) StartSweeper(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CleanupExpired()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// liveLocked fetches a session, deleting and reporting absent any entry
// that has expired. Callers must hold the write lock.
func (m *Memory) liveLocked(sessionID string) (*Session, bool) {
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if session.IsExpired(m.now(), m.timeout) {
		m.log.Debug().Str("session_id", sessionID).Msg("session expired, evicting")
		delete(m.sessions, sessionID)
		return nil, false
	}
	return session, true
}
