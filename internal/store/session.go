package store

import (
	"strings"
	"time"
)

const (
	// SessionTimeout is how long a session may sit untouched before it
	// is considered expired.
	SessionTimeout = 5 * time.Minute
	// MaxFallbacks is the retry budget before a session is considered
	// to have exhausted its fallbacks.
	MaxFallbacks = 3

	// StateStarted is the initial state of a new session.
	StateStarted = "iniciada"
	// StateCompleted marks a session whose required slots are all filled.
	StateCompleted = "completada"

	waitingPrefix = "esperando_"
)

// Session is the in-progress slot-filling state for one conversation.
type Session struct {
	ID         string
	Intent     string
	State      string
	Parameters map[string]string
	Timestamp  time.Time
	Fallbacks  int
}

// IsExpired reports whether the session has been idle for at least the
// given timeout.
func (s *Session) IsExpired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.Timestamp) >= timeout
}

// Merge folds new parameters into the session: new keys overwrite,
// existing keys not present in the update are retained.
func (s *Session) Merge(parameters map[string]string, now time.Time) {
	if s.Parameters == nil {
		s.Parameters = make(map[string]string, len(parameters))
	}
	for k, v := range parameters {
		s.Parameters[k] = v
	}
	s.Timestamp = now
}

// SetWaitingFor moves the session into the esperando_<entity> state.
func (s *Session) SetWaitingFor(entityName string, now time.Time) {
	s.State = waitingPrefix + entityName
	s.Timestamp = now
}

// WaitingEntity returns the entity name the session is waiting for, or
// "" when it is not in a waiting state.
func (s *Session) WaitingEntity() string {
	if strings.HasPrefix(s.State, waitingPrefix) {
		return strings.TrimPrefix(s.State, waitingPrefix)
	}
	return ""
}

// HasTooManyFallbacks reports whether the fallback budget is exhausted.
func (s *Session) HasTooManyFallbacks() bool {
	return s.Fallbacks >= MaxFallbacks
}

// View is a read-only copy of a session handed out by the store, so
// callers cannot mutate stored state behind the store's back.
type View struct {
	ID         string            `json:"sessionId"`
	Intent     string            `json:"intent"`
	State      string            `json:"state"`
	Parameters map[string]string `json:"parameters"`
	Timestamp  time.Time         `json:"timestamp"`
	Fallbacks  int               `json:"fallbacks"`
}

func (s *Session) view() View {
	params := make(map[string]string, len(s.Parameters))
	for k, v := range s.Parameters {
		params[k] = v
	}
	return View{
		ID:         s.ID,
		Intent:     s.Intent,
		State:      s.State,
		Parameters: params,
		Timestamp:  s.Timestamp,
		Fallbacks:  s.Fallbacks,
	}
}
