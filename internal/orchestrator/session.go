package orchestrator

import (
	"sync"
	"time"

	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/metrics"
	"github.com/trymeuj/aiva/internal/planner"
	"github.com/trymeuj/aiva/internal/slots"
)

// State is the conversation phase of a session.
type State string

const (
	StateIdle       State = "idle"
	StateGathering  State = "gathering_parameters"
	StateConfirming State = "confirming_execution"
)

// Session holds everything the agent knows about one conversation. Fields
// other than ID are only touched by the agent while holding the session's
// turn; the manager serializes turns per session.
type Session struct {
	ID           string
	State        State
	Intent       string
	Matches      []catalog.Match
	Collected    map[string]any
	Missing      []slots.Missing
	Plan         *planner.Plan
	LastActivity time.Time

	mu sync.Mutex
}

func newSession(id string) *Session {
	return &Session{
		ID:           id,
		State:        StateIdle,
		Collected:    make(map[string]any),
		LastActivity: time.Now(),
	}
}

// reset returns the session to idle and drops all pending task state. The
// transcript is kept; only the in-flight task is discarded.
func (s *Session) reset() {
	s.State = StateIdle
	s.Intent = ""
	s.Matches = nil
	s.Collected = make(map[string]any)
	s.Missing = nil
	s.Plan = nil
}

// Manager tracks live sessions by ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the session for id, creating it on first use.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = newSession(id)
		m.sessions[id] = s
		metrics.SetActiveSessions(len(m.sessions))
	}
	return s
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Evict removes sessions idle longer than ttl and returns their IDs so the
// caller can clean up associated state such as transcripts.
func (m *Manager) Evict(ttl time.Duration) []string {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	var evicted []string
	for id, s := range m.sessions {
		// LastActivity is written under the session lock. A session
		// mid-turn holds that lock, so this waits out the turn and then
		// sees the fresh timestamp instead of evicting a live session.
		s.mu.Lock()
		stale := s.LastActivity.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		metrics.SetActiveSessions(len(m.sessions))
	}
	return evicted
}

// Remove drops a single session, e.g. when its connection closes for good.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		metrics.SetActiveSessions(len(m.sessions))
	}
}
