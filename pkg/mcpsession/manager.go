package mcpsession

import (
	"sync"
)

// Manager is the server's session-id -> Session table. Iteration is
// copy-on-write: Each snapshots the live sessions
// into a fresh slice before the caller ranges over it, so a concurrent
// Add/Remove during fan-out never races a handler's iteration.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager constructs an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Add registers a newly created session.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
}

// Remove deregisters a session, e.g. on transport close.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Each snapshots every currently-registered session and invokes fn on
// each one outside the lock, so fn is free to call back into the manager
// (e.g. Remove on transport death) without deadlocking.
func (m *Manager) Each(fn func(*Session)) {
	m.mu.RLock()
	snapshot := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	for _, s := range snapshot {
		fn(s)
	}
}

// Len reports how many sessions are currently registered.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// NotifyInitialized broadcasts v to every session that has completed the
// handshake (Ready state). Used for the tools/prompts/resources
// list_changed fan-out, which is scoped to initialized sessions.
func (m *Manager) NotifyInitialized(v any) {
	m.Each(func(s *Session) {
		if s.IsInitialized() {
			_ = s.Reply(v)
		}
	})
}
