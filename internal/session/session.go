// Package session holds per-user session context. Every store operation
// receives a Session so the caller identity and the active backend selector
// travel together instead of living in globals.
package session

import (
	"sync"
	"time"

	"salakbook/internal/repository"
)

// Session identifies one authenticated caller and the backend its store
// operations run against.
type Session struct {
	Username  string
	Backend   *repository.Selector
	StartedAt time.Time
}

// Manager tracks live sessions keyed by username.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	backend  *repository.Selector
	now      func() time.Time
}

// NewManager creates a session manager bound to the process-wide backend
// selector.
func NewManager(backend *repository.Selector) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		backend:  backend,
		now:      time.Now,
	}
}

// Start opens a session for the user, reusing a live one when present.
func (m *Manager) Start(username string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, exists := m.sessions[username]; exists {
		return sess
	}
	sess := &Session{Username: username, Backend: m.backend, StartedAt: m.now()}
	m.sessions[username] = sess
	return sess
}

// Get retrieves the user's live session, or nil when none is open.
func (m *Manager) Get(username string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[username]
}

// End tears the user's session down.
func (m *Manager) End(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, username)
}
