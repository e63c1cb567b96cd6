// Package auth gates access behind a shared secret. Each successful login
// yields an independent Session keyed by a random id; there is no global
// authenticated flag.
package auth

import (
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned for a wrong password or when no
	// secret is configured.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSession is returned by Lookup for unknown or ended sessions.
	ErrNoSession = errors.New("no such session")
)

// Session is one authenticated client.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager checks passwords and tracks live sessions. Safe for concurrent use.
type Manager struct {
	secret []byte
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the session timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager returns a Manager for secret. An empty secret rejects every login.
func NewManager(secret string, opts ...Option) *Manager {
	m := &Manager{
		secret:   []byte(secret),
		now:      time.Now,
		sessions: make(map[string]Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login starts a new session when password matches the secret.
func (m *Manager) Login(password string) (Session, error) {
	if len(m.secret) == 0 || subtle.ConstantTimeCompare([]byte(password), m.secret) != 1 {
		return Session{}, ErrInvalidCredentials
	}
	s := Session{ID: uuid.NewString(), CreatedAt: m.now().UTC()}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Lookup returns the live session for id.
func (m *Manager) Lookup(id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNoSession
	}
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Logout ends the session; it reports whether one existed.
func (m *Manager) Logout(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
