// Package session holds the console's browser-session state: the bearer
// credential and user record obtained at login, and the transient challenge
// kept while a two-factor prompt is outstanding. Everything lives in process
// memory only; nothing survives a restart.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claritel/admin-console/types"
)

// Session binds a browser to an authenticated platform user and the access
// token used on every API call made on its behalf.
type Session struct {
	ID        string
	Token     string
	User      types.User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Challenge is the state of an in-progress two-factor login. TempToken is
// scoped to completing the challenge and must never be sent to any other
// endpoint; it stays server-side for that reason.
type Challenge struct {
	ID        string
	TempToken string
	Email     string
	ExpiresAt time.Time
}

// Manager is the process-wide session store. Sessions are created by
// Establish and destroyed by Clear; no other code path mutates them apart
// from SetUser, which updates the user record in place after MFA enrollment.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	challenges map[string]*Challenge

	ttl          time.Duration
	challengeTTL time.Duration
	now          func() time.Time
}

// NewManager constructs a Manager with the given session and challenge
// lifetimes.
func NewManager(ttl, challengeTTL time.Duration) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		challenges:   make(map[string]*Challenge),
		ttl:          ttl,
		challengeTTL: challengeTTL,
		now:          time.Now,
	}
}

// Establish creates a session for the given user and access token and
// returns a copy of it.
func (m *Manager) Establish(user types.User, token string) Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Token:     token,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return *s
}

// Get returns a copy of the session with the given ID. Expired sessions are
// dropped and read as absent.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	if m.now().After(s.ExpiresAt) {
		delete(m.sessions, id)
		return Session{}, false
	}
	return *s, true
}

// Clear destroys the session with the given ID. Clearing an unknown ID is a
// no-op.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// SetUser replaces the user record on an existing session, e.g. after the
// user enables MFA. It reports whether the session existed.
func (m *Manager) SetUser(id string, user types.User) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.User = user
	return true
}

// BeginChallenge records an in-progress two-factor login and returns a copy
// of the challenge. No session exists until the challenge is resolved.
func (m *Manager) BeginChallenge(tempToken, email string) Challenge {
	c := &Challenge{
		ID:        uuid.NewString(),
		TempToken: tempToken,
		Email:     email,
		ExpiresAt: m.now().Add(m.challengeTTL),
	}

	m.mu.Lock()
	m.challenges[c.ID] = c
	m.mu.Unlock()

	return *c
}

// Challenge returns a copy of the pending challenge with the given ID.
// Expired challenges are dropped and read as absent. The challenge stays
// pending so a failed code entry can be retried.
func (m *Manager) Challenge(id string) (Challenge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.challenges[id]
	if !ok {
		return Challenge{}, false
	}
	if m.now().After(c.ExpiresAt) {
		delete(m.challenges, id)
		return Challenge{}, false
	}
	return *c, true
}

// ResolveChallenge removes a pending challenge once verification succeeded
// or the login was abandoned.
func (m *Manager) ResolveChallenge(id string) {
	m.mu.Lock()
	delete(m.challenges, id)
	m.mu.Unlock()
}
