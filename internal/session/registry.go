// Package session keeps one flow orchestrator per browser session.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexabank/onboarding/internal/flow"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Factory builds the orchestrator for a new session id.
type Factory func(sessionID string) *flow.Orchestrator

// Session is a live onboarding session.
type Session struct {
	ID           string
	Orchestrator *flow.Orchestrator
	CreatedAt    time.Time

	lastSeen time.Time
}

// Registry holds live sessions in memory. Sessions idle longer than the TTL are
// dropped lazily on access and when new sessions are created.
type Registry struct {
	factory Factory
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option customises a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry builds an empty registry.
func NewRegistry(factory Factory, ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a session at LANDING.
func (r *Registry) Create() *Session {
	id := uuid.NewString()
	orch := r.factory(id)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)
	s := &Session{ID: id, Orchestrator: orch, CreatedAt: now, lastSeen: now}
	r.sessions[id] = s
	return s
}

// Get returns a live session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Session, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.expired(s, now) {
		delete(r.sessions, id)
		return nil, ErrNotFound
	}
	s.lastSeen = now
	return s, nil
}

// Delete drops a session. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Len returns the number of sessions held, expired or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.now())
}

func (r *Registry) sweepLocked(now time.Time) int {
	removed := 0
	for id, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) expired(s *Session, now time.Time) bool {
	return r.ttl > 0 && now.Sub(s.lastSeen) > r.ttl
}
