package session

import (
	"context"
	"sync"
	"time"

	"warehouse-assistant/internal/nlp/entity"
	"warehouse-assistant/internal/nlp/intent"
)

// MemoryStore is a process-local Store with idle-timeout eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Context
	ttl      time.Duration
	now      func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a store that evicts sessions idle for ttl.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Context),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the session, or false when it is missing or expired.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Context, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.sessions[sessionID]
	if !ok || s.expired(c, s.now()) {
		return nil, false, nil
	}
	return c.clone(), true, nil
}

func (s *MemoryStore) Update(_ context.Context, sessionID, userID string, in intent.Intent, entities []entity.Entity) (*Context, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.sessions[sessionID]
	if !ok || s.expired(c, now) {
		c = &Context{SessionID: sessionID, CreatedAt: now}
		s.sessions[sessionID] = c
	}
	c.apply(userID, in, entities, now)
	return c.clone(), nil
}

// Sweep evicts expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.sessions {
		if s.expired(c, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps every interval until ctx is cancelled. The returned
// channel is closed once the janitor has stopped.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(s.now())
			}
		}
	}()
	return done
}

// Len returns the number of stored sessions, expired ones included until
// the next sweep.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*Context)
	return nil
}

func (s *MemoryStore) expired(c *Context, now time.Time) bool {
	return s.ttl > 0 && now.Sub(c.LastSeenAt) > s.ttl
}
