package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session: not found")
	// ErrTooManySessions is returned by Create once the store is full.
	ErrTooManySessions = errors.New("session: too many live sessions")
)

type entry struct {
	session *Session
	timer   *time.Timer
}

// Store keeps sessions in memory for the duration of a visit. Sessions that
// stay idle for longer than the TTL are dropped.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	max     int
	onEvict func(id string)
}

// NewStore creates an empty store holding at most maxSessions live sessions.
// A non-positive ttl disables expiry and a non-positive maxSessions disables
// the cap.
func NewStore(ttl time.Duration, maxSessions int) *Store {
	return &Store{entries: make(map[string]*entry), ttl: ttl, max: maxSessions}
}

// OnEvict registers a callback invoked after a session expires.
func (s *Store) OnEvict(fn func(id string)) {
	s.mu.Lock()
	s.onEvict = fn
	s.mu.Unlock()
}

// Create starts a new session under a random id. It returns
// ErrTooManySessions when the store is at capacity.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	sess := New(uuid.NewString())
	e := &entry{session: sess}

	s.mu.Lock()
	if s.max > 0 && len(s.entries) >= s.max {
		live := len(s.entries)
		s.mu.Unlock()
		zerolog.Ctx(ctx).Warn().Int("live_sessions", live).Msg("session store full")
		return nil, ErrTooManySessions
	}
	if s.ttl > 0 {
		id := sess.ID
		e.timer = time.AfterFunc(s.ttl, func() { s.expire(id) })
	}
	s.entries[sess.ID] = e
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Str("session_id", sess.ID).Msg("session created")
	return sess, nil
}

// Get returns the session and pushes its expiry forward.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if e.timer != nil {
		e.timer.Reset(s.ttl)
	}
	return e.session, nil
}

// Delete removes a session before it expires.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if ok && e.timer != nil {
		e.timer.Stop()
	}
	if ok {
		zerolog.Ctx(ctx).Debug().Str("session_id", id).Msg("session deleted")
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) expire(id string) {
	s.mu.Lock()
	_, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	fn := s.onEvict
	s.mu.Unlock()

	if ok && fn != nil {
		fn(id)
	}
}
