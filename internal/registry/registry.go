// Package registry keeps at most one live session per profile id.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/carlosrabelo/terminalnator/internal/logging"
	"github.com/carlosrabelo/terminalnator/internal/session"
)

var (
	ErrAlreadyConnecting = errors.New("connection already in progress")
	ErrCapacityExceeded  = errors.New("session capacity exceeded")
)

// Kind classifies registry errors.
type Kind int

const (
	KindAlreadyConnecting Kind = iota
	KindCapacityExceeded
)

// Error is returned when the registry refuses to start an open.
type Error struct {
	Kind      Kind
	ProfileID int
	Max       int
}

func (e *Error) Error() string {
	if e.Kind == KindCapacityExceeded {
		return fmt.Sprintf("profile %d: acquire session: %s (max %d)", e.ProfileID, ErrCapacityExceeded, e.Max)
	}
	return fmt.Sprintf("profile %d: acquire session: %s", e.ProfileID, ErrAlreadyConnecting)
}

func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindAlreadyConnecting:
		return target == ErrAlreadyConnecting
	case KindCapacityExceeded:
		return target == ErrCapacityExceeded
	}
	return false
}

// Opener dials a new session. It runs at most once per id at a time.
type Opener func(ctx context.Context) (*session.Session, error)

// call is an open in flight. done is closed once sess and err are set.
type call struct {
	done chan struct{}
	sess *session.Session
	err  error
}

// Registry maps profile ids to live sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[int]*session.Session
	pending  map[int]*call

	// slots counts live and opening sessions; nil means unlimited.
	slots  *semaphore.Weighted
	max    int
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates a registry allowing maxSessions concurrent sessions, live and
// opening. Zero or negative means no limit.
func New(maxSessions int, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[int]*session.Session),
		pending:  make(map[int]*call),
		logger:   logging.NewNop(),
	}
	if maxSessions > 0 {
		r.max = maxSessions
		r.slots = semaphore.NewWeighted(int64(maxSessions))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the live session for id, or opens one. Concurrent callers
// for the same id share a single opener call and receive the same session or
// the same error. Waiters give up when ctx is done.
func (r *Registry) Acquire(ctx context.Context, id int, opener Opener) (*session.Session, error) {
	return r.acquire(ctx, id, opener, true)
}

// TryAcquire is like Acquire but fails with ErrAlreadyConnecting instead of
// waiting for an open in flight.
func (r *Registry) TryAcquire(ctx context.Context, id int, opener Opener) (*session.Session, error) {
	return r.acquire(ctx, id, opener, false)
}

func (r *Registry) acquire(ctx context.Context, id int, opener Opener, wait bool) (*session.Session, error) {
	r.mu.Lock()
	for {
		s, ok := r.sessions[id]
		if !ok {
			break
		}
		if live(s) {
			r.mu.Unlock()
			return s, nil
		}
		// A closing session keeps its entry and slot until its transport is
		// closed; the close hook removes both.
		r.mu.Unlock()
		select {
		case <-s.Done():
		case <-ctx.Done():
			return nil, fmt.Errorf("profile %d: waiting for previous session to close: %w", id, ctx.Err())
		}
		r.mu.Lock()
	}
	if c, ok := r.pending[id]; ok {
		r.mu.Unlock()
		if !wait {
			return nil, &Error{Kind: KindAlreadyConnecting, ProfileID: id}
		}
		select {
		case <-c.done:
			return c.sess, c.err
		case <-ctx.Done():
			return nil, fmt.Errorf("profile %d: waiting for session: %w", id, ctx.Err())
		}
	}
	if r.slots != nil && !r.slots.TryAcquire(1) {
		r.mu.Unlock()
		return nil, &Error{Kind: KindCapacityExceeded, ProfileID: id, Max: r.max}
	}
	c := &call{done: make(chan struct{})}
	r.pending[id] = c
	r.mu.Unlock()

	r.open(ctx, id, opener, c)
	return c.sess, c.err
}

// open runs opener outside the registry lock and publishes the outcome.
func (r *Registry) open(ctx context.Context, id int, opener Opener, c *call) {
	finished := false
	defer func() {
		if !finished {
			r.complete(id, c, nil, fmt.Errorf("profile %d: session opener panicked", id))
		}
	}()

	r.logger.Debug("opening session", "profile_id", id)
	sess, err := opener(ctx)
	if err == nil && sess == nil {
		err = fmt.Errorf("profile %d: session opener returned no session", id)
	}
	finished = true
	r.complete(id, c, sess, err)
}

func (r *Registry) complete(id int, c *call, sess *session.Session, err error) {
	r.mu.Lock()
	delete(r.pending, id)
	if err == nil {
		r.sessions[id] = sess
	}
	r.mu.Unlock()

	c.sess, c.err = sess, err
	close(c.done)

	if err != nil {
		r.releaseSlot()
		r.logger.Debug("session open failed", "profile_id", id, "err", err)
		return
	}
	sess.OnClose(func(s *session.Session) { r.forget(id, s) })
}

// forget drops a closed session and frees its slot.
func (r *Registry) forget(id int, s *session.Session) {
	r.releaseSlot()
	r.mu.Lock()
	if cur, ok := r.sessions[id]; ok && cur == s {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
}

func (r *Registry) releaseSlot() {
	if r.slots != nil {
		r.slots.Release(1)
	}
}

// Release closes the session for id. The entry and its slot are dropped by
// the session's close hook once the transport is closed, so a concurrent
// Acquire for id waits instead of dialing next to a closing connection.
// Absent ids are a no-op.
func (r *Registry) Release(id int) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("profile %d: release session: %w", id, err)
	}
	return nil
}

// Get returns the live session for id.
func (r *Registry) Get(id int) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !live(s) {
		return nil, false
	}
	return s, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if live(s) {
			n++
		}
	}
	return n
}

// Shutdown closes every live session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	for _, s := range all {
		if err := s.Close(); err != nil {
			r.logger.Warn("failed to close session", "profile_id", s.ProfileID(), "err", err)
		}
	}
}

func live(s *session.Session) bool {
	st := s.State()
	return st != session.StateClosing && st != session.StateClosed
}
