package actor

import (
	"context"
	"errors"
	"sync"
)

var ErrSessionActive = errors.New("session already resolved, sign out first")

// Resolving is satisfied by *Resolver.
type Resolving interface {
	Resolve(ctx context.Context, id Identity) (Actor, error)
}

// Session holds the actor for one signed-in user:
// Unresolved -> Doctor|Admin -> Unresolved (on sign-out).
type Session struct {
	resolver Resolving

	mu        sync.RWMutex
	current   Actor
	nextID    int
	listeners map[int]func(Actor)
}

func NewSession(r Resolving) *Session {
	return &Session{resolver: r, listeners: make(map[int]func(Actor))}
}

// Start resolves id and moves the session out of Unresolved.
func (s *Session) Start(ctx context.Context, id Identity) (Actor, error) {
	s.mu.RLock()
	active := s.current != nil
	s.mu.RUnlock()
	if active {
		return nil, ErrSessionActive
	}

	a, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	s.current = a
	fns := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(a)
	}
	return a, nil
}

// Current returns nil while unresolved.
func (s *Session) Current() Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SignOut destroys the actor. Listeners get nil.
func (s *Session) SignOut() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	s.current = nil
	fns := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

// OnChange registers fn for every resolve and sign-out. The returned func unregisters it.
func (s *Session) OnChange(fn func(Actor)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) snapshotLocked() []func(Actor) {
	fns := make([]func(Actor), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}
