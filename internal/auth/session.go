// ABOUTME: Session holds the single current identity of the running client
// ABOUTME: Components subscribe to identity changes instead of reading a global

package auth

import (
	"slices"
	"sync"
)

// ChangeFunc is called after the current identity changes. An empty string
// means nobody is logged in.
type ChangeFunc func(prev, next string)

// Session is the explicit replacement for a process-wide "current user".
// It is created at startup, mutated only by Store (register/login/logout/restore)
// and lives for the life of the process.
type Session struct {
	mu        sync.RWMutex
	current   string
	nextID    int
	listeners []listener
}

type listener struct {
	id int
	fn ChangeFunc
}

// NewSession returns a session with nobody logged in.
func NewSession() *Session {
	return &Session{}
}

// Current returns the logged-in identity and whether there is one.
func (s *Session) Current() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != ""
}

// Subscribe registers fn to run after every identity change. The returned
// func removes it; a change already being delivered may still reach fn.
func (s *Session) Subscribe(fn ChangeFunc) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(l listener) bool { return l.id == id })
	}
}

// set switches the identity and notifies listeners outside the lock.
func (s *Session) set(identity string) {
	s.mu.Lock()
	prev := s.current
	if prev == identity {
		s.mu.Unlock()
		return
	}
	s.current = identity
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(prev, identity)
	}
}
