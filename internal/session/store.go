// Package session holds the authentication state of one browser and
// mirrors it to a persisted record so a session survives page reloads.
package session

import (
	"sync"
	"time"

	"github.com/iliyamo/seatify-gateway/internal/model"
)

// Listener is called after every change with the previous and new session.
type Listener func(prev, next model.Session)

// Store is the authoritative session for one browser.  It is safe for
// concurrent use.  The zero value is not usable; call NewStore.
type Store struct {
	mu        sync.RWMutex
	cur       model.Session
	version   uint64
	listeners map[int]Listener
	nextID    int
}

// NewStore returns an anonymous store.
func NewStore() *Store {
	return &Store{cur: anonymous(), listeners: map[int]Listener{}}
}

func anonymous() model.Session { return model.Session{Roles: []string{}} }

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Clone()
}

// Token returns the bearer token, empty when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Token
}

// Roles returns a copy of the role list.
func (s *Store) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.cur.Roles...)
}

// Email returns the signed-in user's email.
func (s *Store) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Email
}

// Authenticated reports whether a token is held.
func (s *Store) Authenticated() bool { return s.Token() != "" }

// HasRole reports whether the current session carries role.
func (s *Store) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.HasRole(role)
}

// Version increases by one on every Set or Clear.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Set replaces the session.  A session without a token is stored as the
// anonymous session, so roles and email never outlive the token.
func (s *Store) Set(next model.Session) {
	next = next.Clone()
	if next.Token == "" {
		next = anonymous()
	}
	if next.Roles == nil {
		next.Roles = []string{}
	}
	if next.Token != "" && next.Timestamp.IsZero() {
		next.Timestamp = time.Now()
	}
	s.swap(next)
}

// Clear resets the store to the anonymous session.
func (s *Store) Clear() { s.swap(anonymous()) }

func (s *Store) swap(next model.Session) {
	s.mu.Lock()
	prev := s.cur
	s.cur = next
	s.version++
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(prev.Clone(), next.Clone())
	}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
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

// OnTeardown calls fn whenever an authenticated session becomes anonymous.
func (s *Store) OnTeardown(fn func()) (unsubscribe func()) {
	return s.Subscribe(func(prev, next model.Session) {
		if prev.Authenticated() && !next.Authenticated() {
			fn()
		}
	})
}
