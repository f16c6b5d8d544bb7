package token

import (
	"sync/atomic"

	"github.com/dtroode/gophfeed/internal/model"
)

// Store holds the current credential pair of one session.
// Reads and writes swap the whole pair, so a reader never observes an id token
// from one pair with the refresh token of another.
type Store struct {
	current atomic.Pointer[model.Credential]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current credential, or a zero Credential when none is held.
func (s *Store) Get() model.Credential {
	if c := s.current.Load(); c != nil {
		return *c
	}
	return model.Credential{}
}

// Set replaces the current credential.
func (s *Store) Set(c model.Credential) {
	if c.IsZero() {
		s.current.Store(nil)
		return
	}
	s.current.Store(&c)
}

// Swap replaces the current credential only if it still equals old.
// It reports whether the replacement happened.
func (s *Store) Swap(old, c model.Credential) bool {
	cur := s.current.Load()
	if cur == nil {
		if !old.IsZero() {
			return false
		}
		return s.current.CompareAndSwap(nil, &c)
	}
	if *cur != old {
		return false
	}
	return s.current.CompareAndSwap(cur, &c)
}

// Clear drops the current credential.
func (s *Store) Clear() {
	s.current.Store(nil)
}

// IDToken returns the bearer token for outgoing requests.
func (s *Store) IDToken() string {
	return s.Get().IDToken
}
