package testutil

import (
	"context"
	"sync"

	"garagem/internal/garagem"
)

// StubIdentity returns a fixed current user.
type StubIdentity struct {
	mu   sync.Mutex
	user *garagem.User
	err  error
}

// NewStubIdentity returns a provider logged in as user. A nil user means
// nobody is logged in.
func NewStubIdentity(user *garagem.User) *StubIdentity {
	return &StubIdentity{user: user}
}

// TestUser is the default user for service and engine tests.
func TestUser() *garagem.User {
	return &garagem.User{ID: "user-1", Email: "ana@example.com", DisplayName: "Ana"}
}

func (s *StubIdentity) CurrentUser(context.Context) (*garagem.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil {
		return nil, nil
	}
	u := *s.user
	return &u, nil
}

// SetUser switches the logged-in user.
func (s *StubIdentity) SetUser(user *garagem.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// SetError makes CurrentUser fail.
func (s *StubIdentity) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
