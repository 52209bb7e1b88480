package client

import (
	"context"
	"errors"
	"sync"

	"github.com/monocle-dev/workspace/internal/auth"
	"github.com/monocle-dev/workspace/internal/types"
)

// Session is the client side view of the login. Init restores it from the server,
// Teardown ends it.
type Session struct {
	client *Client

	mu   sync.RWMutex
	user *types.UserResponse
}

func NewSession(c *Client) *Session {
	return &Session{client: c}
}

// Init asks the server who is logged in. An unauthorized answer leaves the session
// empty and is not an error.
func (s *Session) Init(ctx context.Context) error {
	user, err := s.client.Me(ctx)
	if err != nil {
		s.set(nil)
		if errors.Is(err, types.ErrUnauthorized) {
			return nil
		}
		return err
	}
	s.set(&user)
	return nil
}

func (s *Session) Login(ctx context.Context, email, password string) (types.UserResponse, error) {
	user, err := s.client.Login(ctx, email, password)
	if err != nil {
		return types.UserResponse{}, err
	}
	s.set(&user)
	return user, nil
}

// Teardown logs out on the server. The local session is cleared even if that fails.
func (s *Session) Teardown(ctx context.Context) error {
	s.set(nil)
	return s.client.Logout(ctx)
}

func (s *Session) set(user *types.UserResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) User() (types.UserResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return types.UserResponse{}, false
	}
	return *s.user, true
}

// Guard returns where path should redirect to for the current session, or "".
func (s *Session) Guard(path string) string {
	return auth.Guard(path, s.Authenticated())
}
