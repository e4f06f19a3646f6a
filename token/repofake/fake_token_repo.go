package tokenfakerepo

import (
	"context"
	"sync"

	apperrors "github.com/jrsteele09/pinterest-auth/internal/errors"
	"github.com/jrsteele09/pinterest-auth/token"
)

var _ token.Store = (*FakeTokenStore)(nil)

// FakeTokenStore keeps the access token in memory. SetErr, when non-nil, is
// returned from every Set so tests can exercise persistence failures.
type FakeTokenStore struct {
	value  string
	exists bool
	writes int
	SetErr error
	lock   sync.RWMutex
}

func NewFakeTokenStore() *FakeTokenStore {
	return &FakeTokenStore{}
}

func (s *FakeTokenStore) Get(ctx context.Context) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if !s.exists {
		return "", token.ErrNotFound
	}
	return s.value, nil
}

func (s *FakeTokenStore) Set(ctx context.Context, accessToken string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	if accessToken == "" {
		return apperrors.ErrEmptyToken
	}
	s.value = accessToken
	s.exists = true
	s.writes++
	return nil
}

// Writes reports how many successful Set calls were made.
func (s *FakeTokenStore) Writes() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.writes
}
