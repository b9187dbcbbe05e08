package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/PaulFidika/auditstore/captcha"
)

// ChallengeStore is an in-memory captcha.Store. Expired entries are dropped
// when touched and by PurgeExpired; there is no background goroutine.
type ChallengeStore struct {
	mu    sync.Mutex
	data  map[string]captcha.Challenge
	nowFn func() time.Time
}

// NewChallengeStore creates an empty store.
func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{data: make(map[string]captcha.Challenge), nowFn: time.Now}
}

// WithClock overrides the time source used for expiry.
func (s *ChallengeStore) WithClock(now func() time.Time) *ChallengeStore {
	s.nowFn = now
	return s
}

func (s *ChallengeStore) Create(ctx context.Context, c captcha.Challenge) (string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[c.ID] = c
	return c.ID, nil
}

func (s *ChallengeStore) Get(ctx context.Context, id string) (captcha.Challenge, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data[id]
	if !ok {
		return captcha.Challenge{}, captcha.ErrNotFound
	}
	if c.Expired(s.nowFn()) {
		delete(s.data, id)
		return captcha.Challenge{}, captcha.ErrNotFound
	}
	return c, nil
}

func (s *ChallengeStore) Take(ctx context.Context, id string) (captcha.Challenge, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data[id]
	if !ok {
		return captcha.Challenge{}, captcha.ErrNotFound
	}
	delete(s.data, id)
	return c, nil
}

func (s *ChallengeStore) Invalidate(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *ChallengeStore) PurgeExpired(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFn()
	n := 0
	for id, c := range s.data {
		if c.Expired(now) {
			delete(s.data, id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored challenges, expired or not.
func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
