package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/PaulFidika/auditstore/clearance"
)

// ClearanceStore is an in-memory clearance.Store.
type ClearanceStore struct {
	mu    sync.Mutex
	data  map[string]clearance.Grant
	nowFn func() time.Time
}

func NewClearanceStore() *ClearanceStore {
	return &ClearanceStore{data: make(map[string]clearance.Grant), nowFn: time.Now}
}

func (s *ClearanceStore) Put(ctx context.Context, token string, g clearance.Grant, ttl time.Duration) error {
	_ = ctx
	_ = ttl
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[token] = g
	return nil
}

func (s *ClearanceStore) Take(ctx context.Context, token string) (clearance.Grant, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.data[token]
	if !ok {
		return clearance.Grant{}, clearance.ErrNotFound
	}
	delete(s.data, token)
	return g, nil
}

// PurgeExpired drops grants nobody redeemed in time.
func (s *ClearanceStore) PurgeExpired(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFn()
	n := 0
	for k, g := range s.data {
		if !now.Before(g.ExpiresAt) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}
