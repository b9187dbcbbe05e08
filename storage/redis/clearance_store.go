package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PaulFidika/auditstore/clearance"
	"github.com/redis/go-redis/v9"
)

// ClearanceStore keeps one-shot captcha passes in Redis.
type ClearanceStore struct {
	rdb   *redis.Client
	keyNS string
}

func NewClearanceStore(rdb *redis.Client, keyPrefix string) *ClearanceStore {
	if keyPrefix == "" {
		keyPrefix = "storefront:clearance:"
	}
	return &ClearanceStore{rdb: rdb, keyNS: keyPrefix}
}

func (s *ClearanceStore) key(token string) string { return s.keyNS + token }

func (s *ClearanceStore) Put(ctx context.Context, token string, g clearance.Grant, ttl time.Duration) error {
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(token), b, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", clearance.ErrUnavailable, err)
	}
	return nil
}

func (s *ClearanceStore) Take(ctx context.Context, token string) (clearance.Grant, error) {
	val, err := s.rdb.GetDel(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return clearance.Grant{}, clearance.ErrNotFound
	}
	if err != nil {
		return clearance.Grant{}, fmt.Errorf("%w: %v", clearance.ErrUnavailable, err)
	}
	var g clearance.Grant
	if err := json.Unmarshal(val, &g); err != nil {
		return clearance.Grant{}, clearance.ErrNotFound
	}
	return g, nil
}
