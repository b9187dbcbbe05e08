package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PaulFidika/auditstore/captcha"
	"github.com/redis/go-redis/v9"
)

// ChallengeStore keeps pending captcha challenges in Redis. Expiry is
// delegated to key TTLs, so PurgeExpired has nothing to do.
type ChallengeStore struct {
	rdb   *redis.Client
	keyNS string
	nowFn func() time.Time
}

// NewChallengeStore creates a Redis-backed challenge store.
func NewChallengeStore(rdb *redis.Client, keyPrefix string) *ChallengeStore {
	if keyPrefix == "" {
		keyPrefix = "storefront:captcha:"
	}
	return &ChallengeStore{rdb: rdb, keyNS: keyPrefix, nowFn: time.Now}
}

func (c *ChallengeStore) key(id string) string { return c.keyNS + id }

// Create stores a challenge until its ExpiresAt.
func (c *ChallengeStore) Create(ctx context.Context, ch captcha.Challenge) (string, error) {
	ttl := ch.ExpiresAt.Sub(c.nowFn())
	if ttl <= 0 {
		return "", fmt.Errorf("%w: challenge already expired", captcha.ErrInvalidInput)
	}
	b, err := json.Marshal(ch)
	if err != nil {
		return "", err
	}
	ok, err := c.rdb.SetNX(ctx, c.key(ch.ID), b, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", captcha.ErrUnavailable, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: duplicate challenge id", captcha.ErrInvalidInput)
	}
	return ch.ID, nil
}

// Get retrieves a challenge without consuming it.
func (c *ChallengeStore) Get(ctx context.Context, id string) (captcha.Challenge, error) {
	val, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	return c.decode(val, err)
}

// Take reads and deletes the challenge with a single GETDEL.
func (c *ChallengeStore) Take(ctx context.Context, id string) (captcha.Challenge, error) {
	val, err := c.rdb.GetDel(ctx, c.key(id)).Bytes()
	return c.decode(val, err)
}

// Invalidate removes a challenge.
func (c *ChallengeStore) Invalidate(ctx context.Context, id string) error {
	if err := c.rdb.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", captcha.ErrUnavailable, err)
	}
	return nil
}

func (c *ChallengeStore) PurgeExpired(ctx context.Context) (int, error) {
	_ = ctx
	return 0, nil
}

func (c *ChallengeStore) decode(val []byte, err error) (captcha.Challenge, error) {
	if errors.Is(err, redis.Nil) {
		return captcha.Challenge{}, captcha.ErrNotFound
	}
	if err != nil {
		return captcha.Challenge{}, fmt.Errorf("%w: %v", captcha.ErrUnavailable, err)
	}
	var ch captcha.Challenge
	if err := json.Unmarshal(val, &ch); err != nil {
		// A record we cannot read can never be graded; treat it as gone.
		return captcha.Challenge{}, captcha.ErrNotFound
	}
	return ch, nil
}
