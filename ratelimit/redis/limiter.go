// Package redislimiter is a sliding-window limiter shared by every
// storefront replica, built on Redis sorted sets.
package redislimiter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PaulFidika/auditstore/internal/opaque"
	"github.com/redis/go-redis/v9"
)

// Limit is the number of requests allowed per window in one bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter stores one ZSET per (key, bucket) scored by request time.
type Limiter struct {
	rdb    *redis.Client
	keyNS  string
	limits map[string]Limit
	nowFn  func() time.Time
}

func New(rdb *redis.Client, keyPrefix string, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = "storefront:rl:"
	}
	return &Limiter{rdb: rdb, keyNS: keyPrefix, limits: limits, nowFn: time.Now}
}

// WithClock overrides the time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.nowFn = now
	return l
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}

// AllowNamed records a request from key against bucket and reports whether
// it fits the bucket's window. Denied requests are removed again.
func (l *Limiter) AllowNamed(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := l.limitFor(bucket)
	now := l.nowFn().UnixMilli()
	cutoff := now - lim.Window.Milliseconds()
	member, err := opaque.New()
	if err != nil {
		return false, err
	}
	k := l.keyNS + key + ":" + bucket

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now), Member: member})
	count := pipe.ZCard(ctx, k)
	pipe.PExpire(ctx, k, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if count.Val() > int64(lim.Limit) {
		l.rdb.ZRem(ctx, k, member)
		return false, nil
	}
	return true, nil
}
