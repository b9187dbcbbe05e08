// Package memorylimiter is a single-node sliding-window limiter, used when
// the storefront runs without Redis.
package memorylimiter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Limit is the number of requests allowed per window in one bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter keeps request timestamps per (key, bucket). Empty buckets are
// dropped so idle clients do not accumulate.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string][]time.Time
	nowFn   func() time.Time
}

func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{limits: limits, windows: make(map[string][]time.Time), nowFn: time.Now}
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
// it fits the bucket's window. Denied requests are not recorded.
func (l *Limiter) AllowNamed(ctx context.Context, bucket, key string) (bool, error) {
	_ = ctx
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := l.limitFor(bucket)
	now := l.nowFn()
	cutoff := now.Add(-lim.Window)
	k := key + ":" + bucket

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.windows[k]
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	ts = ts[i:]
	if len(ts) >= lim.Limit {
		l.windows[k] = ts
		return false, nil
	}
	l.windows[k] = append(ts, now)
	return true, nil
}

// PurgeExpired drops buckets whose every entry has left its window.
func (l *Limiter) PurgeExpired(ctx context.Context) (int, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFn()
	n := 0
	for k, ts := range l.windows {
		bucket := k[strings.LastIndexByte(k, ':')+1:]
		if len(ts) == 0 || !ts[len(ts)-1].After(now.Add(-l.limitFor(bucket).Window)) {
			delete(l.windows, k)
			n++
		}
	}
	return n, nil
}
