package redisstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PaulFidika/auditstore/captcha"
	"github.com/PaulFidika/auditstore/clearance"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func sampleChallenge(id string) captcha.Challenge {
	return captcha.Challenge{
		ID:              id,
		Flow:            clearance.FlowRegister,
		TargetCategory:  "shield",
		Options:         []string{"shield", "lock", "shield", "key"},
		ExpectedIndices: []int{0, 2},
		IssuedAt:        time.Now(),
		ExpiresAt:       time.Now().Add(5 * time.Minute),
	}
}

func TestChallengeStore_RoundTripAndTake(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	s := NewChallengeStore(rdb, "")

	if _, err := s.Create(ctx, sampleChallenge("c1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TargetCategory != "shield" || len(got.ExpectedIndices) != 2 || got.Flow != clearance.FlowRegister {
		t.Fatalf("unexpected challenge %+v", got)
	}
	if _, err := s.Take(ctx, "c1"); err != nil {
		t.Fatalf("Take: %v", err)
	}
	if _, err := s.Take(ctx, "c1"); !errors.Is(err, captcha.ErrNotFound) {
		t.Fatalf("second Take: expected ErrNotFound, got %v", err)
	}
}

func TestChallengeStore_DuplicateIDRejected(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	s := NewChallengeStore(rdb, "")
	_, _ = s.Create(ctx, sampleChallenge("c1"))
	if _, err := s.Create(ctx, sampleChallenge("c1")); !errors.Is(err, captcha.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate id, got %v", err)
	}
}

func TestChallengeStore_TTLExpiry(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	s := NewChallengeStore(rdb, "")
	_, _ = s.Create(ctx, sampleChallenge("c1"))
	mr.FastForward(6 * time.Minute)
	if _, err := s.Take(ctx, "c1"); !errors.Is(err, captcha.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestChallengeStore_ConcurrentTake(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	s := NewChallengeStore(rdb, "")
	_, _ = s.Create(ctx, sampleChallenge("c1"))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Take(ctx, "c1"); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one Take to win, got %d", wins)
	}
}

func TestChallengeStore_Unavailable(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	s := NewChallengeStore(rdb, "")
	mr.Close()
	if _, err := s.Take(ctx, "c1"); !errors.Is(err, captcha.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable with redis down, got %v", err)
	}
}

func TestClearanceStore_TakeOnce(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	s := NewClearanceStore(rdb, "")
	g := clearance.Grant{Flow: clearance.FlowPurchase, ExpiresAt: time.Now().Add(time.Minute)}
	if err := s.Put(ctx, "tok", g, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Take(ctx, "tok")
	if err != nil || got.Flow != clearance.FlowPurchase {
		t.Fatalf("Take: %v %+v", err, got)
	}
	if _, err := s.Take(ctx, "tok"); !errors.Is(err, clearance.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on replay, got %v", err)
	}
}
