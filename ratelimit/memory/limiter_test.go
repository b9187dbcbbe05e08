package memorylimiter

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_SlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	l := New(map[string]Limit{"captcha_verify": {Limit: 2, Window: time.Minute}}).
		WithClock(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		if ok, err := l.AllowNamed(ctx, "captcha_verify", "1.2.3.4"); !ok || err != nil {
			t.Fatalf("request %d should pass: %v %v", i, ok, err)
		}
	}
	if ok, _ := l.AllowNamed(ctx, "captcha_verify", "1.2.3.4"); ok {
		t.Fatal("third request inside the window should be denied")
	}
	if ok, _ := l.AllowNamed(ctx, "captcha_verify", "5.6.7.8"); !ok {
		t.Fatal("other keys have their own window")
	}

	now = now.Add(61 * time.Second)
	if ok, _ := l.AllowNamed(ctx, "captcha_verify", "1.2.3.4"); !ok {
		t.Fatal("window should have slid")
	}
}

func TestLimiter_DefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	l := New(map[string]Limit{"default": {Limit: 1, Window: time.Hour}})
	if ok, _ := l.AllowNamed(ctx, "anything", "k"); !ok {
		t.Fatal("first request should pass")
	}
	if ok, _ := l.AllowNamed(ctx, "anything", "k"); ok {
		t.Fatal("default limit should apply to unknown buckets")
	}
	if _, err := l.AllowNamed(ctx, "", "k"); err == nil {
		t.Fatal("expected error for empty bucket")
	}
	var nilLimiter *Limiter
	if ok, _ := nilLimiter.AllowNamed(ctx, "b", "k"); !ok {
		t.Fatal("nil limiter allows everything")
	}
}

func TestLimiter_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	l := New(map[string]Limit{"checkout_start": {Limit: 5, Window: time.Minute}}).
		WithClock(func() time.Time { return now })
	_, _ = l.AllowNamed(ctx, "checkout_start", "user:1")
	now = now.Add(2 * time.Minute)
	if n, _ := l.PurgeExpired(ctx); n != 1 {
		t.Fatalf("expected one idle bucket swept, got %d", n)
	}
}
