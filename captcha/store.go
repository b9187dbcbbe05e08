package captcha

import (
	"context"
	"errors"
)

var (
	// ErrNotFound covers unknown, consumed and expired ids alike so that a
	// replay cannot be told apart from a forgery.
	ErrNotFound     = errors.New("captcha: challenge not found")
	ErrUnavailable  = errors.New("captcha: store unavailable")
	ErrInvalidInput = errors.New("captcha: invalid input")
)

// Store holds issued challenges until they are graded or expire.
type Store interface {
	Create(ctx context.Context, c Challenge) (string, error)
	Get(ctx context.Context, id string) (Challenge, error)
	// Take returns the challenge and removes it in one indivisible step.
	// It may return an expired challenge; the caller decides how to grade it.
	Take(ctx context.Context, id string) (Challenge, error)
	Invalidate(ctx context.Context, id string) error
	// PurgeExpired drops expired challenges and reports how many were removed.
	PurgeExpired(ctx context.Context) (int, error)
}
