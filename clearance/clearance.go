// Package clearance tracks one-shot passes minted after a successful captcha.
// A pass is bound to a single privileged flow and can be redeemed exactly once.
package clearance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/auditstore/internal/opaque"
)

// Flow names a privileged action that must be preceded by a captcha.
type Flow string

const (
	FlowRegister Flow = "register"
	FlowLogin    Flow = "login"
	FlowPurchase Flow = "purchase"
)

// ParseFlow normalizes s and reports whether it names a known flow.
func ParseFlow(s string) (Flow, bool) {
	f := Flow(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FlowRegister, FlowLogin, FlowPurchase:
		return f, true
	}
	return "", false
}

var (
	ErrNotFound    = errors.New("clearance: not found")
	ErrUnavailable = errors.New("clearance: store unavailable")
)

// Grant is the stored half of a pass.
type Grant struct {
	Flow      Flow      `json:"flow"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists grants. Take must read and delete atomically and return
// ErrNotFound for unknown or already-taken tokens.
type Store interface {
	Put(ctx context.Context, token string, g Grant, ttl time.Duration) error
	Take(ctx context.Context, token string) (Grant, error)
}

// Ledger mints and redeems passes.
type Ledger struct {
	store Store
	ttl   time.Duration
	nowFn func() time.Time
}

// NewLedger builds a ledger. If ttl <= 0 a default of 10 minutes is used.
func NewLedger(store Store, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Ledger{store: store, ttl: ttl, nowFn: time.Now}
}

// WithClock overrides the time source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.nowFn = now
	return l
}

// Grant mints a pass for flow.
func (l *Ledger) Grant(ctx context.Context, flow Flow) (string, error) {
	if _, ok := ParseFlow(string(flow)); !ok {
		return "", fmt.Errorf("clearance: unknown flow %q", flow)
	}
	token, err := opaque.New()
	if err != nil {
		return "", err
	}
	g := Grant{Flow: flow, ExpiresAt: l.nowFn().Add(l.ttl)}
	if err := l.store.Put(ctx, token, g, l.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Redeem consumes the pass. A pass presented for the wrong flow is burned
// and reported as ErrNotFound, same as a replay.
func (l *Ledger) Redeem(ctx context.Context, token string, flow Flow) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNotFound
	}
	g, err := l.store.Take(ctx, token)
	if err != nil {
		return err
	}
	if g.Flow != flow || !l.nowFn().Before(g.ExpiresAt) {
		return ErrNotFound
	}
	return nil
}
