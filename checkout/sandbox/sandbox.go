// Package sandbox is an in-process checkout.Provider for development and
// tests. Sessions start pending and are settled by MarkPaid, Fail or Cancel.
package sandbox

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/PaulFidika/auditstore/checkout"
	"github.com/PaulFidika/auditstore/internal/opaque"
)

// ErrDown is returned by every call while the provider is marked down.
var ErrDown = errors.New("sandbox: provider down")

type Provider struct {
	mu          sync.Mutex
	sessions    map[string]checkout.Outcome
	successBase string
	down        bool
}

// New returns a provider whose redirect URLs point at successBase
// (e.g. "https://store.example.com/checkout/success").
func New(successBase string) *Provider {
	if strings.TrimSpace(successBase) == "" {
		successBase = "/checkout/success"
	}
	return &Provider{sessions: make(map[string]checkout.Outcome), successBase: successBase}
}

func (p *Provider) CreateSession(ctx context.Context, req checkout.SessionRequest) (checkout.Session, error) {
	_ = ctx
	id, err := opaque.New()
	if err != nil {
		return checkout.Session{}, err
	}
	id = "cs_sandbox_" + id
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return checkout.Session{}, ErrDown
	}
	p.sessions[id] = checkout.Outcome{
		SessionID:    id,
		Status:       checkout.StatusPending,
		UserID:       req.UserID,
		ProductID:    req.ProductID,
		PurchaseType: req.PurchaseType,
		AmountCents:  req.AmountCents,
	}
	return checkout.Session{ID: id, RedirectURL: p.successBase + "?session_id=" + url.QueryEscape(id)}, nil
}

func (p *Provider) GetSessionOutcome(ctx context.Context, sessionID string) (checkout.Outcome, error) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return checkout.Outcome{}, ErrDown
	}
	out, ok := p.sessions[sessionID]
	if !ok {
		return checkout.Outcome{}, checkout.ErrSessionNotFound
	}
	return out, nil
}

// Put registers a session directly, bypassing CreateSession.
func (p *Provider) Put(out checkout.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[out.SessionID] = out
}

func (p *Provider) MarkPaid(sessionID string) bool { return p.settle(sessionID, checkout.StatusPaid) }

func (p *Provider) Fail(sessionID string) bool { return p.settle(sessionID, checkout.StatusFailed) }

func (p *Provider) Cancel(sessionID string) bool {
	return p.settle(sessionID, checkout.StatusCancelled)
}

// SetDown makes every subsequent call fail with ErrDown until cleared.
func (p *Provider) SetDown(down bool) {
	p.mu.Lock()
	p.down = down
	p.mu.Unlock()
}

func (p *Provider) settle(sessionID string, st checkout.Status) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, ok := p.sessions[sessionID]
	if !ok || out.Status != checkout.StatusPending {
		return false
	}
	out.Status = st
	p.sessions[sessionID] = out
	return true
}
