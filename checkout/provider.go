// Package checkout turns paid provider sessions into entitlement records,
// exactly once per session.
package checkout

import (
	"context"
	"errors"

	"github.com/PaulFidika/auditstore/entitlements"
)

var (
	ErrInvalidInput        = errors.New("checkout: invalid input")
	ErrUnknownProduct      = errors.New("checkout: unknown product")
	ErrUnknownUser         = errors.New("checkout: unknown user")
	ErrNotPurchasable      = errors.New("checkout: product not purchasable")
	ErrUpstreamUnavailable = errors.New("checkout: upstream unavailable")
	// ErrSessionNotFound is returned by providers for ids they never issued.
	ErrSessionNotFound = errors.New("checkout: session not found")
	// ErrForeignSession means the session belongs to a different buyer.
	ErrForeignSession = errors.New("checkout: session belongs to another user")
)

// Status is the payment state of a provider session.
type Status string

const (
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusPending   Status = "pending"
)

// SessionRequest asks the provider for a hosted payment page.
type SessionRequest struct {
	UserID       string
	Email        string
	ProductID    string
	PurchaseType entitlements.PurchaseType
	AmountCents  int64
}

// Session is a created provider session.
type Session struct {
	ID          string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

// Outcome is what the provider reports about a session.
type Outcome struct {
	SessionID    string
	Status       Status
	UserID       string
	ProductID    string
	PurchaseType entitlements.PurchaseType
	AmountCents  int64
}

// Provider is the external payment-session system.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	GetSessionOutcome(ctx context.Context, sessionID string) (Outcome, error)
}
