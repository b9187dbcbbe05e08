package entitlements

import (
	"context"
	"errors"
	"time"
)

// Kind is how a record was acquired.
type Kind string

const (
	KindPerpetual           Kind = "perpetual"
	KindSubscriptionMonthly Kind = "subscriptionMonthly"
	KindSubscriptionYearly  Kind = "subscriptionYearly"
)

// IsSubscription reports whether records of this kind carry an expiry.
func (k Kind) IsSubscription() bool {
	return k == KindSubscriptionMonthly || k == KindSubscriptionYearly
}

// PurchaseType is the buyer-facing name of a kind, as used on the wire.
type PurchaseType string

const (
	PurchaseDirect              PurchaseType = "direct"
	PurchaseSubscriptionMonthly PurchaseType = "subscriptionMonthly"
	PurchaseSubscriptionYearly  PurchaseType = "subscriptionYearly"
)

// Kind maps a purchase type to the record kind it grants.
func (p PurchaseType) Kind() (Kind, bool) {
	switch p {
	case PurchaseDirect:
		return KindPerpetual, true
	case PurchaseSubscriptionMonthly:
		return KindSubscriptionMonthly, true
	case PurchaseSubscriptionYearly:
		return KindSubscriptionYearly, true
	}
	return "", false
}

// PurchaseType is the inverse of PurchaseType.Kind.
func (k Kind) PurchaseType() PurchaseType {
	switch k {
	case KindSubscriptionMonthly:
		return PurchaseSubscriptionMonthly
	case KindSubscriptionYearly:
		return PurchaseSubscriptionYearly
	}
	return PurchaseDirect
}

// Record is an immutable purchase or subscription fact for (user, product).
// ExpiresAt is nil for perpetual records.
type Record struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	ProductID       string     `json:"product_id"`
	Kind            Kind       `json:"kind"`
	AcquiredAt      time.Time  `json:"acquired_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	SourceSessionID string     `json:"source_session_id"`
}

// ActiveAt reports whether the record grants access at now.
func (r Record) ActiveAt(now time.Time) bool {
	if r.ExpiresAt == nil {
		return r.Kind == KindPerpetual
	}
	return now.Before(*r.ExpiresAt)
}

var (
	ErrNotFound    = errors.New("entitlements: record not found")
	ErrUnavailable = errors.New("entitlements: ledger unavailable")
)

// Ledger is the append-only store of entitlement records.
type Ledger interface {
	// Latest returns the most recently acquired record for the pair, or ErrNotFound.
	Latest(ctx context.Context, userID, productID string) (Record, error)
	// BySession returns the record produced by a checkout session, or ErrNotFound.
	BySession(ctx context.Context, sessionID string) (Record, error)
	// PutIfAbsent inserts r unless a record with the same SourceSessionID
	// exists, in which case that record is returned with created=false.
	PutIfAbsent(ctx context.Context, r Record) (stored Record, created bool, err error)
	// ListByUser returns every record the user holds, newest first.
	ListByUser(ctx context.Context, userID string) ([]Record, error)
}
