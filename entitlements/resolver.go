// Package entitlements records who owns which audit script and decides,
// at read time, whether a viewer may download it now.
package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulFidika/auditstore/catalog"
)

// Label names the reason a viewer does or does not have access.
type Label string

const (
	LabelNone                Label = "none"
	LabelDirect              Label = "direct"
	LabelSubscriptionActive  Label = "subscriptionActive"
	LabelSubscriptionExpired Label = "subscriptionExpired"
	LabelAdminOverride       Label = "adminOverride"
)

// Decision separates owning a product (HasAccess) from being able to act on
// it right now (CanDownloadNow), so a maintenance window can read as
// "temporarily unavailable" rather than "not owned".
type Decision struct {
	HasAccess      bool
	Label          Label
	CanDownloadNow bool
	// PurchaseType and ExpiresAt describe the record that produced the
	// label; both are empty when no record applies.
	PurchaseType PurchaseType
	ExpiresAt    *time.Time
}

// Resolve is the pure decision over an already-fetched latest record
// (nil when none exists). First match wins: admin, then the record, then
// the product status gates.
func Resolve(latest *Record, isAdmin bool, status catalog.Status, now time.Time) Decision {
	if isAdmin {
		return Decision{
			HasAccess:      true,
			Label:          LabelAdminOverride,
			CanDownloadNow: status != catalog.StatusOffline,
		}
	}

	var d Decision
	switch {
	case latest == nil:
		d.Label = LabelNone
	case latest.Kind == KindPerpetual:
		d.Label = LabelDirect
		d.HasAccess = true
	case latest.Kind.IsSubscription():
		if latest.ActiveAt(now) {
			d.Label = LabelSubscriptionActive
			d.HasAccess = true
		} else {
			d.Label = LabelSubscriptionExpired
		}
	default:
		d.Label = LabelNone
	}
	if latest != nil && d.Label != LabelNone {
		d.PurchaseType = latest.Kind.PurchaseType()
		d.ExpiresAt = latest.ExpiresAt
	}

	// Pre-release products are never owned, whatever the ledger says.
	if status == catalog.StatusDevelopment {
		return Decision{Label: LabelNone}
	}

	d.CanDownloadNow = d.HasAccess && status != catalog.StatusMaintenance && status != catalog.StatusOffline
	return d
}

// Resolver loads ledger and catalog state and applies Resolve.
type Resolver struct {
	ledger   Ledger
	products catalog.Reader
	nowFn    func() time.Time
}

func NewResolver(ledger Ledger, products catalog.Reader) *Resolver {
	return &Resolver{ledger: ledger, products: products, nowFn: time.Now}
}

// WithClock overrides the time source.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.nowFn = now
	return r
}

// Resolve answers whether userID may access productID now. An unknown
// product yields catalog.ErrNotFound; storage failures wrap ErrUnavailable.
func (r *Resolver) Resolve(ctx context.Context, userID, productID string, isAdmin bool) (Decision, error) {
	p, err := r.products.Product(ctx, productID)
	if err != nil {
		return Decision{}, err
	}
	if isAdmin {
		return Resolve(nil, true, p.Status, r.nowFn()), nil
	}
	var latest *Record
	rec, err := r.ledger.Latest(ctx, userID, productID)
	switch {
	case err == nil:
		latest = &rec
	case errors.Is(err, ErrNotFound):
	default:
		if errors.Is(err, ErrUnavailable) {
			return Decision{}, err
		}
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Resolve(latest, false, p.Status, r.nowFn()), nil
}
