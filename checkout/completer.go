package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/auditstore/catalog"
	"github.com/PaulFidika/auditstore/entitlements"
	"github.com/PaulFidika/auditstore/identity"
	"github.com/PaulFidika/auditstore/notify"
	"github.com/sirupsen/logrus"
)

// Result describes what a completion did. UserID is the buyer the session
// was opened for. Record is nil when the session has not been paid.
type Result struct {
	SessionID string
	Status    Status
	UserID    string
	Record    *entitlements.Record
	Created   bool
}

// Completer reconciles provider sessions into the entitlement ledger.
type Completer struct {
	ledger   entitlements.Ledger
	products catalog.Reader
	users    identity.Directory
	provider Provider
	notifier notify.Notifier
	log      logrus.FieldLogger
	nowFn    func() time.Time
}

// Option configures a Completer.
type Option func(*Completer)

func WithNotifier(n notify.Notifier) Option { return func(c *Completer) { c.notifier = n } }

func WithLogger(l logrus.FieldLogger) Option { return func(c *Completer) { c.log = l } }

func WithClock(now func() time.Time) Option { return func(c *Completer) { c.nowFn = now } }

func NewCompleter(ledger entitlements.Ledger, products catalog.Reader, users identity.Directory, provider Provider, opts ...Option) *Completer {
	c := &Completer{
		ledger:   ledger,
		products: products,
		users:    users,
		provider: provider,
		notifier: notify.Nop{},
		log:      logrus.StandardLogger(),
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartCheckout opens a provider session for userID to buy productID.
func (c *Completer) StartCheckout(ctx context.Context, userID, productID string, pt entitlements.PurchaseType) (Session, error) {
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return Session{}, ErrInvalidInput
	}
	if _, ok := pt.Kind(); !ok {
		return Session{}, fmt.Errorf("%w: purchase type %q", ErrInvalidInput, pt)
	}
	p, err := c.product(ctx, productID)
	if err != nil {
		return Session{}, err
	}
	if !p.Status.Purchasable() {
		return Session{}, fmt.Errorf("%w: %s is %s", ErrNotPurchasable, p.ID, p.Status)
	}
	amount, ok := entitlements.PriceCents(pt, p.PriceCents, p.MonthlyPriceCents)
	if !ok {
		return Session{}, fmt.Errorf("%w: %s has no %s price", ErrNotPurchasable, p.ID, pt)
	}
	u, err := c.user(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	s, err := c.provider.CreateSession(ctx, SessionRequest{
		UserID:       u.ID,
		Email:        u.Email,
		ProductID:    p.ID,
		PurchaseType: pt,
		AmountCents:  amount,
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: create session: %v", ErrUpstreamUnavailable, err)
	}
	c.log.WithFields(logrus.Fields{
		"session_id":    s.ID,
		"user_id":       u.ID,
		"product_id":    p.ID,
		"purchase_type": pt,
		"amount_cents":  amount,
	}).Info("checkout session created")
	return s, nil
}

// Confirm fetches the session outcome from the provider and completes it.
// A session that already produced a record is answered from the ledger
// without contacting the provider.
func (c *Completer) Confirm(ctx context.Context, sessionID string) (Result, error) {
	return c.confirm(ctx, sessionID, nil)
}

// ConfirmFor is Confirm on behalf of viewer. A session opened for another
// user yields ErrForeignSession before anything is recorded, unless the
// viewer is an admin.
func (c *Completer) ConfirmFor(ctx context.Context, sessionID string, viewer identity.Identity) (Result, error) {
	if viewer.IsAdmin {
		return c.confirm(ctx, sessionID, nil)
	}
	return c.confirm(ctx, sessionID, func(owner string) error {
		if owner != viewer.UserID {
			return ErrForeignSession
		}
		return nil
	})
}

func (c *Completer) confirm(ctx context.Context, sessionID string, owned func(userID string) error) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Result{}, ErrInvalidInput
	}
	if res, done, err := c.existing(ctx, sessionID); done || err != nil {
		if err == nil && owned != nil {
			if err := owned(res.UserID); err != nil {
				return Result{}, err
			}
		}
		return res, err
	}
	out, err := c.provider.GetSessionOutcome(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return Result{}, fmt.Errorf("%w: unknown session", ErrInvalidInput)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: get outcome: %v", ErrUpstreamUnavailable, err)
	}
	if owned != nil {
		if err := owned(out.UserID); err != nil {
			return Result{}, err
		}
	}
	return c.Complete(ctx, sessionID, out)
}

// Complete records out for sessionID. Repeated calls for one session return
// the same record and never persist a second one.
func (c *Completer) Complete(ctx context.Context, sessionID string, out Outcome) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || (out.SessionID != "" && out.SessionID != sessionID) {
		return Result{}, ErrInvalidInput
	}
	if res, done, err := c.existing(ctx, sessionID); done || err != nil {
		return res, err
	}
	if out.Status != StatusPaid {
		c.log.WithFields(logrus.Fields{"session_id": sessionID, "status": out.Status}).Info("checkout not paid; nothing recorded")
		return Result{SessionID: sessionID, Status: out.Status, UserID: out.UserID}, nil
	}
	kind, ok := out.PurchaseType.Kind()
	if !ok {
		return Result{}, fmt.Errorf("%w: purchase type %q", ErrInvalidInput, out.PurchaseType)
	}
	p, err := c.product(ctx, out.ProductID)
	if err != nil {
		return Result{}, err
	}
	u, err := c.user(ctx, out.UserID)
	if err != nil {
		return Result{}, err
	}

	now := c.nowFn().UTC()
	rec := entitlements.Record{
		UserID:          u.ID,
		ProductID:       p.ID,
		Kind:            kind,
		AcquiredAt:      now,
		ExpiresAt:       entitlements.ExpiryFor(kind, now),
		SourceSessionID: sessionID,
	}
	stored, created, err := c.ledger.PutIfAbsent(ctx, rec)
	if err != nil {
		return Result{}, fmt.Errorf("%w: persist: %v", ErrUpstreamUnavailable, err)
	}
	log := c.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    stored.UserID,
		"product_id": stored.ProductID,
		"kind":       stored.Kind,
	})
	if created {
		log.Info("entitlement recorded")
		c.notify(ctx, u, p, stored)
	} else {
		log.Info("entitlement already recorded by a concurrent confirmation")
	}
	return Result{SessionID: sessionID, Status: StatusPaid, UserID: stored.UserID, Record: &stored, Created: created}, nil
}

func (c *Completer) existing(ctx context.Context, sessionID string) (Result, bool, error) {
	rec, err := c.ledger.BySession(ctx, sessionID)
	switch {
	case errors.Is(err, entitlements.ErrNotFound):
		return Result{}, false, nil
	case err != nil:
		return Result{}, false, fmt.Errorf("%w: ledger: %v", ErrUpstreamUnavailable, err)
	}
	return Result{SessionID: sessionID, Status: StatusPaid, UserID: rec.UserID, Record: &rec}, true, nil
}

func (c *Completer) product(ctx context.Context, id string) (catalog.Product, error) {
	p, err := c.products.Product(ctx, strings.TrimSpace(id))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return catalog.Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, id)
	case err != nil:
		return catalog.Product{}, fmt.Errorf("%w: catalog: %v", ErrUpstreamUnavailable, err)
	}
	return p, nil
}

func (c *Completer) user(ctx context.Context, id string) (identity.User, error) {
	u, err := c.users.Lookup(ctx, strings.TrimSpace(id))
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return identity.User{}, fmt.Errorf("%w: %q", ErrUnknownUser, id)
	case err != nil:
		return identity.User{}, fmt.Errorf("%w: directory: %v", ErrUpstreamUnavailable, err)
	}
	return u, nil
}

func (c *Completer) notify(ctx context.Context, u identity.User, p catalog.Product, r entitlements.Record) {
	if u.Email == "" {
		return
	}
	data := map[string]any{
		"product_id":    p.ID,
		"product_name":  p.Name,
		"purchase_type": string(r.Kind.PurchaseType()),
	}
	if r.ExpiresAt != nil {
		data["expires_at"] = r.ExpiresAt.Format(time.RFC3339)
	}
	if err := c.notifier.Send(ctx, notify.TemplatePurchaseConfirmed, u.Email, data); err != nil {
		c.log.WithError(err).WithField("session_id", r.SourceSessionID).Warn("purchase notification failed")
	}
}

// CouldNotConfirm reports whether err should be shown to the buyer as
// "could not confirm payment" rather than retried.
func CouldNotConfirm(err error) bool {
	return errors.Is(err, ErrUnknownProduct) || errors.Is(err, ErrUnknownUser) || errors.Is(err, ErrInvalidInput)
}
