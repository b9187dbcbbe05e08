// Package captcha issues and grades image-category challenges that gate
// registration, login and purchase.
package captcha

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/PaulFidika/auditstore/clearance"
	"github.com/PaulFidika/auditstore/internal/opaque"
	"github.com/sirupsen/logrus"
)

// Reason explains a grading outcome.
type Reason string

const (
	ReasonOK           Reason = "ok"
	ReasonMismatch     Reason = "mismatch"
	ReasonExpired      Reason = "expired"
	ReasonNotFound     Reason = "not_found"
	ReasonUnavailable  Reason = "unavailable"
	ReasonInvalidInput Reason = "invalid_input"
)

// Result is the outcome of Verify. ClearanceToken is set only on success.
type Result struct {
	Success        bool
	Reason         Reason
	Flow           clearance.Flow
	ClearanceToken string
}

// Granter mints the one-shot pass handed out after a successful verify.
type Granter interface {
	Grant(ctx context.Context, flow clearance.Flow) (string, error)
}

// Config tunes challenge generation.
type Config struct {
	GridSize   int
	MinMatches int
	MaxMatches int
	TTL        time.Duration
	Catalog    []Category
}

func (c Config) defaulted() Config {
	out := c
	if out.GridSize < 2 {
		out.GridSize = 9
	}
	if out.TTL <= 0 {
		out.TTL = 5 * time.Minute
	}
	if len(out.Catalog) < 2 {
		out.Catalog = DefaultCatalog
	}
	if out.MinMatches <= 0 {
		out.MinMatches = 2
	}
	if out.MaxMatches <= 0 {
		out.MaxMatches = 4
	}
	if out.MaxMatches > out.GridSize-1 {
		out.MaxMatches = out.GridSize - 1
	}
	if out.MinMatches > out.MaxMatches {
		out.MinMatches = out.MaxMatches
	}
	return out
}

// Verifier issues challenges and grades answers. Every Verify call consumes
// the challenge, so an attacker gets one guess per issued challenge.
type Verifier struct {
	store      Store
	clearances Granter
	attempts   AttemptLogger
	log        logrus.FieldLogger
	cfg        Config
	nowFn      func() time.Time
	intn       func(n int) int
}

// Option configures a Verifier.
type Option func(*Verifier)

func WithConfig(cfg Config) Option { return func(v *Verifier) { v.cfg = cfg.defaulted() } }

func WithClearances(g Granter) Option { return func(v *Verifier) { v.clearances = g } }

func WithAttemptLogger(a AttemptLogger) Option { return func(v *Verifier) { v.attempts = a } }

func WithLogger(l logrus.FieldLogger) Option { return func(v *Verifier) { v.log = l } }

func WithClock(now func() time.Time) Option { return func(v *Verifier) { v.nowFn = now } }

// WithRand replaces the CSPRNG used for target selection and shuffling.
// Only tests should need this.
func WithRand(intn func(n int) int) Option { return func(v *Verifier) { v.intn = intn } }

// NewVerifier builds a verifier over store.
func NewVerifier(store Store, opts ...Option) *Verifier {
	v := &Verifier{
		store: store,
		cfg:   Config{}.defaulted(),
		nowFn: time.Now,
		intn:  cryptoIntn,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.attempts == nil {
		v.attempts = LogrusAttemptLogger{Log: v.log}
	}
	return v
}

// Catalog returns the categories challenges are drawn from.
func (v *Verifier) Catalog() []Category { return v.cfg.Catalog }

// IssueChallenge creates and stores a fresh challenge for flow.
func (v *Verifier) IssueChallenge(ctx context.Context, flow clearance.Flow) (Challenge, error) {
	if _, ok := clearance.ParseFlow(string(flow)); !ok {
		return Challenge{}, fmt.Errorf("%w: unknown flow %q", ErrInvalidInput, flow)
	}
	cfg := v.cfg
	target := cfg.Catalog[v.intn(len(cfg.Catalog))]
	others := make([]Category, 0, len(cfg.Catalog)-1)
	for _, c := range cfg.Catalog {
		if c.Tag != target.Tag {
			others = append(others, c)
		}
	}

	matches := cfg.MinMatches + v.intn(cfg.MaxMatches-cfg.MinMatches+1)
	options := make([]string, 0, cfg.GridSize)
	for i := 0; i < matches; i++ {
		options = append(options, target.Tag)
	}
	for len(options) < cfg.GridSize {
		options = append(options, others[v.intn(len(others))].Tag)
	}
	// Fisher-Yates
	for i := len(options) - 1; i > 0; i-- {
		j := v.intn(i + 1)
		options[i], options[j] = options[j], options[i]
	}
	expected := make([]int, 0, matches)
	for i, tag := range options {
		if tag == target.Tag {
			expected = append(expected, i)
		}
	}

	id, err := opaque.New()
	if err != nil {
		return Challenge{}, err
	}
	now := v.nowFn()
	ch := Challenge{
		ID:              id,
		Flow:            flow,
		TargetCategory:  target.Tag,
		Options:         options,
		ExpectedIndices: expected,
		IssuedAt:        now,
		ExpiresAt:       now.Add(cfg.TTL),
	}
	if err := ch.Validate(); err != nil {
		return Challenge{}, err
	}
	if _, err := v.store.Create(ctx, ch); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return Challenge{}, err
		}
		return Challenge{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ch, nil
}

// Verify grades submitted against the stored answer and consumes the
// challenge regardless of outcome. Malformed selections are rejected
// without consuming it. A non-nil error accompanies only
// ReasonInvalidInput and ReasonUnavailable; both are failures.
func (v *Verifier) Verify(ctx context.Context, id string, submitted []int) (Result, error) {
	id = strings.TrimSpace(id)
	if id == "" || !wellFormed(submitted, v.cfg.GridSize) {
		res := Result{Reason: ReasonInvalidInput}
		v.attempts.LogAttempt(ctx, id, res)
		return res, ErrInvalidInput
	}

	ch, err := v.store.Take(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		res := Result{Reason: ReasonNotFound}
		v.attempts.LogAttempt(ctx, id, res)
		return res, nil
	case err != nil:
		res := Result{Reason: ReasonUnavailable}
		v.attempts.LogAttempt(ctx, id, res)
		return res, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	res := Result{Flow: ch.Flow}
	switch {
	case ch.Expired(v.nowFn()):
		res.Reason = ReasonExpired
	case !ch.Matches(submitted):
		res.Reason = ReasonMismatch
	default:
		res.Success = true
		res.Reason = ReasonOK
	}

	if res.Success && v.clearances != nil {
		token, err := v.clearances.Grant(ctx, ch.Flow)
		if err != nil {
			res = Result{Flow: ch.Flow, Reason: ReasonUnavailable}
			v.attempts.LogAttempt(ctx, id, res)
			return res, fmt.Errorf("%w: grant clearance: %v", ErrUnavailable, err)
		}
		res.ClearanceToken = token
	}
	v.attempts.LogAttempt(ctx, id, res)
	return res, nil
}

func cryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("captcha: crypto/rand unavailable: " + err.Error())
	}
	return int(v.Int64())
}

// wellFormed reports whether submitted names between 1 and size distinct
// grid positions.
func wellFormed(submitted []int, size int) bool {
	if len(submitted) == 0 || len(submitted) > size {
		return false
	}
	seen := make(map[int]struct{}, len(submitted))
	for _, i := range submitted {
		if i < 0 || i >= size {
			return false
		}
		if _, dup := seen[i]; dup {
			return false
		}
		seen[i] = struct{}{}
	}
	return true
}
