package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken is returned for any bearer token that fails verification.
var ErrInvalidToken = errors.New("identity: invalid token")

// AcceptConfig configures verification of bearer tokens minted by the
// external identity issuer (verify-only mode).
type AcceptConfig struct {
	Issuer   string
	Audience string // expected audience for this service (single value)
	JWKSURL  string
	Skew     time.Duration
	CacheTTL time.Duration
	// AdminRole is the value of the "roles" claim that grants admin override.
	AdminRole string
}

func (c AcceptConfig) defaulted() AcceptConfig {
	out := c
	if out.JWKSURL == "" && out.Issuer != "" {
		out.JWKSURL = strings.TrimRight(out.Issuer, "/") + "/.well-known/jwks.json"
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = 10 * time.Minute
	}
	if out.Skew < 0 {
		out.Skew = 0
	}
	if out.AdminRole == "" {
		out.AdminRole = "admin"
	}
	return out
}

// TokenVerifier validates bearer tokens against the issuer's JWKS and
// extracts the viewer identity.
type TokenVerifier struct {
	cfg AcceptConfig

	mu        sync.Mutex
	keySet    jwk.Set
	fetchedAt time.Time
	fetch     func(ctx context.Context, url string) (jwk.Set, error)
}

func NewTokenVerifier(cfg AcceptConfig) *TokenVerifier {
	return &TokenVerifier{
		cfg: cfg.defaulted(),
		fetch: func(ctx context.Context, url string) (jwk.Set, error) {
			return jwk.Fetch(ctx, url)
		},
	}
}

func (v *TokenVerifier) keys(ctx context.Context, force bool) (jwk.Set, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !force && v.keySet != nil && time.Since(v.fetchedAt) < v.cfg.CacheTTL {
		return v.keySet, nil
	}
	set, err := v.fetch(ctx, v.cfg.JWKSURL)
	if err != nil {
		if v.keySet != nil {
			// Serve the stale set rather than locking everyone out.
			return v.keySet, nil
		}
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	v.keySet = set
	v.fetchedAt = time.Now()
	return set, nil
}

// Verify parses raw and returns the identity it carries.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrInvalidToken
	}
	set, err := v.keys(ctx, false)
	if err != nil {
		return Identity{}, err
	}
	token, err := v.parse(ctx, raw, set)
	if err != nil {
		// The issuer may have rotated keys since the last fetch.
		if set, ferr := v.keys(ctx, true); ferr == nil {
			token, err = v.parse(ctx, raw, set)
		}
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	id := Identity{UserID: token.Subject()}
	if id.UserID == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if rawEmail, ok := token.Get("email"); ok {
		if email, ok := rawEmail.(string); ok {
			id.Email = email
		}
	}
	if rawRoles, ok := token.Get("roles"); ok {
		id.IsAdmin = hasRole(rawRoles, v.cfg.AdminRole)
	}
	return id, nil
}

func (v *TokenVerifier) parse(ctx context.Context, raw string, set jwk.Set) (jwt.Token, error) {
	opts := []jwt.ParseOption{
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.cfg.Skew),
		jwt.WithContext(ctx),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}
	return jwt.ParseString(raw, opts...)
}

func hasRole(raw any, role string) bool {
	switch roles := raw.(type) {
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok && s == role {
				return true
			}
		}
	case []string:
		for _, s := range roles {
			if s == role {
				return true
			}
		}
	case string:
		for _, s := range strings.Fields(roles) {
			if s == role {
				return true
			}
		}
	}
	return false
}
