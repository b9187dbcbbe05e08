package storegin

import (
	"context"
	"errors"
	"strings"

	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/clearance"
	"github.com/PaulFidika/auditstore/identity"
	"github.com/gin-gonic/gin"
)

// ClearanceHeader carries the pass returned by POST /captcha/verify.
const ClearanceHeader = "X-Captcha-Clearance"

// BearerVerifier turns a bearer token into an identity.
type BearerVerifier interface {
	Verify(ctx context.Context, raw string) (identity.Identity, error)
}

// ClearanceRedeemer consumes one-shot captcha passes.
type ClearanceRedeemer interface {
	Redeem(ctx context.Context, token string, flow clearance.Flow) error
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// AuthRequired rejects requests without a valid bearer token and attaches
// the caller's identity to the request context.
func AuthRequired(v BearerVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := identity.FromContext(c.Request.Context()); ok {
			c.Next()
			return
		}
		raw := bearerToken(c)
		if raw == "" {
			ginutil.Unauthorized(c)
			return
		}
		id, err := v.Verify(c.Request.Context(), raw)
		if err != nil {
			ginutil.Unauthorized(c)
			return
		}
		c.Set("storefront.user_id", id.UserID)
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// AuthOptional attaches an identity when a valid token is present and
// otherwise lets the request through anonymously.
func AuthOptional(v BearerVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			if id, err := v.Verify(c.Request.Context(), raw); err == nil {
				c.Set("storefront.user_id", id.UserID)
				c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
			}
		}
		c.Next()
	}
}

// RequireClearance redeems the X-Captcha-Clearance pass for flow before
// the wrapped handler runs. External register and login handlers mount it
// the same way checkout does.
func RequireClearance(l ClearanceRedeemer, flow clearance.Flow) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := l.Redeem(c.Request.Context(), c.GetHeader(ClearanceHeader), flow)
		switch {
		case errors.Is(err, clearance.ErrNotFound):
			ginutil.CaptchaRequired(c)
			return
		case err != nil:
			ginutil.Unavailable(c, err)
			return
		}
		c.Next()
	}
}
