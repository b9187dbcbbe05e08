// Package ginutil holds the response and rate-limit helpers shared by the
// storefront's gin handlers.
package ginutil

import (
	"context"
	"net/http"

	"github.com/PaulFidika/auditstore/identity"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Rate-limit bucket names.
const (
	RLCaptchaIssue    = "captcha_issue"
	RLCaptchaVerify   = "captcha_verify"
	RLEntitlementGet  = "entitlement_get"
	RLPricingGet      = "pricing_get"
	RLCheckoutStart   = "checkout_start"
	RLCheckoutConfirm = "checkout_confirm"
	RLCheckoutWebhook = "checkout_webhook"
)

const loggerKey = "storefront.logger"

// SetLogger makes log the logger for the rest of the request.
func SetLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(loggerKey, log)
		c.Next()
	}
}

// Logger returns the request logger, or the standard logger when none
// was set.
func Logger(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(logrus.FieldLogger); ok {
			return l
		}
	}
	return logrus.StandardLogger()
}

// RateLimiter is satisfied by the memory and redis limiters.
type RateLimiter interface {
	AllowNamed(ctx context.Context, bucket, key string) (bool, error)
}

// AllowNamed checks bucket for the caller: the authenticated user when
// there is one, the client IP otherwise. A limiter error lets the request
// through; the limiter is not a security boundary.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	key := "ip:" + c.ClientIP()
	if id, ok := identity.FromContext(c.Request.Context()); ok {
		key = "user:" + id.UserID
	}
	ok, err := rl.AllowNamed(c.Request.Context(), bucket, key)
	if err != nil {
		Logger(c).WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
		return true
	}
	return ok
}

func abort(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

func BadRequest(c *gin.Context, code string) { abort(c, http.StatusBadRequest, code) }

func Unauthorized(c *gin.Context) { abort(c, http.StatusUnauthorized, "unauthorized") }

func CaptchaRequired(c *gin.Context) { abort(c, http.StatusForbidden, "captcha_required") }

func NotFound(c *gin.Context) { abort(c, http.StatusNotFound, "not_found") }

func TooMany(c *gin.Context) { abort(c, http.StatusTooManyRequests, "rate_limited") }

func Conflict(c *gin.Context, code string) { abort(c, http.StatusConflict, code) }

func Unprocessable(c *gin.Context, code string) { abort(c, http.StatusUnprocessableEntity, code) }

// Unavailable logs err and responds 503.
func Unavailable(c *gin.Context, err error) {
	Logger(c).WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"route":  c.FullPath(),
	}).Warn("dependency unavailable")
	abort(c, http.StatusServiceUnavailable, "upstream_unavailable")
}
