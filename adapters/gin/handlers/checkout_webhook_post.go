package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/checkout"
	"github.com/gin-gonic/gin"
)

// WebhookSecretHeader carries the shared secret configured with the provider.
const WebhookSecretHeader = "X-Webhook-Secret"

// ConfirmEnqueuer schedules a session confirmation.
type ConfirmEnqueuer interface {
	EnqueueConfirm(ctx context.Context, sessionID string) error
}

func HandleCheckoutWebhookPOST(q ConfirmEnqueuer, secret string, rl ginutil.RateLimiter) gin.HandlerFunc {
	type webhookReq struct {
		SessionID string `json:"sessionId"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLCheckoutWebhook) {
			ginutil.TooMany(c)
			return
		}
		if secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(WebhookSecretHeader)), []byte(secret)) != 1 {
			ginutil.Unauthorized(c)
			return
		}
		var req webhookReq
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		err := q.EnqueueConfirm(c.Request.Context(), req.SessionID)
		switch {
		case err == nil:
			c.JSON(http.StatusAccepted, gin.H{"accepted": true})
		case checkout.CouldNotConfirm(err):
			ginutil.Unprocessable(c, "could_not_confirm_payment")
		default:
			ginutil.Unavailable(c, err)
		}
	}
}
