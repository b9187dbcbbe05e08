package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/checkout"
	"github.com/PaulFidika/auditstore/identity"
	"github.com/gin-gonic/gin"
)

// HandleCheckoutSuccessGET confirms the session named in the success
// redirect. Buyers may reload it any number of times.
func HandleCheckoutSuccessGET(co *checkout.Completer, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			ginutil.Unauthorized(c)
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLCheckoutConfirm) {
			ginutil.TooMany(c)
			return
		}
		sessionID := c.Query("session_id")
		if sessionID == "" {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		res, err := co.ConfirmFor(c.Request.Context(), sessionID, id)
		switch {
		case errors.Is(err, checkout.ErrForeignSession):
			ginutil.NotFound(c)
			return
		case checkout.CouldNotConfirm(err):
			ginutil.Unprocessable(c, "could_not_confirm_payment")
			return
		case err != nil:
			ginutil.Unavailable(c, err)
			return
		}
		body := gin.H{"sessionId": res.SessionID, "status": res.Status, "created": res.Created}
		if r := res.Record; r != nil {
			body["productId"] = r.ProductID
			body["purchaseType"] = r.Kind.PurchaseType()
			body["acquiredAt"] = r.AcquiredAt
			body["expiresAt"] = r.ExpiresAt
		}
		c.JSON(http.StatusOK, body)
	}
}
