package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/checkout"
	"github.com/PaulFidika/auditstore/entitlements"
	"github.com/PaulFidika/auditstore/identity"
	"github.com/gin-gonic/gin"
)

// HandleProductCheckoutPOST starts a provider session. It must be mounted
// behind bearer auth and a purchase clearance.
func HandleProductCheckoutPOST(co *checkout.Completer, rl ginutil.RateLimiter) gin.HandlerFunc {
	type checkoutReq struct {
		PurchaseType string `json:"purchaseType"`
	}
	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			ginutil.Unauthorized(c)
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLCheckoutStart) {
			ginutil.TooMany(c)
			return
		}
		var req checkoutReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		s, err := co.StartCheckout(c.Request.Context(), id.UserID, c.Param("product_id"), entitlements.PurchaseType(req.PurchaseType))
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, s)
		case errors.Is(err, checkout.ErrInvalidInput):
			ginutil.BadRequest(c, "invalid_request")
		case errors.Is(err, checkout.ErrUnknownProduct):
			ginutil.NotFound(c)
		case errors.Is(err, checkout.ErrNotPurchasable):
			ginutil.Conflict(c, "product_unavailable")
		case errors.Is(err, checkout.ErrUnknownUser):
			ginutil.Unauthorized(c)
		default:
			ginutil.Unavailable(c, err)
		}
	}
}
