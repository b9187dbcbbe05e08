package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/catalog"
	"github.com/PaulFidika/auditstore/entitlements"
	"github.com/PaulFidika/auditstore/identity"
	"github.com/gin-gonic/gin"
)

// EntitlementView is the wire form of an entitlements.Decision.
type EntitlementView struct {
	HasAccess      bool    `json:"hasAccess"`
	PurchaseType   *string `json:"purchaseType"`
	ExpiresAt      *string `json:"expiresAt"`
	Label          string  `json:"label"`
	CanDownloadNow bool    `json:"canDownloadNow"`
}

func NewEntitlementView(d entitlements.Decision) EntitlementView {
	v := EntitlementView{HasAccess: d.HasAccess, Label: string(d.Label), CanDownloadNow: d.CanDownloadNow}
	if d.PurchaseType != "" {
		pt := string(d.PurchaseType)
		v.PurchaseType = &pt
	}
	if d.ExpiresAt != nil {
		s := d.ExpiresAt.UTC().Format(time.RFC3339)
		v.ExpiresAt = &s
	}
	return v
}

func HandleProductEntitlementGET(r *entitlements.Resolver, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			ginutil.Unauthorized(c)
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLEntitlementGet) {
			ginutil.TooMany(c)
			return
		}
		d, err := r.Resolve(c.Request.Context(), id.UserID, c.Param("product_id"), id.IsAdmin)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			ginutil.NotFound(c)
			return
		case err != nil:
			ginutil.Unavailable(c, err)
			return
		}
		c.JSON(http.StatusOK, NewEntitlementView(d))
	}
}
