package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/checkout"
	"github.com/PaulFidika/auditstore/checkout/sandbox"
	"github.com/PaulFidika/auditstore/identity"
	"github.com/gin-gonic/gin"
)

// HandleSandboxSettlePOST plays the payment page for sandbox sessions:
// the buyer (or an admin) settles a pending session as paid, failed or
// cancelled, then follows the success redirect as with a real provider.
func HandleSandboxSettlePOST(p *sandbox.Provider) gin.HandlerFunc {
	type settleReq struct {
		Status checkout.Status `json:"status"`
	}
	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			ginutil.Unauthorized(c)
			return
		}
		var req settleReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		sessionID := c.Param("session_id")
		out, err := p.GetSessionOutcome(c.Request.Context(), sessionID)
		switch {
		case errors.Is(err, checkout.ErrSessionNotFound):
			ginutil.NotFound(c)
			return
		case err != nil:
			ginutil.Unavailable(c, err)
			return
		}
		if out.UserID != id.UserID && !id.IsAdmin {
			ginutil.NotFound(c)
			return
		}

		var settled bool
		switch req.Status {
		case checkout.StatusPaid:
			settled = p.MarkPaid(sessionID)
		case checkout.StatusFailed:
			settled = p.Fail(sessionID)
		case checkout.StatusCancelled:
			settled = p.Cancel(sessionID)
		default:
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if !settled {
			ginutil.Conflict(c, "session_settled")
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "status": req.Status})
	}
}
