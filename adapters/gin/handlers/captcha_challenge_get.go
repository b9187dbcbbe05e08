package handlers

import (
	"net/http"

	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/captcha"
	"github.com/PaulFidika/auditstore/clearance"
	"github.com/gin-gonic/gin"
)

func HandleCaptchaChallengeGET(v *captcha.Verifier, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLCaptchaIssue) {
			ginutil.TooMany(c)
			return
		}
		flow, ok := clearance.ParseFlow(c.Query("flow"))
		if !ok {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		ch, err := v.IssueChallenge(c.Request.Context(), flow)
		if err != nil {
			ginutil.Unavailable(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, ch.View(v.Catalog()))
	}
}
