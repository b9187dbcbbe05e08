package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/captcha"
	"github.com/gin-gonic/gin"
)

func HandleCaptchaVerifyPOST(v *captcha.Verifier, rl ginutil.RateLimiter) gin.HandlerFunc {
	type verifyReq struct {
		ChallengeID     string `json:"challengeId"`
		SelectedIndices []int  `json:"selectedIndices"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLCaptchaVerify) {
			ginutil.TooMany(c)
			return
		}
		var req verifyReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		res, err := v.Verify(c.Request.Context(), req.ChallengeID, req.SelectedIndices)
		switch {
		case errors.Is(err, captcha.ErrInvalidInput):
			ginutil.BadRequest(c, "invalid_request")
			return
		case err != nil:
			ginutil.Unavailable(c, err)
			return
		}
		body := gin.H{"success": res.Success, "reason": res.Reason}
		if res.Success {
			body["clearanceToken"] = res.ClearanceToken
			body["flow"] = res.Flow
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, body)
	}
}
