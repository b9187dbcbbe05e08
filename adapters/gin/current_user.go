package storegin

import (
	"net/http"

	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/identity"
	authlang "github.com/PaulFidika/auditstore/lang"
	"github.com/gin-gonic/gin"
)

// UserView is the caller as seen by handlers, whether or not they sent a token.
type UserView struct {
	UserID   string `json:"userId,omitempty"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	Language string `json:"language"`
	Source   string `json:"source"` // "token" | "none"
}

// CurrentUser returns the caller snapshot. ok is false for anonymous callers,
// whose view still carries the request language.
func CurrentUser(c *gin.Context) (UserView, bool) {
	reqLang := authlang.FromContextOr(c.Request.Context(), authlang.Default)
	if id, ok := identity.FromContext(c.Request.Context()); ok {
		return UserView{
			UserID:   id.UserID,
			Email:    id.Email,
			IsAdmin:  id.IsAdmin,
			Language: reqLang,
			Source:   "token",
		}, true
	}
	return UserView{Language: reqLang, Source: "none"}, false
}

// handleViewer answers anonymous callers too; a bearer token that failed
// verification is still a 401.
func handleViewer(c *gin.Context) {
	u, ok := CurrentUser(c)
	if !ok && bearerToken(c) != "" {
		ginutil.Unauthorized(c)
		return
	}
	c.JSON(http.StatusOK, u)
}
