package storegin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PaulFidika/auditstore/identity"
	authlang "github.com/PaulFidika/auditstore/lang"
	"github.com/gin-gonic/gin"
)

func TestResolveRequestLanguage_Precedence(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := LanguageConfig{
		Supported:  []string{"en", "es", "fr"},
		Default:    "en",
		QueryParam: "lang",
		CookieName: "lang",
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/fr/products/soc2/pricing?lang=es", nil)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
	req.AddCookie(&http.Cookie{Name: "lang", Value: "en"})
	c.Request = req

	if got := resolveRequestLanguage(c, cfg); got != "es" {
		t.Fatalf("expected query param to win (es), got %q", got)
	}
}

func TestResolveRequestLanguage_SupportedEnforced(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := LanguageConfig{
		Supported:  []string{"en", "es"},
		Default:    "en",
		QueryParam: "lang",
		CookieName: "lang",
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/fr/checkout/success?lang=fr", nil)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,es;q=0.8")
	req.AddCookie(&http.Cookie{Name: "lang", Value: "fr"})
	c.Request = req

	if got := resolveRequestLanguage(c, cfg); got != "es" {
		t.Fatalf("expected unsupported inputs ignored and accept-language supported picked (es), got %q", got)
	}
}

func TestResolveRequestLanguage_FallsBackToDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/captcha/challenge", nil)

	cfg := (&LanguageConfig{Default: "de"}).defaulted()
	if got := resolveRequestLanguage(c, cfg); got != "de" {
		t.Fatalf("expected default de, got %q", got)
	}
}

func TestCurrentUser_UsesRequestLanguageFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Anonymous callers still get the request language.
	{
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		req := httptest.NewRequest(http.MethodGet, "/viewer", nil)
		req = req.WithContext(authlang.WithLanguage(req.Context(), "es"))
		c.Request = req

		u, ok := CurrentUser(c)
		if ok {
			t.Fatalf("expected ok=false for anonymous caller")
		}
		if u.Language != "es" || u.Source != "none" {
			t.Fatalf("unexpected view %+v", u)
		}
	}

	{
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		ctx := authlang.WithLanguage(context.Background(), "es")
		ctx = identity.WithIdentity(ctx, identity.Identity{UserID: "u_1", Email: "user@example.com", IsAdmin: true})
		c.Request = httptest.NewRequest(http.MethodGet, "/viewer", nil).WithContext(ctx)

		u, ok := CurrentUser(c)
		if !ok {
			t.Fatalf("expected ok=true for authenticated caller")
		}
		if u.Language != "es" || u.UserID != "u_1" || !u.IsAdmin || u.Source != "token" {
			t.Fatalf("unexpected view %+v", u)
		}
	}
}
