package ginutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type downLimiter struct{}

func (downLimiter) AllowNamed(context.Context, string, string) (bool, error) {
	return false, errors.New("dial tcp: connection refused")
}

func TestAllowNamed_FailsOpenAndLogsToRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, hook := test.NewNullLogger()

	r := gin.New()
	r.Use(SetLogger(log))
	r.GET("/x", func(c *gin.Context) {
		if !AllowNamed(c, downLimiter{}, RLPricingGet) {
			TooMany(c)
			return
		}
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("limiter error should let the request through, got %d", w.Code)
	}
	e := hook.LastEntry()
	if e == nil || e.Level != logrus.WarnLevel || e.Data["bucket"] != RLPricingGet {
		t.Fatalf("expected a warning on the injected logger, got %+v", e)
	}
}

func TestUnavailable_LogsAndResponds503(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, hook := test.NewNullLogger()

	r := gin.New()
	r.Use(SetLogger(log))
	r.GET("/x", func(c *gin.Context) { Unavailable(c, errors.New("ledger down")) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if len(hook.Entries) != 1 || hook.LastEntry().Data["route"] != "/x" {
		t.Fatalf("expected one logged entry, got %v", hook.Entries)
	}
}
