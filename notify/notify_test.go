package notify

import (
	"context"
	"testing"

	authlang "github.com/PaulFidika/auditstore/lang"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestLogNotifier_Fields(t *testing.T) {
	log, hook := test.NewNullLogger()
	n := NewLogNotifier(log)

	ctx := authlang.WithLanguage(context.Background(), "es")
	err := n.Send(ctx, TemplatePurchaseConfirmed, "buyer@example.com", map[string]any{"product_id": "soc2-baseline"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	e := hook.LastEntry()
	if e == nil || e.Level != logrus.InfoLevel {
		t.Fatalf("expected one info entry, got %+v", e)
	}
	if e.Data["template"] != TemplatePurchaseConfirmed || e.Data["recipient"] != "buyer@example.com" {
		t.Fatalf("unexpected fields %v", e.Data)
	}
	if e.Data["language"] != "es" || e.Data["data.product_id"] != "soc2-baseline" {
		t.Fatalf("unexpected fields %v", e.Data)
	}
}

func TestLogNotifier_DefaultLanguage(t *testing.T) {
	log, hook := test.NewNullLogger()
	_ = NewLogNotifier(log).Send(context.Background(), "x", "r", nil)
	if got := hook.LastEntry().Data["language"]; got != "en" {
		t.Fatalf("expected en, got %v", got)
	}
}
