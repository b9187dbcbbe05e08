package lang

import (
	"context"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"es-MX":  "es",
		" ES_mx": "es",
		"fr":     "fr",
		"":       "",
		"eng":    "",
		"e1":     "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromContextOr(t *testing.T) {
	if got := FromContextOr(context.Background(), Default); got != "en" {
		t.Fatalf("expected fallback, got %q", got)
	}
	ctx := WithLanguage(context.Background(), "")
	if _, ok := LanguageFromContext(ctx); ok {
		t.Fatal("empty language should read as absent")
	}
	ctx = WithLanguage(ctx, "de")
	if got := FromContextOr(ctx, Default); got != "de" {
		t.Fatalf("expected de, got %q", got)
	}
}
