// Package lang carries the viewer's language on a context so that
// notifications render in the language the request arrived with.
package lang

import (
	"context"
	"regexp"
	"strings"
)

// Default is used when neither the request nor configuration names one.
const Default = "en"

type ctxKey struct{}

// WithLanguage attaches a request language to ctx.
func WithLanguage(ctx context.Context, language string) context.Context {
	return context.WithValue(ctx, ctxKey{}, language)
}

// LanguageFromContext reads a request language from ctx.
func LanguageFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKey{}).(string)
	return s, ok && s != ""
}

// FromContextOr returns the context language or fallback.
func FromContextOr(ctx context.Context, fallback string) string {
	if s, ok := LanguageFromContext(ctx); ok {
		return s
	}
	return fallback
}

var reTwoLetter = regexp.MustCompile(`^[a-z]{2}$`)

// Normalize reduces "es-MX" or "ES_mx" to "es"; anything else is "".
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	if !reTwoLetter.MatchString(s) {
		return ""
	}
	return s
}
