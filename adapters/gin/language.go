package storegin

import (
	"strings"

	authlang "github.com/PaulFidika/auditstore/lang"
	"github.com/gin-gonic/gin"
)

// LanguageConfig controls how the request language is inferred. The
// language reaches notifications through the request context.
type LanguageConfig struct {
	Supported  []string
	Default    string
	QueryParam string
	CookieName string
}

func (c *LanguageConfig) defaulted() LanguageConfig {
	var out LanguageConfig
	if c != nil {
		out = *c
	}
	if strings.TrimSpace(out.Default) == "" {
		out.Default = authlang.Default
	}
	if strings.TrimSpace(out.QueryParam) == "" {
		out.QueryParam = "lang"
	}
	if strings.TrimSpace(out.CookieName) == "" {
		out.CookieName = "lang"
	}
	return out
}

type langPicker struct {
	supported map[string]struct{}
}

func newLangPicker(supported []string) langPicker {
	p := langPicker{}
	for _, s := range supported {
		if n := authlang.Normalize(s); n != "" {
			if p.supported == nil {
				p.supported = make(map[string]struct{}, len(supported))
			}
			p.supported[n] = struct{}{}
		}
	}
	return p
}

// accept returns the normalized code if it is usable, "" otherwise.
func (p langPicker) accept(raw string) string {
	n := authlang.Normalize(raw)
	if n == "" || p.supported == nil {
		return n
	}
	if _, ok := p.supported[n]; ok {
		return n
	}
	return ""
}

func (p langPicker) fromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		if i := strings.IndexByte(part, ';'); i >= 0 {
			part = part[:i]
		}
		if l := p.accept(part); l != "" {
			return l
		}
	}
	return ""
}

func (p langPicker) fromPathPrefix(path string) string {
	seg := strings.TrimLeft(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	if len(seg) != 2 {
		return ""
	}
	return p.accept(seg)
}

// resolveRequestLanguage picks, in order: query param, /:lang/ path prefix,
// cookie, Accept-Language, configured default, "en".
func resolveRequestLanguage(c *gin.Context, cfg LanguageConfig) string {
	p := newLangPicker(cfg.Supported)
	cookie, _ := c.Cookie(cfg.CookieName)
	candidates := []func() string{
		func() string { return p.accept(c.Query(cfg.QueryParam)) },
		func() string { return p.fromPathPrefix(c.Request.URL.Path) },
		func() string { return p.accept(cookie) },
		func() string { return p.fromAcceptLanguage(c.GetHeader("Accept-Language")) },
		func() string { return p.accept(cfg.Default) },
	}
	for _, pick := range candidates {
		if l := pick(); l != "" {
			return l
		}
	}
	return authlang.Default
}

// LanguageMiddleware attaches the inferred request language to the context.
func LanguageMiddleware(cfg *LanguageConfig) gin.HandlerFunc {
	conf := cfg.defaulted()
	return func(c *gin.Context) {
		l := resolveRequestLanguage(c, conf)
		c.Set("storefront.language", l)
		c.Request = c.Request.WithContext(authlang.WithLanguage(c.Request.Context(), l))
		c.Next()
	}
}
