package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "storefront.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
http_addr: ":9000"
redis_url: "redis://file:6379/0"
identity:
  issuer: "https://id.example.com"
captcha:
  ttl: 2m
rate_limits:
  captcha_verify:
    limit: 5
    window: 30s
products:
  - id: soc2
    name: SOC 2
    status: active
    price_cents: 4900
    monthly_price_cents: 1000
`)
	t.Setenv("STOREFRONT_REDIS_URL", "redis://env:6379/1")
	t.Setenv("STOREFRONT_LANGUAGES", "en, es")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.Captcha.TTL != 2*time.Minute {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.RedisURL != "redis://env:6379/1" {
		t.Fatalf("env should override file, got %q", cfg.RedisURL)
	}
	if got := cfg.RateLimits["captcha_verify"]; got.Limit != 5 || got.Window != 30*time.Second {
		t.Fatalf("file rate limit not applied: %+v", got)
	}
	if _, ok := cfg.RateLimits["checkout_start"]; !ok {
		t.Fatal("default rate limits should survive a partial file")
	}
	if len(cfg.Languages) != 2 || cfg.Languages[1] != "es" {
		t.Fatalf("languages: %v", cfg.Languages)
	}
	if len(cfg.Products) != 1 || cfg.Products[0].MonthlyPriceCents != 1000 {
		t.Fatalf("products: %+v", cfg.Products)
	}
	if cfg.Captcha.GridSize != 9 || cfg.Captcha.ClearanceTTL != 10*time.Minute {
		t.Fatalf("defaults lost: %+v", cfg.Captcha)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("STOREFRONT_IDENTITY_ISSUER", "https://id.example.com")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.PurgeSchedule != "@every 1m" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load(writeFile(t, "http_addr: [")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Load(writeFile(t, `http_addr: ":1"`)); err == nil {
		t.Fatal("expected missing issuer to be rejected")
	}
	bad := writeFile(t, `
identity:
  issuer: "https://id.example.com"
rate_limits:
  checkout_start:
    limit: 0
    window: 1m
`)
	if _, err := Load(bad); err == nil {
		t.Fatal("expected zero limit to be rejected")
	}
}

func TestLoad_CheckoutProvider(t *testing.T) {
	t.Setenv("STOREFRONT_IDENTITY_ISSUER", "https://id.example.com")
	t.Setenv("STOREFRONT_SANDBOX_SETTLE", "true")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Checkout.Provider != "sandbox" || !cfg.Checkout.SandboxSettle {
		t.Fatalf("checkout: %+v", cfg.Checkout)
	}

	t.Setenv("STOREFRONT_CHECKOUT_PROVIDER", "stripe")
	if _, err := Load(""); err == nil {
		t.Fatal("expected an unknown provider to be rejected")
	}
}
