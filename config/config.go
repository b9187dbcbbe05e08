// Package config resolves the storefront's runtime configuration from
// built-in defaults, an optional YAML file and STOREFRONT_* environment
// variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimit is one bucket's allowance.
type RateLimit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Product seeds the in-memory catalog when no database is configured.
type Product struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	Status            string `yaml:"status"`
	PriceCents        int64  `yaml:"price_cents"`
	MonthlyPriceCents int64  `yaml:"monthly_price_cents"`
}

// Config is the resolved configuration.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	DatabaseURL    string `yaml:"database_url"`
	RedisURL       string `yaml:"redis_url"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
	ProfilesSchema string `yaml:"profiles_schema"`

	Identity struct {
		Issuer    string        `yaml:"issuer"`
		Audience  string        `yaml:"audience"`
		JWKSURL   string        `yaml:"jwks_url"`
		AdminRole string        `yaml:"admin_role"`
		Skew      time.Duration `yaml:"skew"`
	} `yaml:"identity"`

	Captcha struct {
		GridSize     int           `yaml:"grid_size"`
		MinMatches   int           `yaml:"min_matches"`
		MaxMatches   int           `yaml:"max_matches"`
		TTL          time.Duration `yaml:"ttl"`
		ClearanceTTL time.Duration `yaml:"clearance_ttl"`
	} `yaml:"captcha"`

	Checkout struct {
		// Provider names the checkout.Provider implementation. Only
		// "sandbox" ships with the service.
		Provider      string `yaml:"provider"`
		SuccessURL    string `yaml:"success_url"`
		WebhookSecret string `yaml:"webhook_secret"`
		MaxWorkers    int    `yaml:"max_workers"`
		// SandboxSettle exposes the route that pays, fails or cancels
		// sandbox sessions. Development only.
		SandboxSettle bool   `yaml:"sandbox_settle"`
	} `yaml:"checkout"`

	PurgeSchedule string               `yaml:"purge_schedule"`
	RateLimits    map[string]RateLimit `yaml:"rate_limits"`
	Languages     []string             `yaml:"languages"`
	Products      []Product            `yaml:"products"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	var c Config
	c.HTTPAddr = ":8080"
	c.LogLevel = "info"
	c.LogJSON = true
	c.RedisKeyPrefix = "storefront:"
	c.ProfilesSchema = "profiles"
	c.Identity.Audience = "storefront"
	c.Identity.AdminRole = "admin"
	c.Identity.Skew = 30 * time.Second
	c.Captcha.GridSize = 9
	c.Captcha.MinMatches = 2
	c.Captcha.MaxMatches = 4
	c.Captcha.TTL = 5 * time.Minute
	c.Captcha.ClearanceTTL = 10 * time.Minute
	c.Checkout.Provider = "sandbox"
	c.Checkout.SuccessURL = "/checkout/success"
	c.Checkout.MaxWorkers = 10
	c.PurgeSchedule = "@every 1m"
	c.Languages = []string{"en"}
	c.RateLimits = map[string]RateLimit{
		"default":          {Limit: 120, Window: time.Minute},
		"captcha_issue":    {Limit: 20, Window: time.Minute},
		"captcha_verify":   {Limit: 20, Window: time.Minute},
		"checkout_start":   {Limit: 10, Window: time.Minute},
		"checkout_confirm": {Limit: 30, Window: time.Minute},
		"checkout_webhook": {Limit: 600, Window: time.Minute},
	}
	return c
}

// Load resolves configuration: defaults, then the YAML file at path (a
// missing file is not an error), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			limits := cfg.RateLimits
			cfg.RateLimits = nil
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
			// File limits refine the defaults rather than replacing them.
			for k, v := range cfg.RateLimits {
				limits[k] = v
			}
			cfg.RateLimits = limits
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.HTTPAddr = envOrDefault("STOREFRONT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = strings.ToLower(envOrDefault("STOREFRONT_LOG_LEVEL", cfg.LogLevel))
	cfg.LogJSON = envBool("STOREFRONT_LOG_JSON", cfg.LogJSON)
	cfg.DatabaseURL = envOrDefault("STOREFRONT_DATABASE_URL", envOrDefault("DATABASE_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("STOREFRONT_REDIS_URL", envOrDefault("REDIS_URL", cfg.RedisURL))
	cfg.Identity.Issuer = envOrDefault("STOREFRONT_IDENTITY_ISSUER", cfg.Identity.Issuer)
	cfg.Identity.Audience = envOrDefault("STOREFRONT_IDENTITY_AUDIENCE", cfg.Identity.Audience)
	cfg.Identity.JWKSURL = envOrDefault("STOREFRONT_IDENTITY_JWKS_URL", cfg.Identity.JWKSURL)
	cfg.Captcha.TTL = envDuration("STOREFRONT_CAPTCHA_TTL", cfg.Captcha.TTL)
	cfg.Captcha.ClearanceTTL = envDuration("STOREFRONT_CLEARANCE_TTL", cfg.Captcha.ClearanceTTL)
	cfg.Checkout.SuccessURL = envOrDefault("STOREFRONT_CHECKOUT_SUCCESS_URL", cfg.Checkout.SuccessURL)
	cfg.Checkout.WebhookSecret = envOrDefault("STOREFRONT_WEBHOOK_SECRET", cfg.Checkout.WebhookSecret)
	cfg.Checkout.Provider = strings.ToLower(envOrDefault("STOREFRONT_CHECKOUT_PROVIDER", cfg.Checkout.Provider))
	cfg.Checkout.SandboxSettle = envBool("STOREFRONT_SANDBOX_SETTLE", cfg.Checkout.SandboxSettle)
	cfg.Checkout.MaxWorkers = envInt("STOREFRONT_CHECKOUT_WORKERS", cfg.Checkout.MaxWorkers)
	cfg.PurgeSchedule = envOrDefault("STOREFRONT_PURGE_SCHEDULE", cfg.PurgeSchedule)
	cfg.Languages = envCSV("STOREFRONT_LANGUAGES", cfg.Languages)

	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("config: http_addr is required")
	}
	if c.Identity.Issuer == "" && c.Identity.JWKSURL == "" {
		return fmt.Errorf("config: identity.issuer or identity.jwks_url is required")
	}
	if c.Checkout.Provider != "sandbox" {
		return fmt.Errorf("config: unsupported checkout.provider %q", c.Checkout.Provider)
	}
	if c.Captcha.MinMatches > c.Captcha.MaxMatches {
		return fmt.Errorf("config: captcha.min_matches exceeds max_matches")
	}
	for name, rl := range c.RateLimits {
		if rl.Limit <= 0 || rl.Window <= 0 {
			return fmt.Errorf("config: rate limit %q needs a positive limit and window", name)
		}
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
