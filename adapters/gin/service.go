// Package storegin mounts the storefront API on a gin router.
package storegin

import (
	"github.com/PaulFidika/auditstore/adapters/gin/handlers"
	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/captcha"
	"github.com/PaulFidika/auditstore/catalog"
	"github.com/PaulFidika/auditstore/checkout"
	"github.com/PaulFidika/auditstore/checkout/sandbox"
	"github.com/PaulFidika/auditstore/clearance"
	"github.com/PaulFidika/auditstore/entitlements"
	"github.com/PaulFidika/auditstore/jobs"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Config holds the components every route needs.
type Config struct {
	Captcha    *captcha.Verifier
	Clearances ClearanceRedeemer
	Resolver   *entitlements.Resolver
	Products   catalog.Reader
	Checkout   *checkout.Completer
	Tokens     BearerVerifier
}

// Service is the gin front of the storefront core.
type Service struct {
	cfg           Config
	rl            ginutil.RateLimiter
	enqueuer      handlers.ConfirmEnqueuer
	webhookSecret string
	lang          *LanguageConfig
	log           logrus.FieldLogger
	sandbox       *sandbox.Provider
}

// NewService builds a service. Webhooks are confirmed inline until
// WithEnqueuer installs a queue.
func NewService(cfg Config) *Service {
	return &Service{
		cfg:      cfg,
		enqueuer: jobs.InlineConfirmer{Completer: cfg.Checkout},
		log:      logrus.StandardLogger(),
	}
}

func (s *Service) WithRateLimiter(rl ginutil.RateLimiter) *Service {
	s.rl = rl
	return s
}

func (s *Service) WithEnqueuer(q handlers.ConfirmEnqueuer) *Service {
	s.enqueuer = q
	return s
}

func (s *Service) WithWebhookSecret(secret string) *Service {
	s.webhookSecret = secret
	return s
}

func (s *Service) WithLanguageConfig(cfg LanguageConfig) *Service {
	s.lang = &cfg
	return s
}

func (s *Service) WithLogger(l logrus.FieldLogger) *Service {
	s.log = l
	return s
}

// WithSandboxSettle mounts POST /checkout/sandbox/:session_id/settle so
// sandbox sessions can be paid from a development setup.
func (s *Service) WithSandboxSettle(p *sandbox.Provider) *Service {
	s.sandbox = p
	return s
}

// RequireClearance is the middleware external flows use to demand a
// solved captcha.
func (s *Service) RequireClearance(flow clearance.Flow) gin.HandlerFunc {
	return RequireClearance(s.cfg.Clearances, flow)
}

// GinRegisterAPI mounts every storefront route on r.
func (s *Service) GinRegisterAPI(r gin.IRouter) {
	auth := AuthRequired(s.cfg.Tokens)
	r.Use(ginutil.SetLogger(s.log), LanguageMiddleware(s.lang), AuthOptional(s.cfg.Tokens))

	r.GET("/captcha/challenge", handlers.HandleCaptchaChallengeGET(s.cfg.Captcha, s.rl))
	r.POST("/captcha/verify", handlers.HandleCaptchaVerifyPOST(s.cfg.Captcha, s.rl))

	r.GET("/products/:product_id/pricing", handlers.HandleProductPricingGET(s.cfg.Products, s.rl))
	r.GET("/products/:product_id/entitlement", auth, handlers.HandleProductEntitlementGET(s.cfg.Resolver, s.rl))
	r.POST("/products/:product_id/checkout", auth, s.RequireClearance(clearance.FlowPurchase),
		handlers.HandleProductCheckoutPOST(s.cfg.Checkout, s.rl))

	r.GET("/checkout/success", auth, handlers.HandleCheckoutSuccessGET(s.cfg.Checkout, s.rl))
	r.POST("/checkout/webhook", handlers.HandleCheckoutWebhookPOST(s.enqueuer, s.webhookSecret, s.rl))

	r.GET("/viewer", handleViewer)
	if s.sandbox != nil {
		r.POST("/checkout/sandbox/:session_id/settle", auth, handlers.HandleSandboxSettlePOST(s.sandbox))
	}
}
