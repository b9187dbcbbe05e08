// Command storefront serves the audit-script storefront API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	storegin "github.com/PaulFidika/auditstore/adapters/gin"
	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/captcha"
	"github.com/PaulFidika/auditstore/catalog"
	"github.com/PaulFidika/auditstore/checkout"
	"github.com/PaulFidika/auditstore/checkout/sandbox"
	"github.com/PaulFidika/auditstore/clearance"
	"github.com/PaulFidika/auditstore/config"
	"github.com/PaulFidika/auditstore/entitlements"
	"github.com/PaulFidika/auditstore/identity"
	"github.com/PaulFidika/auditstore/jobs"
	migrations "github.com/PaulFidika/auditstore/migrations/postgres"
	"github.com/PaulFidika/auditstore/notify"
	memorylimiter "github.com/PaulFidika/auditstore/ratelimit/memory"
	redislimiter "github.com/PaulFidika/auditstore/ratelimit/redis"
	memorystore "github.com/PaulFidika/auditstore/storage/memory"
	pgstore "github.com/PaulFidika/auditstore/storage/postgres"
	redisstore "github.com/PaulFidika/auditstore/storage/redis"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	path := flag.String("config", envOr("STOREFRONT_CONFIG", "storefront.yaml"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("storefront exited")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// stores groups the backends chosen at startup.
type stores struct {
	challenges captcha.Store
	clearances clearance.Store
	limiter    ginutil.RateLimiter
	ledger     entitlements.Ledger
	products   catalog.Reader
	users      identity.Directory
	purgeable  map[string]jobs.Purger
	pool       *pgxpool.Pool
	memUsers   *memorystore.Directory
}

func openStores(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*stores, func(), error) {
	s := &stores{purgeable: map[string]jobs.Purger{}}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, closeAll, err
		}
		rdb := redis.NewClient(opts)
		closers = append(closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, closeAll, err
		}
		s.challenges = redisstore.NewChallengeStore(rdb, cfg.RedisKeyPrefix+"captcha:")
		s.clearances = redisstore.NewClearanceStore(rdb, cfg.RedisKeyPrefix+"clearance:")
		s.limiter = redislimiter.New(rdb, cfg.RedisKeyPrefix+"rl:", redisLimits(cfg.RateLimits))
		log.Info("using redis for challenges, clearances and rate limits")
	} else {
		ch := memorystore.NewChallengeStore()
		cl := memorystore.NewClearanceStore()
		rl := memorylimiter.New(memoryLimits(cfg.RateLimits))
		s.challenges, s.clearances, s.limiter = ch, cl, rl
		s.purgeable["clearances"] = cl
		s.purgeable["rate_limits"] = rl
		log.Warn("REDIS_URL not set; challenges and rate limits are local to this process")
	}
	s.purgeable["challenges"] = s.challenges

	products := make([]catalog.Product, 0, len(cfg.Products))
	for _, p := range cfg.Products {
		st, ok := catalog.ParseStatus(p.Status)
		if !ok {
			st = catalog.StatusDevelopment
		}
		products = append(products, catalog.Product{
			ID: p.ID, Name: p.Name, Status: st,
			PriceCents: p.PriceCents, MonthlyPriceCents: p.MonthlyPriceCents,
		})
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, pool.Close)
		if err := migrations.Up(ctx, pool, log); err != nil {
			return nil, closeAll, err
		}
		pc := pgstore.NewCatalog(pool)
		for _, p := range products {
			if err := pc.Upsert(ctx, p); err != nil {
				return nil, closeAll, err
			}
		}
		s.pool = pool
		s.ledger = pgstore.NewLedger(pool)
		s.products = pc
		s.users = identity.NewStore(pool, cfg.ProfilesSchema)
	} else {
		s.ledger = memorystore.NewLedger()
		s.products = memorystore.NewCatalog(products...)
		s.memUsers = memorystore.NewDirectory()
		s.users = s.memUsers
		log.Warn("DATABASE_URL not set; entitlements are kept in memory and lost on restart")
	}
	return s, closeAll, nil
}

func memoryLimits(in map[string]config.RateLimit) map[string]memorylimiter.Limit {
	out := make(map[string]memorylimiter.Limit, len(in))
	for k, v := range in {
		out[k] = memorylimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}

func redisLimits(in map[string]config.RateLimit) map[string]redislimiter.Limit {
	out := make(map[string]redislimiter.Limit, len(in))
	for k, v := range in {
		out[k] = redislimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}

// rememberingVerifier feeds verified callers into the in-memory directory,
// which has no other source of users.
type rememberingVerifier struct {
	*identity.TokenVerifier
	dir *memorystore.Directory
}

func (v rememberingVerifier) Verify(ctx context.Context, raw string) (identity.Identity, error) {
	id, err := v.TokenVerifier.Verify(ctx, raw)
	if err == nil {
		v.dir.Add(identity.User{ID: id.UserID, Email: id.Email, IsAdmin: id.IsAdmin})
	}
	return id, err
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	st, closeStores, err := openStores(ctx, cfg, log)
	defer closeStores()
	if err != nil {
		return err
	}

	tv := identity.NewTokenVerifier(identity.AcceptConfig{
		Issuer:    cfg.Identity.Issuer,
		Audience:  cfg.Identity.Audience,
		JWKSURL:   cfg.Identity.JWKSURL,
		Skew:      cfg.Identity.Skew,
		AdminRole: cfg.Identity.AdminRole,
	})
	var tokens storegin.BearerVerifier = tv
	if st.memUsers != nil {
		tokens = rememberingVerifier{TokenVerifier: tv, dir: st.memUsers}
	}

	clearances := clearance.NewLedger(st.clearances, cfg.Captcha.ClearanceTTL)
	verifier := captcha.NewVerifier(st.challenges,
		captcha.WithConfig(captcha.Config{
			GridSize:   cfg.Captcha.GridSize,
			MinMatches: cfg.Captcha.MinMatches,
			MaxMatches: cfg.Captcha.MaxMatches,
			TTL:        cfg.Captcha.TTL,
		}),
		captcha.WithClearances(clearances),
		captcha.WithLogger(log),
	)

	// Only the sandbox provider ships with the storefront (config.Validate
	// rejects anything else). It never settles sessions by itself: a hosted
	// payment provider has to be implemented behind checkout.Provider, or
	// sandbox_settle enabled so a developer can pay sessions by hand.
	provider := sandbox.New(cfg.Checkout.SuccessURL)
	if cfg.Checkout.SandboxSettle {
		log.Warn("checkout uses the sandbox provider; sessions are settled via POST /checkout/sandbox/:session_id/settle")
	} else {
		log.Warn("checkout uses the sandbox provider and sandbox_settle is off; sessions stay pending")
	}
	completer := checkout.NewCompleter(st.ledger, st.products, st.users, provider,
		checkout.WithNotifier(notify.NewLogNotifier(log)),
		checkout.WithLogger(log),
	)

	svc := storegin.NewService(storegin.Config{
		Captcha:    verifier,
		Clearances: clearances,
		Resolver:   entitlements.NewResolver(st.ledger, st.products),
		Products:   st.products,
		Checkout:   completer,
		Tokens:     tokens,
	}).
		WithRateLimiter(st.limiter).
		WithWebhookSecret(cfg.Checkout.WebhookSecret).
		WithLanguageConfig(storegin.LanguageConfig{Supported: cfg.Languages}).
		WithLogger(log)
	if cfg.Checkout.SandboxSettle {
		svc.WithSandboxSettle(provider)
	}

	if st.pool != nil {
		queue, err := jobs.NewQueue(ctx, st.pool, completer, log, cfg.Checkout.MaxWorkers)
		if err != nil {
			return err
		}
		if err := queue.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = queue.Stop(stopCtx)
		}()
		svc.WithEnqueuer(queue)
	}

	sweeper, err := jobs.NewSweeper(cfg.PurgeSchedule, log, st.purgeable)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), storegin.RequestLogger(log))
	svc.GinRegisterAPI(r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("storefront listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
