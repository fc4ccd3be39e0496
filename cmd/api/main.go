package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/checkout"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/events"
	"github.com/noah-isme/toko-storefront/internal/health"
	"github.com/noah-isme/toko-storefront/internal/lock"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/productcard"
	"github.com/noah-isme/toko-storefront/internal/ratelimit"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/security"
	"github.com/noah-isme/toko-storefront/internal/session"
	"github.com/noah-isme/toko-storefront/internal/storefront"
	"github.com/noah-isme/toko-storefront/internal/submit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "toko_storefront")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "toko-storefront",
			ServiceVersion: envOrDefault("APP_VERSION", "dev"),
			Endpoint:       envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:       envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio:  sampling,
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisClient := connectRedis(ctx, cfg, logger, metricsEnabled)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	products, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}
	lines := storefront.CatalogLines{Catalog: products}

	bus := &events.Bus{Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}}}

	var cartBackend cart.Backend = cart.NewMemoryBackend()
	if redisClient != nil {
		cartBackend = cart.RedisBackend{Client: redisClient, TTL: cfg.CartTTL}
	} else {
		logger.Warn().Msg("REDIS_URL not set, carts are kept in memory")
	}
	cartStore := &cart.Store{Backend: cartBackend, Bus: bus, Key: cfg.CartStorageKey, Logger: logger}
	cartSvc := &cart.Service{Store: cartStore}

	pages := &storefront.Registry{
		Bus:     bus,
		Cart:    cartSvc,
		Lines:   lines.Lines,
		Steps:   cfg.WizardSteps,
		IdleTTL: cfg.CartTTL,
		Logger:  logger,
	}
	if redisClient != nil {
		pages.Locker = &lock.Locker{R: redisClient, Prefix: "checkout_submit:"}
		pages.SubmitLease = cfg.CheckoutTimeout + 5*time.Second
		pages.Shared = true
	}

	breaker := resilience.NewBreaker(
		envInt("CHECKOUT_BREAKER_MIN_REQUESTS", 5),
		envFloat("CHECKOUT_BREAKER_FAILURE_RATIO", 0.5),
		envDurationMillis("CHECKOUT_BREAKER_OPEN_MS", 30000),
	).WithTarget("checkout_backend").WithLogger(logger)

	submitter := &submit.Submitter{
		Pages: pages,
		Cart:  cartSvc,
		Client: &submit.Client{
			HTTP:       submit.NewHTTPClient(cfg.CheckoutTimeout, breaker),
			URL:        cfg.CheckoutURL(),
			CSRFHeader: cfg.CSRFHeaderName,
			Logger:     logger,
		},
		SuccessURL: cfg.CheckoutSuccessURL,
		Logger:     logger,
	}

	catalogHandler := &catalog.Handler{Catalog: products}
	cartHandler := &cart.Handler{Svc: cartSvc, Products: lines, Pages: pages}
	cardHandler := &productcard.Handler{Pages: pages}
	checkoutHandler := &checkout.Handler{Pages: pages}
	submitHandler := &submit.Handler{Submitter: submitter, CSRFCookie: cfg.CSRFCookieName}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL, Prefix: "storefront_idem:"}

	limitStore, err := ratelimit.NewStore(redisClient, "storefront_ratelimit:")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limit store")
	}
	submitLimiter, err := ratelimit.New(limitStore, cfg.SubmitRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse submit rate limit")
	}
	submitLimit := ratelimit.Handler{
		Limiter: submitLimiter,
		Key:     ratelimit.SessionKey,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limit store unavailable") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics, SkipPaths: []string{"/metrics"}}.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", cfg.CSRFHeaderName, common.IdempotencyHeader},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{
		Enable:     envBool("SECURE_HEADERS_ENABLE", true),
		EnableHSTS: envBool("SECURE_HSTS_ENABLE", cfg.CookieSecure),
		HSTSMaxAge: envInt("SECURE_HSTS_MAX_AGE", 31536000),

		ContentSecurityPolicy: envOrDefault("SECURE_CSP", ""),
	}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", false)
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug", protectPprof(middleware.Profiler(), user, pass))
	}

	healthHandler := health.Handler{
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		Breakers:     []health.BreakerStats{breaker},
	}
	if redisClient != nil {
		healthHandler.Checker = readinessChecker{redis: redisClient}
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(session.Middleware{
			CookieName: cfg.SessionCookieName,
			Domain:     cfg.CookieDomain,
			Secure:     cfg.CookieSecure,
			SameSite:   cfg.CookieSameSite,
			MaxAge:     cfg.CartTTL,
		}.Handler)
		v.Use(obs.RequestLogger{Logger: logger}.Middleware)
		v.Use(security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 64<<10))}.Middleware)
		v.Use(security.CSRF{
			CookieName: cfg.CSRFCookieName,
			Header:     cfg.CSRFHeaderName,
			Issue:      true,
			Domain:     cfg.CookieDomain,
			Secure:     cfg.CookieSecure,
			SameSite:   cfg.CookieSameSite,
		}.Middleware)

		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.Product)

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.Put("/items/{id}", cartHandler.SetItem)
			c.Delete("/items/{id}", cartHandler.RemoveItem)
		})

		v.Route("/cards", func(c chi.Router) {
			c.Get("/", cardHandler.List)
			c.Post("/confirm", cardHandler.Confirm)
			c.Post("/{id}/add", cardHandler.Add())
			c.Post("/{id}/edit", cardHandler.Edit())
			c.Post("/{id}/increment", cardHandler.Increment())
			c.Post("/{id}/decrement", cardHandler.Decrement())
			c.Post("/{id}/input", cardHandler.Input)
			c.Post("/{id}/confirm", cardHandler.ConfirmCard())
		})

		v.Route("/checkout", func(c chi.Router) {
			c.Get("/", checkoutHandler.Get)
			c.Post("/next", checkoutHandler.Next)
			c.Post("/prev", checkoutHandler.Prev)
			c.Put("/form", checkoutHandler.UpdateForm)
			c.Put("/shipping", checkoutHandler.SelectShipping)
			c.With(submitLimit.Middleware, idem.Middleware).Post("/submit", submitHandler.Submit)
		})
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go pages.Janitor(runCtx, envDurationMillis("STOREFRONT_SWEEP_INTERVAL_MS", 60000))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-runCtx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.CheckoutTimeout+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("checkout_url", cfg.CheckoutURL()).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metricsEnabled bool) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	redis *redis.Client
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
