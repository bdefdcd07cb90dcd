package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/laszhr/lasz/internal"
	"github.com/laszhr/lasz/internal/billing"
	"github.com/laszhr/lasz/internal/bootstrap"
	"github.com/laszhr/lasz/internal/changefeed"
	"github.com/laszhr/lasz/internal/cookie"
	"github.com/laszhr/lasz/internal/handler"
	"github.com/laszhr/lasz/internal/handler/api"
	"github.com/laszhr/lasz/internal/handler/webhook"
	"github.com/laszhr/lasz/internal/jobs"
	"github.com/laszhr/lasz/internal/middleware"
	"github.com/laszhr/lasz/internal/postgres"
	"github.com/laszhr/lasz/internal/rota"
	"github.com/laszhr/lasz/internal/router"
	"github.com/laszhr/lasz/internal/routes"
	"github.com/laszhr/lasz/internal/service"
	"github.com/laszhr/lasz/internal/telemetry"
	"github.com/laszhr/lasz/internal/worker"
	"github.com/nats-io/nats.go"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Error tracking (no-op without SENTRY_DSN)
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		SampleRate:  cfg.Sentry.SampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	telemetry.InitBusinessMetrics("lasz")

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(ctx, sqlDB, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Stores
	companyStore := postgres.NewCompanyService(pool)
	shiftStore := postgres.NewShiftService(pool)
	identity := postgres.NewIdentityService(pool, cfg.SessionTTL)

	if err := bootstrap.EnsureBusinessAdmin(ctx, identity, &bootstrap.AdminConfig{
		Email:       cfg.Admin.Email,
		Password:    cfg.Admin.Password,
		FullName:    cfg.Admin.FullName,
		CompanyName: cfg.Admin.CompanyName,
	}, logger); err != nil {
		return fmt.Errorf("admin bootstrap failed: %w", err)
	}

	// Billing provider is optional; checkout answers 503 without it
	var billingProvider billing.Provider
	if cfg.Stripe.SecretKey != "" {
		stripeProvider, err := billing.NewStripeProvider(billing.StripeConfig{
			APIKey:           cfg.Stripe.SecretKey,
			WebhookSecret:    cfg.Stripe.WebhookSecret,
			WebhookTolerance: cfg.Stripe.WebhookTolerance,
			PriceID:          cfg.Stripe.PriceID,
			MaxRetries:       3,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Stripe provider: %w", err)
		}
		billingProvider = stripeProvider
		logger.Info("Stripe billing provider initialized")
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, checkout disabled")
	}
	verifier := billing.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)
	if !verifier.Configured() {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set, webhooks will be rejected")
	}

	// Services
	subscriptionService := service.NewSubscriptionService(companyStore, billingProvider, logger)
	sessionService := service.NewSessionService(identity, companyStore, identity, logger)
	companyService := service.NewCompanyService(companyStore, logger)

	// Shift change notifications
	hub := changefeed.NewHub(logger)
	switch cfg.Changefeed.Source {
	case "nats":
		nc, err := nats.Connect(cfg.Changefeed.NATSURL,
			nats.Name("lasz"),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Drain()
		go runSource(ctx, logger, "nats", changefeed.NewNATSSource(nc, cfg.Changefeed.Channel, logger).Run, hub)
		if cfg.Changefeed.Relay {
			// This instance owns the LISTEN connection and fans out over NATS,
			// including to itself through the subscription above.
			relay := changefeed.NewNATSRelay(nc, cfg.Changefeed.Channel, logger)
			go runSource(ctx, logger, "postgres-relay", changefeed.NewPostgresSource(cfg.DatabaseUrl, cfg.Changefeed.Channel, logger).Run, relay)
		}
	default:
		go runSource(ctx, logger, "postgres", changefeed.NewPostgresSource(cfg.DatabaseUrl, cfg.Changefeed.Channel, logger).Run, hub)
	}

	engine := rota.NewEngine(shiftStore, hub, logger)

	// Background jobs
	w := worker.NewWorker(worker.Config{}, logger, worker.Job{
		Name:     jobs.JobTypeCleanupExpiredSessions,
		Interval: cfg.Cleanup.Interval,
		Timeout:  cfg.Cleanup.Timeout,
		Run: func(ctx context.Context) error {
			res, err := jobs.CleanupExpiredSessions(ctx, identity)
			if err != nil {
				return err
			}
			if res.SessionsDeleted > 0 {
				logger.Info("expired sessions deleted", "count", res.SessionsDeleted)
			}
			return nil
		},
	})
	go w.Start(ctx)

	// ==========================================================================
	// Handlers
	// ==========================================================================

	cookies := cookie.NewConfig(cfg.Cookie.Domain, cfg.Cookie.Secure)
	billingAPI := api.NewBillingHandler(subscriptionService, cfg.BaseURL, logger)

	// ==========================================================================
	// Middleware and routes
	// ==========================================================================

	metrics := middleware.NewMetrics("lasz")
	clientIPs, err := middleware.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	signinLimiter := middleware.NewRateLimiter(ctx, middleware.SignInRateLimiterConfig(clientIPs.ClientIP))

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		telemetry.SentryMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.Cookie.Secure)),
		middleware.WithViewer(sessionService, logger),
		middleware.WithRequestLogger(logger),
		middleware.SameOrigin(cookie.SessionCookieName, cfg.AllowedOrigins),
		router.Logger(logger),
	)

	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		pingCtx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			handler.MessageResponse(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		handler.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	routes.RegisterBillingRoutes(r, routes.BillingDeps{
		WebhookHandler:    webhook.NewBillingHandler(verifier, subscriptionService, logger),
		APIHandler:        billingAPI,
		InternalAPISecret: cfg.InternalAPISecret,
	})
	routes.RegisterAuthRoutes(r, routes.AuthDeps{
		Handler:     api.NewAuthHandler(sessionService, cookies, logger),
		RateLimiter: signinLimiter,
	})
	routes.RegisterAPIRoutes(r, routes.APIDeps{
		RotaHandler:    api.NewRotaHandler(engine, cfg.RotaLocation, cfg.AllowedOrigins, logger),
		CompanyHandler: api.NewCompanyHandler(companyService, logger),
		BillingHandler: billingAPI,
	})

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// runSource feeds out from a change source. Live rota updates stop if it
// fails, but the JSON rota keeps working.
func runSource(ctx context.Context, logger *slog.Logger, name string, run func(context.Context, changefeed.Publisher) error, out changefeed.Publisher) {
	if err := run(ctx, out); err != nil {
		logger.Error("change source stopped", "source", name, "error", err)
		return
	}
	logger.Info("change source stopped", "source", name)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
