// Package main is the entrypoint for the Perks API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/perks/perks/internal/auth"
	"github.com/perks/perks/internal/cache"
	"github.com/perks/perks/internal/config"
	"github.com/perks/perks/internal/handler"
	"github.com/perks/perks/internal/metrics"
	"github.com/perks/perks/internal/middleware"
	"github.com/perks/perks/internal/repository"
	"github.com/perks/perks/internal/server"
	"github.com/perks/perks/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if cfg.AutoMigrate {
		if err := repository.Migrate(cfg.DatabaseURL); err != nil {
			logger.Error("failed to apply migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	var (
		recorder metrics.Recorder = metrics.NewNoop()
		exporter *handler.MetricsHandler
	)
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheus()
		recorder = prom
		exporter = handler.NewMetricsHandler(prom.Handler())
	} else {
		exporter = handler.NewMetricsHandler(nil)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	authService := service.NewAuthService(repo, tokens, cacheClient, cfg.ResetTokenTTL, recorder)
	userService := service.NewUserService(repo, repo, cacheClient, cfg.ActivationTokenTTL, recorder)
	promotionService := service.NewPromotionService(repo, cacheClient, recorder)
	eventService := service.NewEventService(repo, repo, repo, recorder)
	transactionService := service.NewTransactionService(repo, repo, repo, recorder)

	api := apiHandlers{
		root:         handler.New(),
		health:       handler.NewHealthHandler(repo, cacheClient),
		metrics:      exporter,
		auth:         handler.NewAuthHandler(authService, logger),
		users:        handler.NewUserHandler(userService, logger),
		promotions:   handler.NewPromotionHandler(promotionService, logger),
		events:       handler.NewEventHandler(eventService, logger),
		transactions: handler.NewTransactionHandler(transactionService, logger),
	}

	r := setupRouter(api, authService, cacheClient, recorder, cfg, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Closed in reverse: Redis first, then Postgres.
	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		slog.Int("port", cfg.AppPort),
		slog.String("env", cfg.AppEnv),
		slog.Bool("metrics", cfg.MetricsEnabled),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type apiHandlers struct {
	root         *handler.Handler
	health       *handler.HealthHandler
	metrics      *handler.MetricsHandler
	auth         *handler.AuthHandler
	users        *handler.UserHandler
	promotions   *handler.PromotionHandler
	events       *handler.EventHandler
	transactions *handler.TransactionHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h apiHandlers,
	authenticator middleware.Authenticator,
	limiter middleware.RateLimiter,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(cfg.IsDevelopment()))
	r.Use(middleware.CORS(cfg.GetCORSAllowedOrigins()))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Platform endpoints (no auth required)
	r.Get("/", h.root.Info)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Get("/metrics", h.metrics.Metrics)

	authCfg := middleware.AuthConfig{
		Logger:        logger,
		Authenticator: authenticator,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:      logger,
		Limiter:     limiter,
		Recorder:    recorder,
		APIEnabled:  cfg.RateLimitAPIEnabled,
		APIRPM:      cfg.RateLimitAPIRPM,
		APIBurst:    cfg.RateLimitAPIBurst,
		ResetWindow: cfg.ResetRateLimitWindow,
	}

	cashier := middleware.RequireCashier()
	manager := middleware.RequireManager()

	// Public auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/tokens", h.auth.Login)
		r.With(middleware.RateLimitReset(rateLimitCfg)).Post("/resets", h.auth.RequestReset)
		r.Post("/resets/{resetToken}", h.auth.CompleteReset)
	})

	// Authenticated API routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		r.Route("/users", func(r chi.Router) {
			r.With(cashier).Post("/", h.users.Register)
			r.With(manager).Get("/", h.users.List)

			r.Get("/me", h.users.Me)
			r.Patch("/me", h.users.UpdateMe)
			r.Patch("/me/password", h.users.ChangePassword)
			r.Post("/me/transactions", h.transactions.Redeem)
			r.Get("/me/transactions", h.transactions.ListMine)

			r.With(cashier).Get("/{userId}", h.users.Get)
			r.With(manager).Patch("/{userId}", h.users.Update)
			r.Post("/{userId}/transactions", h.transactions.Transfer)
		})

		r.Route("/promotions", func(r chi.Router) {
			r.Get("/", h.promotions.List)
			r.Get("/{promotionId}", h.promotions.Get)
			r.With(manager).Post("/", h.promotions.Create)
			r.With(manager).Patch("/{promotionId}", h.promotions.Update)
			r.With(manager).Delete("/{promotionId}", h.promotions.Delete)
		})

		// Organizer access is decided by the service, so only the
		// manager-exclusive routes carry a role gate here.
		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.events.List)
			r.With(manager).Post("/", h.events.Create)

			r.Route("/{eventId}", func(r chi.Router) {
				r.Get("/", h.events.Get)
				r.Patch("/", h.events.Update)
				r.With(manager).Delete("/", h.events.Delete)

				r.With(manager).Post("/organizers", h.events.AddOrganizer)
				r.With(manager).Delete("/organizers/{userId}", h.events.RemoveOrganizer)

				r.Post("/guests", h.events.AddGuest)
				r.Post("/guests/me", h.events.Join)
				r.Delete("/guests/me", h.events.Leave)
				r.With(manager).Delete("/guests/{userId}", h.events.RemoveGuest)

				r.Post("/transactions", h.events.Award)
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.With(cashier).Post("/", h.transactions.Create)
			r.With(manager).Get("/", h.transactions.List)
			r.With(manager).Get("/{transactionId}", h.transactions.Get)
			r.With(manager).Patch("/{transactionId}/suspicious", h.transactions.SetSuspicious)
			r.With(cashier).Patch("/{transactionId}/processed", h.transactions.Process)
		})
	})

	r.NotFound(h.root.NotFound)
	r.MethodNotAllowed(h.root.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
