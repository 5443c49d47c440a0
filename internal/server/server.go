// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New opens the database, builds every client,
// service and handler, and wires them to routes. Nothing below this package
// constructs its own dependencies.
//
//	sqlite.DB ─┬→ services → handlers → routes
//	clients  ──┘
//
// Start blocks until SIGINT/SIGTERM, then drains requests and releases
// everything New acquired, in reverse order.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/sakif/kitchi/internal/auth"
	"github.com/sakif/kitchi/internal/config"
	"github.com/sakif/kitchi/internal/functions"
	"github.com/sakif/kitchi/internal/handler"
	"github.com/sakif/kitchi/internal/metrics"
	"github.com/sakif/kitchi/internal/middleware"
	"github.com/sakif/kitchi/internal/notifier"
	"github.com/sakif/kitchi/internal/push"
	"github.com/sakif/kitchi/internal/realtime"
	"github.com/sakif/kitchi/internal/recipecache"
	sqliteRepo "github.com/sakif/kitchi/internal/repository/sqlite"
	"github.com/sakif/kitchi/internal/service"
	"github.com/sakif/kitchi/internal/spoonacular"
)

// Server owns the router and every long-lived resource behind it.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	cache    *recipecache.Cache // nil when REDIS_URL is unset or unreachable
	limiter  *middleware.RateLimiter
	notifier *notifier.Notifier // nil when NOTIFIER_ENABLED=false
	registry *prometheus.Registry
}

// New builds the server. Nothing is listening yet; the notifier is created
// but only started by Start.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: registry,
		limiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimitRPS),
			Burst: cfg.RateLimitBurst,
		}, logger),
	}

	if err := s.setupRoutes(metrics.NewCollector(registry)); err != nil {
		s.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the fully wrapped router, for tests and for Start.
func (s *Server) Handler() http.Handler {
	return cors.New(corsOptions(s.config.AllowedOrigins())).Handler(s.router)
}

// corsOptions allows any origin when none are configured, but then without
// credentials: the session cookie is only shared with listed origins.
func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: len(origins) > 0,
		MaxAge:           300,
	}
}

// setupRoutes builds the clients, services and handlers and mounts them.
//
// MIDDLEWARE ORDER:
//  1. RequestID: everything after it can log the id
//  2. RealIP: the rate limiter keys anonymous callers by it
//  3. Logger: sees the final status, including recovered panics
//  4. Recoverer
//
// The rate limiter runs after RequireAuth so signed-in callers are limited
// per user, not per NAT'd address.
func (s *Server) setupRoutes(collector *metrics.Collector) error {
	cfg := s.config

	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger, collector))
	s.router.Use(chimiddleware.Recoverer)

	// === Clients ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	recipeAPI := spoonacular.New(cfg.SpoonacularBaseURL, cfg.SpoonacularAPIKey, cfg.SpoonacularRPS, cfg.SpoonacularTimeout, collector)
	fnClient := functions.New(cfg.FunctionsBaseURL, cfg.FunctionsAPIKey, cfg.FunctionsTimeout, collector)
	fetcher := functions.NewImageFetcher(cfg.FunctionsTimeout, cfg.ImageMaxBytes)
	hub := realtime.NewHub(cfg.AllowedOrigins(), s.logger)

	if cfg.SpoonacularAPIKey == "" {
		s.logger.Warn("SPOONACULAR_API_KEY not set; recipe search will fail")
	}
	if !fnClient.Enabled() {
		s.logger.Warn("FUNCTIONS_BASE_URL not set; image analysis is disabled")
	}

	// Interface-typed so a missing cache is a true nil, not a typed nil.
	var (
		detailCache service.DetailCache
		cachePinger handler.Pinger
	)
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		cache, err := recipecache.New(ctx, cfg.RedisURL, cfg.RecipeCacheTTL, collector, s.logger)
		cancel()
		if err != nil {
			s.logger.Warn("recipe cache unavailable, continuing without it", slog.String("error", err.Error()))
		} else {
			s.cache = cache
			detailCache, cachePinger = cache, cache
		}
	}

	var github handler.GitHubOAuth
	if cfg.GitHubEnabled() {
		callback := cfg.GitHubCallbackURL
		if callback == "" {
			callback = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
		}
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, callback)
	}

	// === Services ===
	// s.db implements every repository interface.
	passwords := auth.NewPasswordService()
	authSvc := service.NewAuthService(s.db, s.db, s.db, tokens, passwords, s.logger)
	pantrySvc := service.NewPantryService(s.db, s.db, hub, s.logger)
	recipeSvc := service.NewRecipeService(recipeAPI, detailCache, s.db, s.db, s.logger)

	if cfg.NotifierEnabled {
		s.notifier = notifier.New(s.db, s.db,
			push.NewClient(cfg.ExpoPushURL, cfg.ExpoAccessToken, 15*time.Second),
			notifier.Config{
				Interval:        cfg.NotifierInterval,
				WindowDays:      cfg.NotifierWindowDays,
				DeviceRetention: cfg.DeviceRetention,
			},
			collector, s.logger)
	}

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authSvc, github, cfg.TokenTTL, s.logger)
	profileHandler := handler.NewProfileHandler(service.NewProfileService(s.db, s.db, s.logger), s.logger)
	pantryHandler := handler.NewPantryHandler(pantrySvc, hub, s.logger)
	bookmarkHandler := handler.NewBookmarkHandler(service.NewBookmarkService(s.db, recipeAPI, s.logger), s.logger)
	recipeHandler := handler.NewRecipeHandler(recipeSvc, service.NewShoppingService(recipeSvc, s.db), s.logger)
	deviceHandler := handler.NewDeviceHandler(service.NewDeviceService(s.db, s.logger), s.logger)
	analyzeHandler := handler.NewAnalyzeHandler(
		service.NewAnalyzerService(fnClient, fetcher, cfg.ImageMaxBytes, s.logger), cfg.ImageMaxBytes, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, cachePinger, s.logger)

	// === Routes ===
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	s.router.Route("/auth", func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Post("/signup", authHandler.HandleSignUp)
		r.Post("/signin", authHandler.HandleSignIn)
		r.With(auth.OptionalAuth(tokens)).Post("/signout", authHandler.HandleSignOut)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Use(s.limiter.Middleware)

		r.Get("/me", authHandler.HandleMe)
		r.Get("/profile", profileHandler.HandleGet)
		r.Put("/profile", profileHandler.HandleUpdate)

		r.Get("/pantry", pantryHandler.HandleList)
		r.Post("/pantry", pantryHandler.HandleAdd)
		r.Post("/pantry/batch", pantryHandler.HandleAddBatch)
		r.Delete("/pantry/{id}", pantryHandler.HandleDelete)
		r.Get("/pantry/events", pantryHandler.HandleEvents)

		r.Get("/bookmarks", bookmarkHandler.HandleList)
		r.Get("/bookmarks/recipes", bookmarkHandler.HandleListRecipes)
		r.Get("/bookmarks/{recipeID}", bookmarkHandler.HandleGet)
		r.Put("/bookmarks/{recipeID}", bookmarkHandler.HandlePut)
		r.Delete("/bookmarks/{recipeID}", bookmarkHandler.HandleDelete)

		r.Get("/recipes", recipeHandler.HandleFind)
		r.Get("/recipes/{id}", recipeHandler.HandleDetail)
		r.Get("/recipes/{id}/shopping-list", recipeHandler.HandleRecipeShoppingList)
		r.Post("/shopping-list", recipeHandler.HandleShoppingList)

		r.Post("/analyze", analyzeHandler.HandleAnalyze)
		r.Post("/analyze/url", analyzeHandler.HandleAnalyzeURL)
		r.Post("/generate-recipe", analyzeHandler.HandleGenerateRecipe)

		r.Put("/devices", deviceHandler.HandleRegister)
		r.Delete("/devices/{deviceID}", deviceHandler.HandleUnregister)
	})

	return nil
}

// Start serves until SIGINT/SIGTERM and then shuts down gracefully:
//  1. stop accepting connections and drain in-flight requests (30s)
//  2. stop the notifier, waiting for a run in progress
//  3. close the cache and the database
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Image analysis waits on the functions call.
		WriteTimeout: s.config.FunctionsTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.Bool("recipe_cache", s.cache != nil),
			slog.Bool("notifier", s.notifier != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	if s.notifier != nil {
		s.notifier.Start()
	}

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

// close releases everything New acquired. Safe on a partly built Server.
func (s *Server) close() {
	if s.notifier != nil {
		s.notifier.Stop()
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("closing recipe cache", slog.String("error", err.Error()))
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}
