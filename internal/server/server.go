// Package server wires handlers, middleware, routes, and the background
// scheduler. It is the composition root: every dependency in the chain —
// store → providers → services → handlers — is assembled in New, so the
// rest of the codebase only ever sees interfaces.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fsakai/autopost/internal/auth"
	"github.com/fsakai/autopost/internal/config"
	"github.com/fsakai/autopost/internal/handler"
	"github.com/fsakai/autopost/internal/middleware"
	"github.com/fsakai/autopost/internal/notify"
	"github.com/fsakai/autopost/internal/provider"
	"github.com/fsakai/autopost/internal/provider/graph"
	"github.com/fsakai/autopost/internal/provider/openai"
	"github.com/fsakai/autopost/internal/provider/pexels"
	"github.com/fsakai/autopost/internal/provider/unsplash"
	sqliteRepo "github.com/fsakai/autopost/internal/repository/sqlite"
	"github.com/fsakai/autopost/internal/scheduler"
	"github.com/fsakai/autopost/internal/service"
)

// Server owns the HTTP router, the database connection, and the optional
// in-process scheduler. Both are shut down gracefully on stop.
type Server struct {
	router    *chi.Mux
	cfg       *config.Config
	logger    *slog.Logger
	db        *sqliteRepo.DB
	scheduler *scheduler.Scheduler
}

// New assembles the full dependency chain and returns a ready Server.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setup(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up server: %w", err)
	}

	return s, nil
}

func (s *Server) setup() error {
	cfg := s.cfg

	// === Providers ===
	openaiClient := openai.New(cfg.OpenAIKey, cfg.OpenAIModel, s.logger)
	imageProviders := []provider.ImageProvider{
		unsplash.New(cfg.UnsplashKey),
		pexels.New(cfg.PexelsKey),
	}
	publisher := graph.New(cfg.GraphBaseURL)

	// === Notifier ===
	var notifier notify.Notifier = &notify.LogNotifier{Logger: s.logger}
	if cfg.SMTPAddr != "" {
		notifier = &notify.EmailNotifier{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			Password: cfg.SMTPPassword,
			BaseURL:  cfg.BaseURL,
			Logger:   s.logger,
		}
	}

	// === Auth plumbing ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	var facebook *auth.FacebookProvider
	if cfg.FacebookClientID != "" {
		facebook = auth.NewFacebookProvider(cfg.FacebookClientID, cfg.FacebookClientSecret, cfg.FacebookCallbackURL)
	}

	// === Services ===
	users := s.db.Users()
	settings := s.db.Settings()
	accounts := s.db.Accounts()
	posts := s.db.Posts()

	authService := service.NewAuthService(users, passwords, tokens, s.logger)
	settingsService := service.NewSettingsService(settings, s.logger)
	accountService := service.NewAccountService(accounts, s.logger)
	postService := service.NewPostService(posts, s.logger)

	assembler := service.NewAssembler(openaiClient, imageProviders, openaiClient, cfg.ProviderTimeout, s.logger)
	matcher := service.NewMatcher(settings, cfg.Lookahead, s.logger)
	dispatcher := service.NewDispatcher(posts, accounts, publisher, cfg.Lookahead, cfg.PublishTimeout, s.logger)
	pipeline := service.NewPipeline(matcher, assembler, dispatcher, postService, settings, users, notifier, s.logger)

	if cfg.EnableScheduler {
		s.scheduler = scheduler.New(pipeline, s.logger)
	}

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, s.logger)
	settingsHandler := handler.NewSettingsHandler(settingsService, s.logger)
	connectHandler := handler.NewConnectHandler(accountService, facebook, s.logger)
	postHandler := handler.NewPostHandler(postService, dispatcher, pipeline, s.logger)
	triggerHandler := handler.NewTriggerHandler(pipeline, cfg.CronSecret, s.logger)

	// === Middleware & routes ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Trigger endpoints carry their own bearer-secret check.
		r.Post("/cron/generate", triggerHandler.HandleGenerate)
		r.Post("/cron/dispatch", triggerHandler.HandleDispatch)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/settings", settingsHandler.HandleGet)
			r.Put("/settings", settingsHandler.HandlePut)

			r.Get("/instagram/account", connectHandler.HandleGet)
			r.Post("/instagram/connect", connectHandler.HandleConnect)

			r.Get("/posts", postHandler.HandleList)
			r.Post("/posts/generate", postHandler.HandleGenerate)
			r.Get("/posts/{id}", postHandler.HandleGet)
			r.Put("/posts/{id}", postHandler.HandleUpdate)
			r.Post("/posts/{id}/confirm", postHandler.HandleConfirm)
		})
	})

	return nil
}

// Start runs the HTTP server (and scheduler, when enabled) until SIGINT
// or SIGTERM, then shuts both down gracefully and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // generation requests wait on providers
		IdleTimeout:  60 * time.Second,
	}

	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer s.scheduler.Stop()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
			slog.Bool("scheduler", s.scheduler != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
