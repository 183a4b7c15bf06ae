// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where the whole
// dependency chain is assembled:
//
//	sqlite.DB → ProfileService ← GoogleVerifier, SessionService, people.Client
//	ProfileService → AuthHandler / ProfileHandler → chi routes
//
// Each layer only receives what it needs: the service gets the repository
// interface (not the concrete sqlite.DB), the handlers get the service, and
// nothing below the handlers knows about HTTP.
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
	"github.com/go-chi/cors"

	"github.com/sakif/profile-hub/internal/auth"
	"github.com/sakif/profile-hub/internal/config"
	"github.com/sakif/profile-hub/internal/handler"
	"github.com/sakif/profile-hub/internal/middleware"
	"github.com/sakif/profile-hub/internal/people"
	sqliteRepo "github.com/sakif/profile-hub/internal/repository/sqlite"
	"github.com/sakif/profile-hub/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection; graceful shutdown closes it after
// in-flight requests drain so the WAL is flushed and the file lock released.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server from the given config and wires the dependency graph.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST /auth/google  → verify Google ID token, upsert user, set session cookie
// POST /auth/logout  → clear session cookie
// GET  /me           → current user (session required)
// POST /profile      → sparse profile edit (session required)
// GET  /debug/schema → live column set of the user relation
//
// MIDDLEWARE ORDER MATTERS — ours:
// 1. RequestID — assigns a unique ID to each request (for tracing)
// 2. RealIP — extracts the real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. CORS — the SPA runs on a different origin and sends cookies, so the
//    allowed origin is explicit and credentials are enabled
// 5. request logging
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.AllowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Use(middleware.Logger(s.logger))

	sessions, err := auth.NewSessionService(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating session service: %w", err)
	}

	verifier, err := auth.NewGoogleVerifier(s.config.GoogleClientID)
	if err != nil {
		return fmt.Errorf("creating credential verifier: %w", err)
	}

	contacts := people.NewClient("")

	profiles := service.NewProfileService(s.db, verifier, sessions, contacts, s.logger)

	authHandler := handler.NewAuthHandler(profiles, s.config.Production(), s.logger)
	profileHandler := handler.NewProfileHandler(profiles, s.logger)

	s.router.Post("/auth/google", authHandler.HandleGoogleLogin)
	s.router.Post("/auth/logout", authHandler.HandleLogout)
	s.router.Get("/debug/schema", profileHandler.HandleDebugSchema)

	// Authenticated routes share the RequireSession middleware.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))
		r.Get("/me", profileHandler.HandleMe)
		r.Post("/profile", profileHandler.HandleUpdateProfile)
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// SHUTDOWN ORDER:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("allowedOrigin", s.config.AllowedOrigin),
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
