// Package server is the composition root: it wires the engine, repositories,
// services and handlers together and mounts them on a chi router.
//
// DEPENDENCY FLOW:
//
//	main: config.Load → db.CreateEngine → server.New
//	server.New: migrate (optional) → sqldb.Store → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/awesome-blog/internal/auth"
	"github.com/sakif/awesome-blog/internal/config"
	"github.com/sakif/awesome-blog/internal/db"
	"github.com/sakif/awesome-blog/internal/handler"
	"github.com/sakif/awesome-blog/internal/middleware"
	"github.com/sakif/awesome-blog/internal/migrate"
	"github.com/sakif/awesome-blog/internal/model"
	"github.com/sakif/awesome-blog/internal/repository/sqldb"
	"github.com/sakif/awesome-blog/internal/service"
)

type Server struct {
	router *chi.Mux
	config config.Config
	engine *db.Engine
	logger *slog.Logger
}

// New builds the server on an open engine. The caller keeps ownership of the
// engine and closes it after Start returns.
func New(cfg config.Config, engine *db.Engine, logger *slog.Logger) (*Server, error) {
	if cfg.AutoMigrate {
		if _, err := migrate.New(engine, logger, model.All()...).Up(); err != nil {
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		engine: engine,
		logger: logger,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts every endpoint.
//
// ROUTES:
//
//	GET    /healthz
//	POST   /api/users                 register
//	POST   /api/authenticate          sign in
//	POST   /api/signout
//	GET    /api/users/me              (auth)
//	GET    /api/blogs
//	GET    /api/blogs/{id}
//	POST   /api/blogs                 (auth)
//	PUT    /api/blogs/{id}            (auth)
//	DELETE /api/blogs/{id}            (auth)
//	GET    /api/blogs/{id}/comments
//	POST   /api/blogs/{id}/comments   (auth)
//	DELETE /api/comments/{id}         (auth)
//	GET    /auth/github/login         (GitHub configured)
//	GET    /auth/github/callback      (GitHub configured)
//
// Without a JWT secret only the read routes are mounted.
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs before Logger so the log line carries the id, and
// DBSession runs last so the connection scope wraps the handler only.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.DBSession(s.engine, s.logger))

	s.router.Get("/healthz", s.handleHealth)

	store := sqldb.New(s.engine, s.logger)
	blogService := service.NewBlogService(store.Blogs(), store.Comments(), store.Users(), store, s.logger)
	commentService := service.NewCommentService(store.Comments(), store.Blogs(), store.Users(), s.logger)
	blogHandler := handler.NewBlogHandler(blogService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)

	var (
		authHandler *handler.AuthHandler
		requireAuth func(http.Handler) http.Handler
	)
	if s.config.JWTSecret == "" {
		s.logger.Warn("JWT secret not set: sign-in is disabled, the blog is read-only")
	} else {
		tokens, err := auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
		var github *auth.GitHubProvider
		if gh := s.config.GitHub; gh.Enabled() {
			github = auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL)
		}
		authService := service.NewAuthService(store.Users(), store, tokens, auth.NewPasswordService(), s.logger)
		authHandler = handler.NewAuthHandler(authService, github, s.logger)
		requireAuth = auth.RequireAuth(tokens)

		if github != nil {
			s.router.Route("/auth/github", func(r chi.Router) {
				r.Get("/login", authHandler.HandleGitHubLogin)
				r.Get("/callback", authHandler.HandleGitHubCallback)
			})
			s.logger.Info("GitHub sign-in enabled", slog.String("callback", s.config.GitHub.CallbackURL))
		}
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/blogs", blogHandler.HandleList)
		r.Get("/blogs/{id}", blogHandler.HandleGet)
		r.Get("/blogs/{id}/comments", commentHandler.HandleList)

		if authHandler == nil {
			return
		}
		r.Post("/users", authHandler.HandleRegister)
		r.Post("/authenticate", authHandler.HandleAuthenticate)
		r.Post("/signout", authHandler.HandleSignout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/users/me", authHandler.HandleMe)
			r.Post("/blogs", blogHandler.HandleCreate)
			r.Put("/blogs/{id}", blogHandler.HandleUpdate)
			r.Delete("/blogs/{id}", blogHandler.HandleDelete)
			r.Post("/blogs/{id}/comments", commentHandler.HandleCreate)
			r.Delete("/comments/{id}", commentHandler.HandleDelete)
		})
	})

	return nil
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.engine.DB().PingContext(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Start serves until SIGINT or SIGTERM, then gives in-flight requests 30
// seconds to finish.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DB.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

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
