// Package server is the composition root. It opens storage, builds the
// services and handlers, mounts the routes and runs the HTTP server with
// graceful shutdown.
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
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/auth"
	"github.com/sakif/contact-book/internal/config"
	"github.com/sakif/contact-book/internal/handler"
	"github.com/sakif/contact-book/internal/mailer"
	"github.com/sakif/contact-book/internal/middleware"
	"github.com/sakif/contact-book/internal/repository"
	"github.com/sakif/contact-book/internal/repository/postgres"
	sqliteRepo "github.com/sakif/contact-book/internal/repository/sqlite"
	"github.com/sakif/contact-book/internal/service"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	shutdownTimeout = 30 * time.Second
)

// storage bundles whichever backend was opened.
type storage struct {
	users    repository.UserRepository
	contacts repository.ContactRepository
	pinger   handler.Pinger
	close    func()
}

// Server owns the router and the storage connection.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	store   *storage
	mailer  mailer.Mailer
	metrics *middleware.Metrics
}

// Option customises a Server before routes are mounted.
type Option func(*Server)

// WithMailer replaces the mailer chosen from the SMTP settings.
func WithMailer(m mailer.Mailer) Option {
	return func(s *Server) { s.mailer = m }
}

// New opens the configured database and wires every route. The caller
// must call Start or Close to release the connection.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := openStorage(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		metrics: middleware.NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.mailer == nil {
		s.mailer, err = newMailer(cfg.SMTP, logger)
		if err != nil {
			store.close()
			return nil, err
		}
	}

	if err := s.setupRoutes(); err != nil {
		store.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*storage, error) {
	switch cfg.Driver {
	case driverSQLite:
		db, err := sqliteRepo.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		return &storage{
			users:    db.Users(),
			contacts: db.Contacts(),
			pinger:   db,
			close:    func() { _ = db.Close() },
		}, nil

	case driverPostgres:
		pool, err := postgres.Open(ctx, cfg.URL, logger)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &storage{
			users:    postgres.NewUserStore(pool),
			contacts: postgres.NewContactStore(pool),
			pinger:   pool,
			close:    pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// newMailer uses SMTP when a relay is configured and falls back to logging
// messages otherwise.
func newMailer(cfg config.SMTPConfig, logger *slog.Logger) (mailer.Mailer, error) {
	if cfg.Host == "" {
		logger.Warn("SMTP_HOST not set, outbound email will only be logged")
		return mailer.NewLogMailer(logger), nil
	}
	m, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host: cfg.Host,
		Port: cfg.Port,
		User: cfg.User,
		Pass: cfg.Pass,
		From: cfg.From,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating mailer: %w", err)
	}
	return m, nil
}

// setupRoutes mounts the middleware stack and the API.
//
//	POST   /auth/login       public, rate limited per IP
//	GET    /auth/me          authenticated
//	POST   /users            public
//	GET    /users/{id}       authenticated
//	PATCH  /users/{id}       owner only
//	DELETE /users/{id}       owner only
//	*      /contacts...      authenticated, scoped to the caller
//	POST   /email/send       authenticated
//	GET    /healthz, /metrics
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   s.config.JWT.Secret,
		Audience: s.config.JWT.Audience,
		Issuer:   s.config.JWT.Issuer,
		TTL:      s.config.TokenTTL(),
	})
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordServiceWithCost(s.config.Auth.BcryptCost)
	authenticator := auth.NewAuthenticator(tokens, s.store.users, s.logger)

	authService := service.NewAuthService(s.store.users, tokens, passwords, s.logger)
	userService := service.NewUserService(s.store.users, passwords, s.logger)
	contactService := service.NewContactService(s.store.contacts, s.logger)
	emailService := service.NewEmailService(s.store.contacts, s.mailer, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	contactHandler := handler.NewContactHandler(contactService, s.logger)
	emailHandler := handler.NewEmailHandler(emailService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store.pinger, s.logger)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(s.metrics.Middleware)
	s.router.Use(chimiddleware.Recoverer)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, r, apperror.NotFoundMessage("route not found"))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, r, apperror.NotFoundMessage("route not found"))
	})

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	requireAuth := auth.RequireAuth(authenticator, handler.WriteError)

	s.router.Route("/auth", func(r chi.Router) {
		r.With(s.loginLimiter()).Post("/login", authHandler.HandleLogin)
		r.With(requireAuth).Get("/me", authHandler.HandleMe)
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.HandleRegister)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/{id}", userHandler.HandleGet)
			r.Patch("/{id}", userHandler.HandleUpdate)
			r.Delete("/{id}", userHandler.HandleDelete)
		})
	})

	s.router.Route("/contacts", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", contactHandler.HandleList)
		r.Post("/", contactHandler.HandleCreate)
		r.Get("/{id}", contactHandler.HandleGet)
		r.Patch("/{id}", contactHandler.HandleUpdate)
		r.Delete("/{id}", contactHandler.HandleDelete)
	})

	s.router.With(requireAuth).Post("/email/send", emailHandler.HandleSend)

	return nil
}

// loginLimiter throttles login attempts per client IP. A non-positive
// limit disables throttling.
func (s *Server) loginLimiter() func(http.Handler) http.Handler {
	limit := s.config.Auth.LoginRateLimit
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			handler.WriteError(w, r, apperror.TooManyRequests("too many login attempts, try again later"))
		}),
	)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the storage connection.
func (s *Server) Close() {
	s.store.close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
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
			slog.Int("port", s.config.Server.Port),
			slog.String("env", s.config.AppEnv),
			slog.String("database", s.config.Database.Driver),
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
