package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/hirehub/apiserver/config"
	"github.com/hirehub/apiserver/internal/auth"
	"github.com/hirehub/apiserver/internal/cache"
	"github.com/hirehub/apiserver/internal/db"
	"github.com/hirehub/apiserver/internal/handlers"
	"github.com/hirehub/apiserver/internal/mq"
	"github.com/hirehub/apiserver/internal/services"
	"github.com/hirehub/apiserver/internal/storage"
	"github.com/hirehub/apiserver/internal/store"
)

const apiPrefix = "/api/v1"

// Deps are the collaborators the router is built from.
type Deps struct {
	Users   services.UserRepository
	Jobs    services.JobRepository
	Resumes services.ResumeStorage
	Events  services.EventPublisher
	Revoker auth.Revoker
	// Redis backs the shared rate limiter. It may be nil.
	Redis *redis.Client
	DB    handlers.Pinger
}

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     http.Handler
	db         *sql.DB
	redis      *redis.Client
	mq         *mq.MQ
	cancel     context.CancelFunc
}

// New opens every backing service named by cfg and builds the server.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	srv := &Server{}
	ok := false
	defer func() {
		if !ok {
			_ = srv.closeBackends()
		}
	}()

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	srv.db = dbConn

	resumes, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	rdb, err := cache.Open(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("open redis: %w", err)
	}
	srv.redis = rdb

	broker, err := mq.Open(ctx, cfg.MQ, logger)
	if err != nil {
		return nil, fmt.Errorf("open message queue: %w", err)
	}
	srv.mq = broker

	deps := Deps{
		Users:   store.NewUserRepository(dbConn),
		Jobs:    store.NewJobRepository(dbConn),
		Resumes: resumes,
		Events:  services.NopPublisher{},
		Revoker: auth.NoopRevoker{},
		Redis:   rdb,
		DB:      dbConn,
	}
	if broker != nil {
		deps.Events = broker
	}
	if rdb != nil {
		deps.Revoker = auth.NewRedisRevoker(rdb)
	} else {
		logger.Warn("REDIS_URL not set: logout only clears the cookie, tokens stay valid until they expire")
	}

	routerCtx, cancel := context.WithCancel(context.Background())
	srv.cancel = cancel
	srv.router = NewRouter(routerCtx, cfg, deps, logger)

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      srv.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		"port", cfg.ServerPort,
		"env", cfg.Env,
		"storage", cfg.Storage.Backend,
		"mq", cfg.MQ.Backend,
		"redis", rdb != nil,
	)
	ok = true
	return srv, nil
}

// NewRouter builds the HTTP routes on top of deps. ctx bounds the background
// cleanup of the in-process rate limiter.
func NewRouter(ctx context.Context, cfg config.Config, deps Deps, logger *slog.Logger) http.Handler {
	rs := handlers.NewResponder(logger, !cfg.IsProduction())
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn, cfg.IsProduction(), deps.Revoker)

	userService := services.NewUserService(deps.Users, logger)
	jobService := services.NewJobService(deps.Jobs, deps.Resumes, logger)
	applicationService := services.NewApplicationService(deps.Jobs, deps.Resumes, deps.Events, cfg.Upload.MaxFileSize, logger)
	accountService := services.NewAccountService(deps.Users, deps.Jobs, deps.Resumes, deps.Events, logger)

	authn := handlers.Authenticate(tokens, userService, rs)
	limiter := handlers.NewRateLimiter(ctx, deps.Redis, cfg.RateLimit.AuthPerMinute, rs)

	authHandler := handlers.NewAuthHandler(userService, tokens, rs)
	jobHandler := handlers.NewJobHandler(jobService, applicationService, cfg.Upload.MaxFileSize, rs)
	userHandler := handlers.NewUserHandler(userService, jobService, accountService, tokens, rs)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		router.Use(middleware.RealIP)
	}
	router.Use(
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz(deps.DB))
	router.Route(apiPrefix, func(r chi.Router) {
		handlers.AuthRouter(r, authHandler, limiter.Handler, authn)
		handlers.JobRouter(r, jobHandler, authn)
		handlers.UserRouter(r, userHandler, authn)
	})
	return router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and closes the
// backing connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.closeBackends())
}

func (s *Server) closeBackends() error {
	var errs []error
	if s.cancel != nil {
		s.cancel()
	}
	if s.mq != nil {
		errs = append(errs, s.mq.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
