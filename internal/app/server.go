// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"workdesk-service/internal/config"
	"workdesk-service/internal/db"
	"workdesk-service/internal/domain/auth"
	authHandler "workdesk-service/internal/handlers/auth"
	wsHandler "workdesk-service/internal/handlers/websocket"
	"workdesk-service/internal/middleware"
	"workdesk-service/internal/pkg/kv"
	"workdesk-service/internal/pkg/limiter"
	sessionstore "workdesk-service/internal/pkg/session"
	"workdesk-service/internal/pkg/token"
	"workdesk-service/internal/repository/memory"
	"workdesk-service/internal/repository/postgres"
	sessionsvc "workdesk-service/internal/service/session"
	"workdesk-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg      config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	httpSrv  *http.Server
	registry *sessionsvc.Registry
	cancel   context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- Key-value store -----
	store, err := s.buildStore()
	if err != nil {
		return err
	}

	// ----- Token manager -----
	tokens, err := token.LoadAndBuild(s.cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to build token manager: %w", err)
	}
	if s.cfg.Token.PrivPath == "" {
		logger.Warn("no signing key configured, using ephemeral dev key; sessions will not survive a restart")
	}

	// ----- User directory -----
	directory, err := s.buildDirectory(ctx)
	if err != nil {
		return err
	}

	// ----- Session lifecycle -----
	attemptLimiter := limiter.NewAttemptLimiter(store, s.cfg.MaxLoginAttempts, s.cfg.LockoutWindow)
	registry := sessionsvc.NewRegistry(sessionsvc.Deps{
		Store:            sessionstore.NewStore(store, logger),
		Limiter:          attemptLimiter,
		Tokens:           tokens,
		Directory:        directory,
		Logger:           logger,
		RefreshThreshold: s.cfg.RefreshThreshold,
		WatchInterval:    s.cfg.WatchInterval,
	})
	s.registry = registry

	// ----- Session event hub -----
	hub := websocket.NewHub(logger)
	registry.OnChange(hub.BroadcastSnapshot)
	go hub.Run(ctx)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(registry, tokens.Verifier, logger)
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, tokens.Verifier, registry, logger)
	authMiddleware := middleware.NewAuthMiddleware(tokens.Verifier, registry)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	SetupRouter(s.engine, &Handlers{
		AuthHandler:    authHandlerInst,
		WSHandler:      wsHandlerInst,
		AuthMiddleware: authMiddleware,
	})

	// ----- Start HTTP -----
	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	s.httpSrv = &http.Server{Addr: s.cfg.HTTPAddr, Handler: s.engine}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener, session watchers and the event hub.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.registry != nil {
		s.registry.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) buildStore() (kv.Store, error) {
	switch s.cfg.StoreDriver {
	case "memory":
		s.logger.Warn("using in-memory session store; sessions will not survive a restart")
		return kv.NewMemoryStore(), nil
	case "redis":
		client, err := db.NewRedisClient(db.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			PoolSize: 10,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		s.logger.Info("connected to Redis", zap.String("addr", s.cfg.RedisAddr))
		return kv.NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", s.cfg.StoreDriver)
	}
}

func (s *Server) buildDirectory(ctx context.Context) (auth.Directory, error) {
	switch s.cfg.DirectoryDriver {
	case "memory":
		s.logger.Warn("using seeded in-memory user directory")
		return memory.NewSeededDirectory()
	case "postgres":
		pool, err := postgres.ConnectDB(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return postgres.NewUserRepository(pool), nil
	default:
		return nil, fmt.Errorf("unknown directory driver %q", s.cfg.DirectoryDriver)
	}
}
