package server

import (
	"context"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/analytics"
	"github.com/nulzo/chat-router/internal/auth"
	"github.com/nulzo/chat-router/internal/chat"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/server/middleware"
	v1 "github.com/nulzo/chat-router/internal/server/v1"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Services are the collaborators the HTTP layer talks to.
type Services struct {
	Models   v1.ModelLister
	Auth     *auth.Service
	Sessions *auth.SessionManager
	Chats    *chat.Service
	Usage    analytics.Service
}

type Server struct {
	router   *gin.Engine
	http     *http.Server
	config   *config.Config
	logger   *zap.Logger
	services Services
	limiter  *middleware.RateLimiter
}

func New(cfg *config.Config, logger *zap.Logger, services Services) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(ginzap.GinzapWithConfig(logger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/health"},
	}))
	engine.Use(ginzap.RecoveryWithZap(logger, true))
	if cfg.Tracing.Enabled {
		engine.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}

	s := &Server{
		router:   engine,
		config:   cfg,
		logger:   logger,
		services: services,
		limiter:  middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger),
	}

	s.SetupRoutes()

	s.http = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Server starting", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// PruneLimiter drops idle rate limit buckets every interval until ctx ends.
func (s *Server) PruneLimiter(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Prune(interval); n > 0 {
				s.logger.Debug("pruned rate limit buckets", zap.Int("count", n))
			}
		}
	}
}
