package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nulzo/chat-router/internal/analytics"
	"github.com/nulzo/chat-router/internal/auth"
	"github.com/nulzo/chat-router/internal/chat"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/llm"
	_ "github.com/nulzo/chat-router/internal/llm/all"
	"github.com/nulzo/chat-router/internal/platform/logger"
	"github.com/nulzo/chat-router/internal/platform/otel"
	"github.com/nulzo/chat-router/internal/server"
	"github.com/nulzo/chat-router/internal/store/cache"
	"github.com/nulzo/chat-router/internal/store/sqlite"
	"github.com/nulzo/chat-router/internal/version"
	"go.uber.org/zap"
)

func main() {
	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()

	cfg, watcher, err := config.LoadAndWatch()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logger.Initialize(logCfg)
	log := logger.Get()

	shutdownTracer, err := otel.InitTracer(cfg.Tracing.Enabled, cfg.Tracing.ServiceName, log, os.Stdout)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	repo, err := sqlite.NewSQLiteStorage(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		_ = repo.Close()
	}()

	sessionCache := newCache(cfg, log)
	sessions, err := auth.NewSessionManager(sessionCache, sessionSecret(cfg, log), cfg.Session.TTL)
	if err != nil {
		log.Fatal("Failed to initialize sessions", zap.Error(err))
	}

	registry := llm.NewRegistry(watcher)
	watcher.OnChange(func(s config.Snapshot) {
		log.Info("Providers reloaded",
			zap.Uint64("version", s.Version),
			zap.Int("enabled", len(registry.ListEnabled())))
	})

	client := llm.NewClient(registry,
		llm.WithHTTPClient(&http.Client{Timeout: cfg.AI.Timeout}),
		llm.WithLogger(log.Named("llm")),
	)
	models := func(id string) chat.Model {
		return llm.NewLanguageModel(client, id, llm.WithStreamDelay(cfg.AI.StreamDelay))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// stopped explicitly after the server drains so late call logs are kept
	ingestor := analytics.NewIngestor(log.Named("analytics"), repo)
	ingestor.Start(context.Background())

	chats := chat.NewService(repo, client, registry, models,
		chat.WithTitlePrompt(cfg.AI.TitlePrompt),
		chat.WithIngestor(ingestor),
		chat.WithLogger(log.Named("chat")),
	)

	srv := server.New(cfg, log, server.Services{
		Models:   registry,
		Auth:     auth.NewService(repo, log.Named("auth")),
		Sessions: sessions,
		Chats:    chats,
		Usage:    analytics.NewService(repo),
	})

	go srv.PruneLimiter(ctx, 10*time.Minute)
	go checkForUpdates(ctx, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	log.Info("Chat router ready",
		zap.String("version", version.Version),
		zap.String("port", cfg.Server.Port),
		zap.Int("providers", len(registry.ListEnabled())))

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	ingestor.Stop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
}

func newCache(cfg *config.Config, log *zap.Logger) cache.CacheService {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	log.Info("Using redis session store", zap.String("addr", cfg.Redis.Addr))
	return cache.NewRedisCache(client, "chat-router:")
}

// sessionSecret returns the configured secret. Outside production a random
// one is generated, which logs everyone out on restart.
func sessionSecret(cfg *config.Config, log *zap.Logger) []byte {
	if cfg.Session.Secret != "" {
		return []byte(cfg.Session.Secret)
	}
	if cfg.Server.Env == "production" {
		log.Fatal("session.secret is required in production", zap.Error(auth.ErrSessionSecretMissing))
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatal("Failed to generate session secret", zap.Error(err))
	}
	log.Warn("session.secret not set, using a random secret")
	return []byte(hex.EncodeToString(b))
}

func checkForUpdates(ctx context.Context, log *zap.Logger) {
	update, err := version.NewChecker().Check(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Debug("Update check failed", zap.Error(err))
		}
		return
	}
	if update != nil {
		log.Warn("A newer release is available", zap.String("current", update.Current), zap.String("latest", update.Latest))
	}
}
