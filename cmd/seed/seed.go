package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/nulzo/chat-router/internal/auth"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/platform/logger"
	"github.com/nulzo/chat-router/internal/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	email := flag.String("email", "test@example.com", "email of the seeded user")
	password := flag.String("password", "password123", "password of the seeded user")
	flag.Parse()

	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	repo, err := sqlite.NewSQLiteStorage(cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		_ = repo.Close()
	}()

	user, err := auth.NewService(repo, logger.Get()).Signup(context.Background(), *email, *password)
	if errors.Is(err, auth.ErrEmailTaken) {
		logger.Warn("User already exists", zap.String("email", *email))
		return
	}
	if err != nil {
		logger.Fatal("Failed to seed user", zap.Error(err))
	}

	fmt.Printf("\nSuccessfully seeded database!\n")
	fmt.Printf("User:     %s (%s)\n", user.Email, user.ID)
	fmt.Printf("Password: %s\n", *password)
}
