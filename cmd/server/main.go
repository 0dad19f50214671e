package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/config"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/logger"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/server"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/storage/gormstore"
)

func main() {
	godotenv.Load()

	cfg := config.LoadServerConfig()
	logger.Init(cfg.LogLevel)

	store, err := gormstore.Open(cfg.Database)
	if err != nil {
		logger.Log.Error("open storage", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	app := server.NewApp(cfg, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Log.Error("server shutdown", "err", err)
		os.Exit(1)
	}
}
