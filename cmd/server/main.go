package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/printqa/backend/internal/config"
	"github.com/printqa/backend/internal/server"
	"github.com/printqa/backend/internal/store"
	"github.com/printqa/backend/internal/util"
	"github.com/printqa/backend/pkg/logger"
	"github.com/printqa/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()
	cfg := config.Load()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		JSON:   cfg.JSONLog,
		Prefix: "server",
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resultStore, closeStore, err := store.Open(ctx, cfg.Store, cfg.DatabaseURL, cfg.Migrate)
	if err != nil {
		logger.Fatal("Failed to open result store", "err", err)
	}
	defer closeStore()

	if err := server.Init(ctx, cfg, resultStore); err != nil {
		logger.Error("Server failed", "err", err)
		closeStore()
		os.Exit(1)
	}
}
