package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"aircal/internal/config"
	"aircal/internal/logger"
	"aircal/internal/pipeline"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	log := logger.WithComponent("main")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	runner, err := pipeline.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to build pipeline")
		os.Exit(1)
	}

	if err := runner.Run(ctx); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}
