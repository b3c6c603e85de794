package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/commercekit/authsvc/internal/app"
	"github.com/commercekit/authsvc/internal/config"
	"github.com/commercekit/authsvc/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := app.Run(cfg, log); err != nil {
		log.Fatal("service exited", zap.Error(err))
	}
}
