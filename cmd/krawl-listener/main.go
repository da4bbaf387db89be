package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OPEN-NEXT/LOSH-krawler/internal/config"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/listener"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/logging"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/normalizer"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("OSHWA_API_TOKEN", cfg.OSHWAAPIToken))

	logger := logging.New(cfg.LogLevel, cfg.LogJSON)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	deps, err := normalizer.LoadDeps(logger)
	must(err)

	svc, err := listener.NewService(db, cfg, deps, logger)
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("listener started", "schedule", cfg.ListenerSchedule, "fetchers", cfg.ListenerFetchers)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
