package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"lightbox/internal/config"
	"lightbox/internal/daemon"
	"lightbox/internal/logging"
	"lightbox/internal/uploads"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := uploads.OpenStore(cfg)
	if err != nil {
		logger.Error("open batch store", logging.Error(err))
		return
	}

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("lightboxd shutting down")
}
