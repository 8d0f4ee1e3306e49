// Command modeldemos serves the model demo apps over HTTP.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"modeldemos/apps"
	"modeldemos/config"
	"modeldemos/db"
	mhttp "modeldemos/http"
	"modeldemos/logging"
	"modeldemos/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	// look for config in the repo root when run from cmd/
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		if alt := filepath.Join("..", *configPath); fileExists(alt) {
			*configPath = alt
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
		Compress:    cfg.Log.Compress,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("exiting")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	registry, err := apps.Load(cfg.Artifacts.Root, apps.Definitions(apps.MaxImagePixels(cfg.Images.MaxPixels)), cfg.Apps, logger)
	if err != nil {
		return fmt.Errorf("load apps: %w", err)
	}
	history, err := apps.NewHistory(cfg.History.Size, registry.Names())
	if err != nil {
		return err
	}

	hub := monitoring.NewFeedHub(logger, cfg.HTTP.AllowedOrigins)
	go hub.Run()
	defer hub.Stop()

	deps := mhttp.Deps{
		Registry: registry,
		History:  history,
		Feed:     hub,
		Metrics:  monitoring.NewMetricsCollector(),
		Logger:   logger,
	}
	if cfg.Database.Path != "" {
		predictionLog, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open prediction log: %w", err)
		}
		defer predictionLog.Close()
		deps.Store = predictionLog
		logger.Info("prediction log opened", zap.String("path", cfg.Database.Path))
	}

	server, err := mhttp.NewServer(mhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, deps)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}
	return server.Stop()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
