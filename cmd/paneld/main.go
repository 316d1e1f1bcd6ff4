package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/XINRUIQI/CASA0028-Assessment01/internal/adapter/http"
	kafkaadapter "github.com/XINRUIQI/CASA0028-Assessment01/internal/adapter/kafka"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/config"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/dataset"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/observability"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/refresh"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store := dataset.NewStore()
	svc := service.New(store, metrics, logger, cfg.CacheSize, cfg.DefaultThreshold)

	// Load the startup dataset. With Kafka refresh enabled the service may
	// start empty and wait for the first snapshot; without it a missing
	// dataset means there is nothing to serve.
	snap, err := dataset.LoadFiles(cfg.MonthsPath, cfg.PanelPath, cfg.AreasPath)
	switch {
	case err == nil:
		svc.ApplySnapshot(snap)
	case cfg.KafkaEnabled:
		logger.Warn("startup dataset unavailable, waiting for refresh", "error", err)
	default:
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the snapshot refresh consumer.
	var reader *kafkaadapter.Reader
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		runner := refresh.NewRunner(reader, svc, logger, metrics)
		go func() {
			if err := runner.Run(ctx); err != nil {
				logger.Error("snapshot refresh error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
