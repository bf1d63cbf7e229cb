package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/medrecords/internal/async"
	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/export"
	"github.com/joseph-ayodele/medrecords/internal/ingest"
	"github.com/joseph-ayodele/medrecords/internal/pipeline"
	"github.com/joseph-ayodele/medrecords/internal/repository"
	"github.com/joseph-ayodele/medrecords/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("MEDREC_CONFIG"), "optional YAML config file")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, repository.ConfigFrom(cfg.Store), logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()
	if err := store.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	processor, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	queue := async.NewProcessorQueue(processor, store, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	if len(cfg.Watch.Dirs) > 0 {
		ing := ingest.NewFSIngestor(queue, cfg.Server.MaxUploadBytes, logger)
		wc := ingest.WatchConfig{
			Roots:       cfg.Watch.Dirs,
			InitialScan: cfg.Watch.InitialScan,
			Debounce:    cfg.Watch.Debounce,
			SkipHidden:  true,
			Logger:      logger,
		}
		go func() {
			if err := ingest.WatchAndIngest(ctx, wc, ing, cfg.Watch.OwnerID); err != nil {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	api := server.New(processor, store, export.NewService(store, logger), queue, server.Config{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("medrecd listening", "addr", cfg.Server.HTTPAddr, "db", store.Dialect())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
