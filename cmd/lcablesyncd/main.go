package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/AjayaPrabhu/lcablesync/internal/app"
	"github.com/AjayaPrabhu/lcablesync/internal/async"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/ingest"
	"github.com/AjayaPrabhu/lcablesync/internal/repository"
)

const healthInterval = 30 * time.Second

func main() {
	cfg, err := common.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if len(cfg.Ingest.Roots) == 0 {
		logger.Error("INGEST_ROOTS (or ingest.roots) is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Bootstrap(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	store, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.HealthCheck(ctx); err != nil {
		logger.Error("store health failed", "error", err)
		os.Exit(1)
	}
	logger.Info("store health OK", "driver", cfg.Store.Driver)

	q := async.NewProcessorQueue(rt.Processor, store, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.DocumentTimeout),
		async.WithReadConfig(ingest.ReadConfig{Attempts: cfg.Pipeline.ReadAttempts, Delay: cfg.Pipeline.ReadDelay}),
	)

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       cfg.Ingest.Roots,
		SkipHidden:  true,
		InitialScan: cfg.Ingest.InitialScan,
		Debounce:    cfg.Ingest.Debounce,
	}, logger)
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	// gRPC server: health and reflection only
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	logger.Info("gRPC serving", "addr", lis.Addr().String())
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("grpc serve", "error", err)
			stop()
		}
	}()

	go watchHealth(ctx, store, hs, logger)

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case p, ok := <-events:
			if !ok {
				running = false
				continue
			}
			if err := q.Enqueue(ctx, async.Job{Path: p, SubmittedAt: time.Now()}); err != nil {
				logger.Warn("enqueue failed", "path", p, "error", err)
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.Warn("watcher reported an error", "error", err)
		}
	}

	logger.Info("shutting down...")
	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.DocumentTimeout+10*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	st := q.Stats()
	logger.Info("stopped", "processed", st.Processed, "failed", st.Failed, "sink_errors", st.SinkErrs)
}

// watchHealth mirrors the store's health into the gRPC health service.
func watchHealth(ctx context.Context, store repository.ResultStore, hs *health.Server, logger *slog.Logger) {
	t := time.NewTicker(healthInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := store.HealthCheck(pingCtx)
			cancel()
			status := healthpb.HealthCheckResponse_SERVING
			if err != nil {
				logger.Warn("store health check failed", "error", err)
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			hs.SetServingStatus("", status)
		}
	}
}
