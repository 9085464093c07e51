package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"commodash/internal/app"
	"commodash/internal/config"
	"commodash/internal/health"
	"commodash/internal/httpapi"
	"commodash/internal/store"
	"commodash/internal/util"
)

func main() {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logFile, err := util.OpenDailyLog(cfg.Logging.Dir, "commodash-server", time.Now())
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer logFile.Close()
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, io.MultiWriter(os.Stdout, logFile))
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("initializing: %v", err)
	}
	defer a.Close()

	// Typed nils would defeat the server's nil checks.
	var cache store.SnapshotStore
	if a.Cache != nil {
		cache = a.Cache
	}
	var ticks store.TickStore
	if a.Archive != nil {
		ticks = a.Archive
	}
	srv := httpapi.NewDashboardServer(a.Poll, a.Client, cache, ticks, httpapi.Defaults{
		HistoryDays:  cfg.Views.HistoryDays,
		ForecastDays: cfg.Views.ForecastDays,
	}, logger)

	hs := health.NewServer(a.Poll, logger)
	go hs.Run(ctx)

	if err := a.Poll.Start(ctx); err != nil {
		log.Fatalf("starting poll: %v", err)
	}

	// Start gRPC health listener.
	grpcAddr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCPort))
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("listening on %s: %v", grpcAddr, err)
	}
	gs := grpc.NewServer()
	hs.RegisterGRPC(gs)
	go func() {
		logger.Info("gRPC health listening", "addr", grpcAddr)
		if err := gs.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	// Start HTTP server.
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: srv.Handler(),
	}
	go func() {
		logger.Info("dashboard server listening", "addr", httpServer.Addr, "api", a.Client.BaseURL())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down dashboard server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	gs.GracefulStop()
}
