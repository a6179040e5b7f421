package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock_go/internal/api"
	"stock_go/internal/app"
	"stock_go/internal/auth"
	"stock_go/internal/engine"
	"stock_go/internal/infra/feed"
	"stock_go/internal/notify"
	"stock_go/internal/service"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Background Asset Sync (instrument metadata + icons)
	go bootstrap.SyncAssets(ctx)

	// 5. Simulated Market Feed
	simulator := feed.NewSimulator(cfg, bootstrap.Storage)
	simulator.Start(ctx)
	defer simulator.Stop()
	slog.InfoContext(ctx, "✅ Market simulator started",
		slog.Int("instruments", len(cfg.Feed.Instruments)))

	// 6. Services, Engine and Driver
	registry := service.NewRegistry(bootstrap.Storage)
	holdings := service.NewHoldings(bootstrap.Storage)
	hub := notify.NewHub()

	matcher := engine.New(registry, holdings, hub, cfg.Engine.Workers)
	driver := engine.NewDriver(simulator, matcher,
		time.Duration(cfg.Engine.TickIntervalSec)*time.Second,
		time.Duration(cfg.Engine.PassTimeoutSec)*time.Second)

	go driver.Run(ctx)
	slog.InfoContext(ctx, "✅ Matching driver started",
		slog.Int("interval_sec", cfg.Engine.TickIntervalSec))

	// 7. HTTP Server (API + push channel)
	tokens := auth.New(cfg.Secrets.TokenKey,
		time.Duration(cfg.Auth.TokenTTLMin)*time.Minute)
	server := api.NewServer(cfg.Server.Addr, registry, holdings, simulator,
		hub, tokens, bootstrap.IconMaker.BasePath())

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	slog.InfoContext(ctx, "✨ StockGo fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", slog.Any("error", err))
	}
}
