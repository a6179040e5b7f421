package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stock_go/internal/domain"
	"stock_go/internal/infra"
	"stock_go/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Storage   *storage.Storage
	IconMaker *infra.IconMaker
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (Config, DB, assets)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping StockGo...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized", slog.String("path", cfg.Storage.Path))

	// 4. Initialize Icon Maker
	maker, err := infra.NewIconMaker("assets/icons")
	if err != nil {
		return err
	}
	b.IconMaker = maker
	slog.Info("✅ Icon maker ready")

	return nil
}

// SyncAssets synchronizes instrument metadata and icons in the background
func (b *Bootstrap) SyncAssets(ctx context.Context) {
	slog.Info("🔄 Starting asset synchronization...")

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent generation

	for _, seed := range b.Config.Feed.Instruments {
		wg.Add(1)
		go func(symbol, name string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			ins := &domain.Instrument{
				Symbol:    symbol,
				Name:      name,
				IsActive:  true,
				UpdatedAt: time.Now(),
			}

			// Preserve the sync timestamp of an existing row
			if existing, _ := b.Storage.GetInstrument(symbol); existing != nil {
				ins.IconPath = existing.IconPath
				ins.LastSyncedAt = existing.LastSyncedAt
				ins.CreatedAt = existing.CreatedAt
			}

			path, err := b.IconMaker.MakeIcon(symbol)
			if err != nil {
				slog.Warn("Failed to make icon", slog.String("symbol", symbol), slog.Any("error", err))
			} else {
				ins.IconPath = path
				ins.LastSyncedAt = time.Now()
			}

			if err := b.Storage.UpsertInstrument(ins); err != nil {
				slog.Error("Failed to upsert instrument", slog.String("symbol", symbol), slog.Any("error", err))
			}
		}(seed.Symbol, seed.Name)
	}

	wg.Wait()
	slog.Info("✨ Asset synchronization completed")
}
