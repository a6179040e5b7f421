package engine

import (
	"context"
	"log/slog"
	"time"

	"stock_go/internal/domain"
	"stock_go/internal/infra"
)

// Driver schedules evaluation passes at a fixed interval. Passes run
// synchronously in the driver's goroutine, so they can never overlap:
// a pass that outlives its interval simply defers the next tick.
type Driver struct {
	source   domain.SnapshotSource
	engine   *Engine
	interval time.Duration
	timeout  time.Duration
}

// NewDriver creates a driver ticking every interval, with each pass
// bounded by timeout.
func NewDriver(source domain.SnapshotSource, engine *Engine, interval, timeout time.Duration) *Driver {
	return &Driver{
		source:   source,
		engine:   engine,
		interval: interval,
		timeout:  timeout,
	}
}

// Run drives the tick loop until ctx is canceled. Cancellation stops
// the driver before the next tick; an in-flight pass always finishes,
// so a computed transition is never left unapplied.
func (d *Driver) Run(ctx context.Context) {
	slog.Info("Matching driver started", slog.Duration("interval", d.interval))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Matching driver stopping...")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs a single evaluation pass. The pass context is detached
// from the shutdown signal and bounded only by the pass timeout.
func (d *Driver) Tick(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	start := time.Now()

	snap, err := d.source.FetchSnapshot(passCtx)
	if err != nil {
		// Skip the whole tick: no snapshot, no state mutation.
		infra.GlobalMetrics.RecordTickSkipped()
		slog.Warn("Tick skipped, feed unavailable", slog.Any("error", err))
		return
	}

	if err := d.engine.Pass(passCtx, snap); err != nil {
		infra.GlobalMetrics.RecordTickSkipped()
		infra.GlobalMetrics.RecordError()
		slog.Warn("Tick aborted", slog.Any("error", err))
		return
	}

	infra.GlobalMetrics.RecordTick(time.Since(start).Nanoseconds())
}
