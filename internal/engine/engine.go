package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"stock_go/internal/domain"
	"stock_go/internal/infra"
)

// Applier commits a transition's band-state flip and holding mutation
// as one atomic unit.
type Applier interface {
	Apply(ctx context.Context, ev *domain.MatchEvent, from, to domain.BandState) (bool, error)
}

// Engine evaluates every active rule against one price snapshot per
// pass and turns genuine band edges into committed match events.
type Engine struct {
	rules   domain.RuleReader
	applier Applier
	pub     domain.EventPublisher
	workers int
}

// New creates an engine. workers bounds how many owners are evaluated
// in parallel within one pass.
func New(rules domain.RuleReader, applier Applier, pub domain.EventPublisher, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		rules:   rules,
		applier: applier,
		pub:     pub,
		workers: workers,
	}
}

// Pass runs one evaluation over snap. Rules are read once at the start
// (point-in-time view), grouped by owner, and evaluated on bounded
// parallel workers; rules of a single owner stay sequential so that
// owner's events keep their order. A failure scoped to one rule never
// aborts the pass for other owners.
func (e *Engine) Pass(ctx context.Context, snap *domain.Snapshot) error {
	rules, err := e.rules.ListActiveRules(ctx)
	if err != nil {
		return &domain.StoreError{Op: "list rules", Err: err}
	}
	infra.GlobalMetrics.RecordRulesEvaluated(len(rules))

	byOwner := make(map[string][]domain.Rule)
	for _, r := range rules {
		byOwner[r.Owner] = append(byOwner[r.Owner], r)
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, e.workers)

	for owner, ownerRules := range byOwner {
		wg.Add(1)
		go func(owner string, ownerRules []domain.Rule) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			e.evalOwner(ctx, owner, ownerRules, snap)
		}(owner, ownerRules)
	}

	wg.Wait()
	return nil
}

func (e *Engine) evalOwner(ctx context.Context, owner string, rules []domain.Rule, snap *domain.Snapshot) {
	for i := range rules {
		r := &rules[i]

		quote, ok := snap.Lookup(r.Symbol)
		if !ok {
			continue // no information this tick, band state unchanged
		}

		tr, fired := evaluate(r, quote.Price)
		if !fired {
			continue
		}

		ev := &domain.MatchEvent{
			RuleID:    r.ID,
			Owner:     owner,
			Symbol:    r.Symbol,
			Name:      quote.Name,
			Type:      tr.Type,
			Quantity:  r.Quantity,
			Price:     quote.Price,
			Timestamp: snap.TakenAt,
		}

		applied, err := e.applier.Apply(ctx, ev, tr.From, tr.To)
		if err != nil {
			// Band state is untouched on failure, so the same edge is
			// detected again next tick instead of being lost.
			infra.GlobalMetrics.RecordError()
			slog.Warn("Transition apply failed",
				slog.String("rule", r.ID),
				slog.String("symbol", r.Symbol),
				slog.Any("error", err))
			continue
		}
		if !applied {
			continue // rule deleted, deactivated, or transition raced
		}

		infra.GlobalMetrics.RecordTransition()
		slog.Info("Band transition",
			slog.String("rule", r.ID),
			slog.String("owner", owner),
			slog.String("symbol", r.Symbol),
			slog.String("type", string(ev.Type)),
			slog.String("price", ev.Price.String()))

		if e.pub == nil {
			continue
		}
		if err := e.pub.Publish(owner, ev); err != nil {
			// Best-effort: a disconnected owner is not a pass failure.
			if !errors.Is(err, domain.ErrNoChannel) {
				slog.Warn("Publish failed", slog.String("owner", owner), slog.Any("error", err))
			}
			infra.GlobalMetrics.RecordEventDropped()
			continue
		}
		infra.GlobalMetrics.RecordEventPublished()
	}
}
