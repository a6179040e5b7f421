package service

import (
	"context"
	"sync"

	"stock_go/internal/domain"
	"stock_go/internal/infra"
)

// HoldingStore is the persistence surface the holdings service needs.
type HoldingStore interface {
	domain.TransitionApplier
	ListHoldings(owner string) ([]domain.Holding, error)
	AddHolding(h *domain.Holding) error
	RemoveHolding(owner, symbol string) error
	ClearHoldings(owner string) error
}

// Holdings applies rule-driven mutations exactly once per transition
// and serves the owner-facing holdings operations.
type Holdings struct {
	store HoldingStore

	// Idempotency keys already applied, second line of defense behind
	// the band-state compare-and-set in the store.
	mu   sync.Mutex
	seen map[string]string // rule id → last applied event key
}

// NewHoldings creates the holdings service.
func NewHoldings(store HoldingStore) *Holdings {
	return &Holdings{
		store: store,
		seen:  make(map[string]string),
	}
}

// Apply commits one match event. Replaying an already-applied event is
// a no-op: the idempotency key catches in-process duplicates and the
// store's compare-and-set catches everything else.
func (h *Holdings) Apply(ctx context.Context, ev *domain.MatchEvent, from, to domain.BandState) (bool, error) {
	key := ev.Key()

	h.mu.Lock()
	if h.seen[ev.RuleID] == key {
		h.mu.Unlock()
		infra.GlobalMetrics.RecordDuplicateSuppressed()
		return false, nil
	}
	h.mu.Unlock()

	applied, err := h.store.ApplyTransition(ctx, ev, from, to)
	if err != nil {
		return false, &domain.StoreError{Op: "apply transition", Err: err}
	}
	if applied {
		h.mu.Lock()
		h.seen[ev.RuleID] = key
		h.mu.Unlock()
	}
	return applied, nil
}

// List returns the owner's current holdings.
func (h *Holdings) List(owner string) ([]domain.Holding, error) {
	items, err := h.store.ListHoldings(owner)
	if err != nil {
		return nil, &domain.StoreError{Op: "list holdings", Err: err}
	}
	return items, nil
}

// Add upserts a manual holding, incrementing quantity on repeat adds.
// Manual holdings are never auto-released by a band exit.
func (h *Holdings) Add(owner string, item domain.Holding) error {
	if item.Symbol == "" {
		return &domain.ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	item.Owner = owner

	if err := h.store.AddHolding(&item); err != nil {
		return &domain.StoreError{Op: "add holding", Err: err}
	}
	return nil
}

// Remove deletes a holding by symbol. The owning rule's band state is
// deliberately untouched: re-acquisition requires a fresh band entry,
// not the price merely still being inside.
func (h *Holdings) Remove(owner, symbol string) error {
	if err := h.store.RemoveHolding(owner, symbol); err != nil {
		return &domain.StoreError{Op: "remove holding", Err: err}
	}
	return nil
}

// Checkout clears all of the owner's holdings.
func (h *Holdings) Checkout(owner string) error {
	if err := h.store.ClearHoldings(owner); err != nil {
		return &domain.StoreError{Op: "clear holdings", Err: err}
	}
	return nil
}
