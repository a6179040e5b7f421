package service

import (
	"context"
	"errors"
	"strings"

	"stock_go/internal/domain"
	"stock_go/internal/infra/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Registry manages rule definitions. All writes validate before
// touching the store; the engine reads through ListActiveRules.
type Registry struct {
	store *storage.Storage
}

// NewRegistry creates a new rule registry.
func NewRegistry(store *storage.Storage) *Registry {
	return &Registry{store: store}
}

// Create validates and stores a new rule. New rules start active and
// outside their band, so the first in-band tick fires an edge.
func (r *Registry) Create(owner, symbol string, minPrice, maxPrice decimal.Decimal, quantity int64) (*domain.Rule, error) {
	rule := &domain.Rule{
		ID:        uuid.NewString(),
		Owner:     owner,
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		Quantity:  quantity,
		Active:    true,
		BandState: domain.BandOutside,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.CreateRule(rule); err != nil {
		return nil, &domain.StoreError{Op: "create rule", Err: err}
	}
	return rule, nil
}

// Update replaces a rule's user-editable fields. The band state stays
// untouched: if the new band no longer contains the price, the next
// tick detects the exit and releases normally.
func (r *Registry) Update(owner, id, symbol string, minPrice, maxPrice decimal.Decimal, quantity int64) (*domain.Rule, error) {
	rule := &domain.Rule{
		ID:       id,
		Owner:    owner,
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Quantity: quantity,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	updated, err := r.store.UpdateRule(rule)
	if err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			return nil, err
		}
		return nil, &domain.StoreError{Op: "update rule", Err: err}
	}
	return updated, nil
}

// List returns an owner's rules in creation order.
func (r *Registry) List(owner string) ([]domain.Rule, error) {
	rules, err := r.store.ListRules(owner)
	if err != nil {
		return nil, &domain.StoreError{Op: "list rules", Err: err}
	}
	return rules, nil
}

// Delete removes a rule. The rule leaves evaluation atomically with
// the delete; a pass that already read it finishes against its own
// point-in-time view and the band-state CAS voids any late transition.
func (r *Registry) Delete(owner, id string) error {
	err := r.store.DeleteRule(owner, id)
	if err != nil && !errors.Is(err, domain.ErrRuleNotFound) {
		return &domain.StoreError{Op: "delete rule", Err: err}
	}
	return err
}

// SetActive toggles evaluation for a rule. Deactivating freezes the
// band state rather than resetting it, so reactivation resumes
// hysteresis where it left off.
func (r *Registry) SetActive(owner, id string, active bool) (*domain.Rule, error) {
	rule, err := r.store.SetRuleActive(owner, id, active)
	if err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			return nil, err
		}
		return nil, &domain.StoreError{Op: "toggle rule", Err: err}
	}
	return rule, nil
}

// ListActiveRules is the engine-facing point-in-time read.
func (r *Registry) ListActiveRules(ctx context.Context) ([]domain.Rule, error) {
	return r.store.ListActiveRules(ctx)
}

var _ domain.RuleReader = (*Registry)(nil)
