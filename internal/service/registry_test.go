package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"stock_go/internal/domain"
	"stock_go/internal/infra/storage"

	"github.com/shopspring/decimal"
)

func setupRegistry(t *testing.T) *Registry {
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return NewRegistry(store)
}

func TestRegistry_Create(t *testing.T) {
	r := setupRegistry(t)

	rule, err := r.Create("alice", " reliance ", decimal.NewFromInt(100), decimal.NewFromInt(110), 5)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rule.ID == "" {
		t.Error("expected a generated id")
	}
	if rule.Symbol != "RELIANCE" {
		t.Errorf("expected normalized symbol, got %q", rule.Symbol)
	}
	if !rule.Active {
		t.Error("new rules must start active")
	}
	if rule.BandState != domain.BandOutside {
		t.Errorf("new rules must start outside their band, got %s", rule.BandState)
	}
}

func TestRegistry_CreateValidation(t *testing.T) {
	r := setupRegistry(t)

	cases := []struct {
		name     string
		symbol   string
		min, max int64
		qty      int64
	}{
		{"empty symbol", "", 100, 110, 5},
		{"min above max", "TCS", 110, 100, 5},
		{"zero quantity", "TCS", 100, 110, 0},
		{"negative quantity", "TCS", 100, 110, -2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Create("alice", tc.symbol,
				decimal.NewFromInt(tc.min), decimal.NewFromInt(tc.max), tc.qty)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	// Nothing invalid may reach evaluation.
	active, err := r.ListActiveRules(context.Background())
	if err != nil {
		t.Fatalf("ListActiveRules failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("rejected rules must not be stored, found %d", len(active))
	}
}

func TestRegistry_EqualBoundsAllowed(t *testing.T) {
	r := setupRegistry(t)
	if _, err := r.Create("alice", "TCS", decimal.NewFromInt(100), decimal.NewFromInt(100), 1); err != nil {
		t.Errorf("min == max is a valid single-price band: %v", err)
	}
}

func TestRegistry_Update(t *testing.T) {
	r := setupRegistry(t)
	rule, _ := r.Create("alice", "TCS", decimal.NewFromInt(100), decimal.NewFromInt(110), 5)

	updated, err := r.Update("alice", rule.ID, "infy", decimal.NewFromInt(200), decimal.NewFromInt(220), 3)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Symbol != "INFY" || updated.Quantity != 3 {
		t.Errorf("unexpected updated rule: %+v", updated)
	}
	if !updated.MinPrice.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected min_price 200, got %s", updated.MinPrice)
	}

	t.Run("invalid fields rejected", func(t *testing.T) {
		_, err := r.Update("alice", rule.ID, "TCS", decimal.NewFromInt(220), decimal.NewFromInt(200), 3)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("scoped to owner", func(t *testing.T) {
		_, err := r.Update("bob", rule.ID, "TCS", decimal.NewFromInt(100), decimal.NewFromInt(110), 1)
		if !errors.Is(err, domain.ErrRuleNotFound) {
			t.Errorf("expected ErrRuleNotFound, got %v", err)
		}
	})
}

func TestRegistry_DeleteUnknown(t *testing.T) {
	r := setupRegistry(t)
	if err := r.Delete("alice", "nope"); !errors.Is(err, domain.ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestRegistry_SetActiveScopedToOwner(t *testing.T) {
	r := setupRegistry(t)
	rule, _ := r.Create("alice", "TCS", decimal.NewFromInt(100), decimal.NewFromInt(110), 1)

	if _, err := r.SetActive("bob", rule.ID, false); !errors.Is(err, domain.ErrRuleNotFound) {
		t.Errorf("another owner must not toggle the rule, got %v", err)
	}

	toggled, err := r.SetActive("alice", rule.ID, false)
	if err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if toggled.Active {
		t.Error("expected rule deactivated")
	}
}
