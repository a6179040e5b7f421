package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRule_Contains(t *testing.T) {
	r := &Rule{
		MinPrice: decimal.NewFromInt(100),
		MaxPrice: decimal.NewFromInt(110),
	}

	t.Run("inside the band", func(t *testing.T) {
		if !r.Contains(decimal.NewFromInt(105)) {
			t.Error("105 should be inside [100, 110]")
		}
	})

	t.Run("boundaries are inclusive", func(t *testing.T) {
		if !r.Contains(decimal.NewFromInt(100)) {
			t.Error("min_price counts as inside")
		}
		if !r.Contains(decimal.NewFromInt(110)) {
			t.Error("max_price counts as inside")
		}
	})

	t.Run("outside the band", func(t *testing.T) {
		if r.Contains(decimal.RequireFromString("99.99")) {
			t.Error("99.99 should be outside")
		}
		if r.Contains(decimal.RequireFromString("110.01")) {
			t.Error("110.01 should be outside")
		}
	})
}

func TestRule_Validate(t *testing.T) {
	valid := Rule{
		Symbol:   "TCS",
		MinPrice: decimal.NewFromInt(100),
		MaxPrice: decimal.NewFromInt(110),
		Quantity: 1,
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	t.Run("empty symbol", func(t *testing.T) {
		r := valid
		r.Symbol = ""
		assertValidationError(t, r.Validate())
	})

	t.Run("inverted band", func(t *testing.T) {
		r := valid
		r.MinPrice = decimal.NewFromInt(120)
		assertValidationError(t, r.Validate())
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		r := valid
		r.Quantity = 0
		assertValidationError(t, r.Validate())
	})
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	if IsRetriable(err) {
		t.Error("validation errors must not be retriable")
	}
}
