package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BandState tracks whether a rule's last observed price was within its
// band. It is the hysteresis memory: transitions fire on edges, never
// while the price merely stays inside.
type BandState string

const (
	BandOutside BandState = "OUTSIDE"
	BandInside  BandState = "INSIDE"
)

// Rule represents a price-band automation rule. When the symbol trades
// inside [MinPrice, MaxPrice] (inclusive on both ends) the configured
// quantity is acquired; when it exits, the holding is released.
type Rule struct {
	ID        string          `gorm:"primaryKey" json:"id"`
	Owner     string          `gorm:"index" json:"owner"`
	Symbol    string          `gorm:"index" json:"symbol"`
	MinPrice  decimal.Decimal `gorm:"type:numeric" json:"min_price"`
	MaxPrice  decimal.Decimal `gorm:"type:numeric" json:"max_price"`
	Quantity  int64           `json:"quantity"`
	Active    bool            `gorm:"index" json:"active"`
	BandState BandState       `json:"band_state"` // engine-owned, not user-editable
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Contains reports whether price falls inside the rule's band.
// Both boundaries count as inside.
func (r *Rule) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.MinPrice) && price.LessThanOrEqual(r.MaxPrice)
}

// Validate checks the user-editable fields.
func (r *Rule) Validate() error {
	if r.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if r.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if r.MinPrice.GreaterThan(r.MaxPrice) {
		return &ValidationError{Field: "min_price", Reason: "must not exceed max_price"}
	}
	return nil
}
