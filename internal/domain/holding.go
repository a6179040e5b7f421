package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one owned line item, unique per (owner, symbol). Price is
// the price at acquisition; it is not refreshed on later ticks.
type Holding struct {
	Owner     string          `gorm:"primaryKey" json:"owner"`
	Symbol    string          `gorm:"primaryKey" json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric" json:"price"`
	Quantity  int64           `json:"quantity"`
	AutoAdded bool            `json:"auto_added"` // created by the engine, not the owner
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
