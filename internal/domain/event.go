package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType classifies a band transition.
type EventType string

const (
	EventAcquired EventType = "acquired" // Outside → Inside
	EventReleased EventType = "released" // Inside → Outside
)

// MatchEvent is the unit of work handed from the matching engine to the
// holdings mutator and the notification dispatcher. Exactly one event
// exists per rule per transition.
type MatchEvent struct {
	RuleID    string          `json:"rule_id"`
	Owner     string          `json:"owner"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Type      EventType       `json:"type"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Key returns the idempotency key for at-least-once delivery defense:
// the same transition always maps to the same key.
func (e *MatchEvent) Key() string {
	return fmt.Sprintf("%s@%d", e.RuleID, e.Timestamp.UnixNano())
}
