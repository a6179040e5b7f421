package engine

import (
	"stock_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Transition describes one band edge for a single rule.
type Transition struct {
	From domain.BandState
	To   domain.BandState
	Type domain.EventType
}

// evaluate compares a price against the rule's band and current state
// and returns the resulting transition, if any. Band boundaries are
// inclusive on both ends. A price that keeps the rule on the same side
// of the band produces no transition; that is the hysteresis contract.
func evaluate(r *domain.Rule, price decimal.Decimal) (Transition, bool) {
	inside := r.Contains(price)

	if inside && r.BandState != domain.BandInside {
		return Transition{
			From: r.BandState,
			To:   domain.BandInside,
			Type: domain.EventAcquired,
		}, true
	}

	if !inside && r.BandState == domain.BandInside {
		return Transition{
			From: domain.BandInside,
			To:   domain.BandOutside,
			Type: domain.EventReleased,
		}, true
	}

	return Transition{}, false
}
