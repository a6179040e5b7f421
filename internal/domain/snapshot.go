package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one instrument's price within a snapshot.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ChangePct decimal.Decimal `json:"change"` // percent move on the last feed update
}

// Snapshot is an immutable symbol → quote mapping valid for exactly one
// evaluation pass. A snapshot is either complete or absent; the engine
// never sees a partially applied one.
type Snapshot struct {
	Quotes  map[string]Quote
	TakenAt time.Time
}

// Lookup returns the quote for symbol, if the snapshot carries one.
func (s *Snapshot) Lookup(symbol string) (Quote, bool) {
	q, ok := s.Quotes[symbol]
	return q, ok
}

// Sorted returns the quotes in symbol order, for stable API output.
func (s *Snapshot) Sorted() []Quote {
	out := make([]Quote, 0, len(s.Quotes))
	for _, q := range s.Quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
