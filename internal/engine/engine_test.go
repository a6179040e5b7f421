package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"stock_go/internal/domain"

	"github.com/shopspring/decimal"
)

// stubRules is an in-memory RuleReader whose band states track the
// applier's commits between passes, like the real store does.
type stubRules struct {
	mu    sync.Mutex
	rules []domain.Rule
}

func (s *stubRules) ListActiveRules(ctx context.Context) ([]domain.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRules) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rules[:0]
	for _, r := range s.rules {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.rules = kept
}

// memApplier commits transitions against an in-memory band-state map
// with the same compare-and-set discipline as the sqlite store.
type memApplier struct {
	mu     sync.Mutex
	rules  *stubRules
	events []*domain.MatchEvent
}

func newMemApplier(rules *stubRules) *memApplier {
	return &memApplier{rules: rules}
}

func (a *memApplier) Apply(ctx context.Context, ev *domain.MatchEvent, from, to domain.BandState) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rules.mu.Lock()
	defer a.rules.mu.Unlock()

	for i := range a.rules.rules {
		r := &a.rules.rules[i]
		if r.ID != ev.RuleID {
			continue
		}
		if r.BandState != from || !r.Active {
			return false, nil
		}
		r.BandState = to
		a.events = append(a.events, ev)
		return true, nil
	}
	return false, nil // rule deleted
}

func (a *memApplier) byType(t domain.EventType) []*domain.MatchEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*domain.MatchEvent
	for _, ev := range a.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func snapshotOf(prices map[string]float64) *domain.Snapshot {
	quotes := make(map[string]domain.Quote, len(prices))
	for sym, p := range prices {
		quotes[sym] = domain.Quote{Symbol: sym, Name: sym, Price: decimal.NewFromFloat(p)}
	}
	return &domain.Snapshot{Quotes: quotes, TakenAt: time.Now()}
}

func newTestEngine(rules *stubRules) (*Engine, *memApplier) {
	applier := newMemApplier(rules)
	return New(rules, applier, nil, 2), applier
}

func runTicks(t *testing.T, e *Engine, prices ...map[string]float64) {
	t.Helper()
	for i, p := range prices {
		if err := e.Pass(context.Background(), snapshotOf(p)); err != nil {
			t.Fatalf("pass %d failed: %v", i+1, err)
		}
	}
}

func TestEngine_AcquireThenRelease(t *testing.T) {
	// Price walks 90 → 105 → 115 through band [100, 110]: one acquired
	// at the second tick, one released at the third.
	rules := &stubRules{rules: []domain.Rule{*bandRule(domain.BandOutside)}}
	e, applier := newTestEngine(rules)

	runTicks(t, e,
		map[string]float64{"X": 90},
		map[string]float64{"X": 105},
		map[string]float64{"X": 115},
	)

	acquired := applier.byType(domain.EventAcquired)
	released := applier.byType(domain.EventReleased)
	if len(acquired) != 1 {
		t.Fatalf("expected exactly 1 acquired event, got %d", len(acquired))
	}
	if acquired[0].Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", acquired[0].Quantity)
	}
	if !acquired[0].Price.Equal(decimal.NewFromInt(105)) {
		t.Errorf("expected acquisition price 105, got %s", acquired[0].Price)
	}
	if len(released) != 1 {
		t.Fatalf("expected exactly 1 released event, got %d", len(released))
	}
}

func TestEngine_NoRefireWhileInside(t *testing.T) {
	// 105 → 108 → 104 → 120: the price dwells inside the band for three
	// ticks. Exactly one acquired, one released, nothing in between.
	rules := &stubRules{rules: []domain.Rule{*bandRule(domain.BandOutside)}}
	e, applier := newTestEngine(rules)

	runTicks(t, e,
		map[string]float64{"X": 105},
		map[string]float64{"X": 108},
		map[string]float64{"X": 104},
		map[string]float64{"X": 120},
	)

	if n := len(applier.byType(domain.EventAcquired)); n != 1 {
		t.Errorf("expected 1 acquired event, got %d", n)
	}
	if n := len(applier.byType(domain.EventReleased)); n != 1 {
		t.Errorf("expected 1 released event, got %d", n)
	}
	if n := len(applier.events); n != 2 {
		t.Errorf("expected 2 events total, got %d", n)
	}
}

func TestEngine_MissingSymbolLeavesStateUntouched(t *testing.T) {
	rules := &stubRules{rules: []domain.Rule{*bandRule(domain.BandOutside)}}
	e, applier := newTestEngine(rules)

	runTicks(t, e,
		map[string]float64{"Y": 105}, // X absent: no information this tick
		map[string]float64{"X": 105},
	)

	if n := len(applier.byType(domain.EventAcquired)); n != 1 {
		t.Errorf("expected the edge to fire once data arrived, got %d events", n)
	}
}

func TestEngine_OwnersEvaluateIndependently(t *testing.T) {
	// Two owners watch the same symbol. Deleting one owner's rule does
	// not disturb the other's transition detection.
	alice := *bandRule(domain.BandOutside)
	bob := *bandRule(domain.BandOutside)
	bob.ID = "r2"
	bob.Owner = "bob"
	bob.Quantity = 3

	rules := &stubRules{rules: []domain.Rule{alice, bob}}
	e, applier := newTestEngine(rules)

	runTicks(t, e, map[string]float64{"X": 90})
	rules.delete("r1")
	runTicks(t, e, map[string]float64{"X": 105})

	acquired := applier.byType(domain.EventAcquired)
	if len(acquired) != 1 {
		t.Fatalf("expected 1 acquired event, got %d", len(acquired))
	}
	if acquired[0].Owner != "bob" {
		t.Errorf("expected bob's rule to fire, got %s", acquired[0].Owner)
	}
}

func TestEngine_InactiveRuleIsFrozen(t *testing.T) {
	// A rule deactivated while inside keeps its band state. On
	// reactivation hysteresis resumes: no re-acquisition while the
	// price never left the band.
	r := *bandRule(domain.BandOutside)
	rules := &stubRules{rules: []domain.Rule{r}}
	e, applier := newTestEngine(rules)

	runTicks(t, e, map[string]float64{"X": 105}) // acquires

	rules.mu.Lock()
	rules.rules[0].Active = false
	rules.mu.Unlock()

	runTicks(t, e, map[string]float64{"X": 120}) // frozen: no release

	rules.mu.Lock()
	rules.rules[0].Active = true
	rules.mu.Unlock()

	runTicks(t, e, map[string]float64{"X": 90}) // resumes: releases now

	if n := len(applier.byType(domain.EventAcquired)); n != 1 {
		t.Errorf("expected 1 acquired event, got %d", n)
	}
	released := applier.byType(domain.EventReleased)
	if len(released) != 1 {
		t.Fatalf("expected 1 released event after reactivation, got %d", len(released))
	}
	if !released[0].Price.Equal(decimal.NewFromInt(90)) {
		t.Errorf("release should fire on the post-reactivation tick, got price %s", released[0].Price)
	}
}
