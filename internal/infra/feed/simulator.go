package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"stock_go/internal/domain"
	"stock_go/internal/infra"

	"github.com/shopspring/decimal"
)

const lastPricesKey = "feed.last_prices"

// PriceStore persists the simulator's last prices so a restart resumes
// from where the market left off instead of the seed prices.
type PriceStore interface {
	SaveSetting(key, value string) error
	LoadSettings() (map[string]string, error)
}

type instState struct {
	name      string
	price     decimal.Decimal
	changePct decimal.Decimal
}

// Simulator is the simulated market feed. Every update interval it
// moves a random subset of instruments by at most ±maxDriftPct and
// serves immutable snapshots of the result.
type Simulator struct {
	mu          sync.RWMutex
	instruments map[string]*instState

	rng         *rand.Rand
	minMoves    int
	maxMoves    int
	maxDriftPct decimal.Decimal
	interval    time.Duration

	store  PriceStore
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSimulator seeds a simulator from config, overlaying any persisted
// last prices from store. store may be nil (tests).
func NewSimulator(cfg *infra.Config, store PriceStore) *Simulator {
	s := &Simulator{
		instruments: make(map[string]*instState, len(cfg.Feed.Instruments)),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		minMoves:    cfg.Feed.MinMoves,
		maxMoves:    cfg.Feed.MaxMoves,
		maxDriftPct: cfg.Feed.MaxDriftPct,
		interval:    time.Duration(cfg.Feed.UpdateIntervalSec) * time.Second,
		store:       store,
	}

	for _, ins := range cfg.Feed.Instruments {
		s.instruments[ins.Symbol] = &instState{
			name:  ins.Name,
			price: ins.Price,
		}
	}

	s.restorePrices()
	return s
}

// Start begins the background price update loop.
func (s *Simulator) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.step()
			}
		}
	}()
}

// Stop halts the update loop and waits for it to exit.
func (s *Simulator) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// FetchSnapshot returns a consistent copy of all current prices.
func (s *Simulator) FetchSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	select {
	case <-ctx.Done():
		return nil, &domain.FeedError{Op: "fetch", Err: ctx.Err()}
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.instruments) == 0 {
		return nil, &domain.FeedError{Op: "fetch", Err: domain.ErrFeedUnavailable}
	}

	quotes := make(map[string]domain.Quote, len(s.instruments))
	for sym, st := range s.instruments {
		quotes[sym] = domain.Quote{
			Symbol:    sym,
			Name:      st.name,
			Price:     st.price,
			ChangePct: st.changePct,
		}
	}
	return &domain.Snapshot{Quotes: quotes, TakenAt: time.Now()}, nil
}

// step fluctuates a random subset of prices.
func (s *Simulator) step() {
	s.mu.Lock()

	symbols := make([]string, 0, len(s.instruments))
	for sym := range s.instruments {
		symbols = append(symbols, sym)
	}

	n := s.minMoves
	if s.maxMoves > s.minMoves {
		n += s.rng.Intn(s.maxMoves - s.minMoves + 1)
	}
	if n > len(symbols) {
		n = len(symbols)
	}

	s.rng.Shuffle(len(symbols), func(i, j int) {
		symbols[i], symbols[j] = symbols[j], symbols[i]
	})

	maxDrift, _ := s.maxDriftPct.Float64()
	for _, sym := range symbols[:n] {
		st := s.instruments[sym]
		old := st.price

		// Uniform move in [-maxDrift%, +maxDrift%], floored at 1.00
		driftPct := (s.rng.Float64()*2 - 1) * maxDrift
		factor := decimal.NewFromFloat(1 + driftPct/100)
		newPrice := old.Mul(factor).Round(2)
		if newPrice.LessThan(decimal.New(1, 0)) {
			newPrice = decimal.New(1, 0)
		}

		st.changePct = newPrice.Sub(old).Div(old).Mul(decimal.NewFromInt(100)).Round(2)
		st.price = newPrice
	}
	s.mu.Unlock()

	s.persistPrices()
	slog.Debug("Market tick", slog.Int("moved", n))
}

func (s *Simulator) persistPrices() {
	if s.store == nil {
		return
	}

	s.mu.RLock()
	prices := make(map[string]string, len(s.instruments))
	for sym, st := range s.instruments {
		prices[sym] = st.price.String()
	}
	s.mu.RUnlock()

	data, err := json.Marshal(prices)
	if err != nil {
		slog.Error("Failed to marshal feed prices", slog.Any("error", err))
		return
	}
	if err := s.store.SaveSetting(lastPricesKey, string(data)); err != nil {
		slog.Warn("Failed to persist feed prices", slog.Any("error", err))
	}
}

func (s *Simulator) restorePrices() {
	if s.store == nil {
		return
	}

	settings, err := s.store.LoadSettings()
	if err != nil {
		slog.Warn("Failed to load feed settings", slog.Any("error", err))
		return
	}
	raw, ok := settings[lastPricesKey]
	if !ok {
		return
	}

	var prices map[string]string
	if err := json.Unmarshal([]byte(raw), &prices); err != nil {
		slog.Warn("Ignoring corrupt persisted prices", slog.Any("error", err))
		return
	}

	for sym, p := range prices {
		st, exists := s.instruments[sym]
		if !exists {
			continue // instrument removed from config
		}
		price, err := decimal.NewFromString(p)
		if err != nil || !price.IsPositive() {
			continue
		}
		st.price = price
	}
}

var _ domain.SnapshotSource = (*Simulator)(nil)
