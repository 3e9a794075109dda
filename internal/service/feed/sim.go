package feed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"OptiFeed/internal/domain/models"
	drepo "OptiFeed/internal/domain/repository"
	"OptiFeed/internal/services/pricing"
)

// Default index levels handed to newly subscribed symbols without an
// explicit starting level.
var defaultLevels = map[string]float64{
	"SPX": 5000,
	"XSP": 500,
}

// SimConfig controls the simulated feed.
type SimConfig struct {
	Seed      int64
	RiskFree  float64
	BaseVol   float64            // center of the simulated vol surface
	StepPct   float64            // per-read random-walk step, fraction of spot
	Levels    map[string]float64 // starting level per symbol
}

func (c *SimConfig) fillDefaults() {
	if c.BaseVol <= 0 {
		c.BaseVol = 0.20
	}
	if c.StepPct <= 0 {
		c.StepPct = 0.0004
	}
	if c.RiskFree <= 0 {
		c.RiskFree = 0.05
	}
}

// Simulator is an offline QuoteProvider: subscribed underlyings follow a
// seeded random walk and subscribed options are quoted around their model
// fair value. The same seed and call sequence reproduce the same quotes.
type Simulator struct {
	cfg SimConfig

	mu        sync.Mutex
	rng       *rand.Rand
	connected bool
	spots     map[string]float64
	contracts map[string]models.OptionContract
	now       func() time.Time
}

// NewSimulator creates a simulated feed with the given seed.
func NewSimulator(cfg SimConfig) *Simulator {
	cfg.fillDefaults()
	s := &Simulator{cfg: cfg, now: time.Now}
	s.reset(cfg.Seed)
	return s
}

func (s *Simulator) reset(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
	s.spots = make(map[string]float64)
	s.contracts = make(map[string]models.OptionContract)
}

// Reset restores the initial levels and reseeds the walk. Subscriptions are
// dropped; callers resubscribe as on a fresh provider.
func (s *Simulator) Reset(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(seed)
}

func (s *Simulator) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *Simulator) SubscribeUnderlying(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return fmt.Errorf("simulator not connected")
	}
	if _, ok := s.spots[symbol]; ok {
		return nil
	}
	level, ok := s.cfg.Levels[symbol]
	if !ok {
		if level, ok = defaultLevels[symbol]; !ok {
			level = 100
		}
	}
	s.spots[symbol] = level
	return nil
}

func (s *Simulator) Subscribe(_ context.Context, c models.OptionContract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return fmt.Errorf("simulator not connected")
	}
	s.contracts[c.Key()] = c
	return nil
}

// UnderlyingQuotes advances the walk one step and returns the new quotes.
func (s *Simulator) UnderlyingQuotes() map[string]models.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	out := make(map[string]models.Quote, len(s.spots))
	for _, sym := range sortedKeys(s.spots) {
		px := s.spots[sym]
		px *= 1 + s.cfg.StepPct*s.rng.NormFloat64()
		s.spots[sym] = px

		half := px * 0.0001
		out[sym] = models.Quote{
			Symbol:    sym,
			Bid:       px - half,
			Ask:       px + half,
			Last:      px,
			BidSize:   1 + s.rng.Int63n(50),
			AskSize:   1 + s.rng.Int63n(50),
			Timestamp: ts,
		}
	}
	return out
}

// OptionQuotes quotes every subscribed contract around its model value with
// a mild volatility smile and a liquidity profile that thins away from the
// money.
func (s *Simulator) OptionQuotes() []models.OptionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	out := make([]models.OptionRecord, 0, len(s.contracts))
	for _, key := range sortedKeys(s.contracts) {
		c := s.contracts[key]
		spot, ok := s.spots[c.Symbol]
		if !ok || spot <= 0 {
			continue
		}
		t := models.YearsToExpiry(c.Expiry, ts)
		if t <= 0 {
			continue
		}

		moneyness := (c.Strike - spot) / spot
		sigma := s.cfg.BaseVol + 0.5*moneyness*moneyness + 0.01*s.rng.NormFloat64()
		if sigma < 0.05 {
			sigma = 0.05
		}

		fair := pricing.Price(spot, c.Strike, t, s.cfg.RiskFree, sigma, c.Right)
		half := math.Max(0.05, fair*0.01)
		atmCloseness := math.Max(0, 1-math.Abs(moneyness)*10)

		out = append(out, models.OptionRecord{
			OptionContract: c,
			Bid:            math.Max(0, fair-half),
			Ask:            fair + half,
			Last:           fair,
			BidSize:        1 + s.rng.Int63n(20),
			AskSize:        1 + s.rng.Int63n(20),
			Volume:         s.rng.Int63n(1 + int64(5000*atmCloseness)),
			OpenInterest:   s.rng.Int63n(1 + int64(20000*atmCloseness)),
			Timestamp:      ts,
		})
	}
	return out
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// sortedKeys keeps rng consumption order stable across runs so a seed fully
// determines the quote sequence.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ drepo.QuoteProvider = (*Simulator)(nil)
