package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"OptiFeed/internal/domain/models"
	"OptiFeed/internal/services/screener"
)

// fakeClock hands out the durations passed to After for inspection. The
// first `fire` calls resolve immediately; later ones park forever so the
// worker loop stops on its own timetable.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	fire   int
}

func newFakeClock(now time.Time, fire int) *fakeClock {
	return &fakeClock{now: now, fire: fire}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if c.fire > 0 {
		c.fire--
		ch := make(chan time.Time, 1)
		ch <- c.now
		return ch
	}
	return make(chan time.Time)
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// fakeProvider serves canned quotes and charges tickCost of fake-clock time
// per OptionQuotes read, simulating pipeline processing cost.
type fakeProvider struct {
	mu         sync.Mutex
	clock      *fakeClock
	tickCost   time.Duration
	quotes     map[string]models.Quote
	records    []models.OptionRecord
	subscribed []models.OptionContract
	closed     bool
}

func (p *fakeProvider) Connect(context.Context) error { return nil }

func (p *fakeProvider) SubscribeUnderlying(context.Context, string) error { return nil }

func (p *fakeProvider) Subscribe(_ context.Context, c models.OptionContract) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribed = append(p.subscribed, c)
	return nil
}

func (p *fakeProvider) UnderlyingQuotes() map[string]models.Quote {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]models.Quote, len(p.quotes))
	for k, v := range p.quotes {
		out[k] = v
	}
	return out
}

func (p *fakeProvider) OptionQuotes() []models.OptionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tickCost > 0 {
		p.clock.advance(p.tickCost)
	}
	return append([]models.OptionRecord(nil), p.records...)
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakeProvider) subscribedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribed)
}

func (p *fakeProvider) wasClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// stuckProvider parks inside OptionQuotes until released, pinning the
// worker mid-tick.
type stuckProvider struct {
	fakeProvider
	entered chan struct{}
	release chan struct{}
}

func (p *stuckProvider) OptionQuotes() []models.OptionRecord {
	close(p.entered)
	<-p.release
	return nil
}

type fakeSink struct {
	mu        sync.Mutex
	published []*models.MarketSnapshot
}

func (s *fakeSink) Publish(_ context.Context, snap *models.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, snap)
	return nil
}

func (s *fakeSink) Close() error { return nil }

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

var monitorNow = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func spxQuote(last float64) models.Quote {
	return models.Quote{Symbol: "SPX", Bid: last - 0.5, Ask: last + 0.5, Last: last, Timestamp: monitorNow}
}

func screenedCandidate() models.OptionRecord {
	rec := models.OptionRecord{
		OptionContract: models.OptionContract{
			Symbol: "SPX",
			Strike: 5000,
			Expiry: monitorNow.AddDate(0, 0, 20).Format(models.ExpiryLayout),
			Right:  models.Call,
		},
		Bid:          9.5,
		Ask:          10.5,
		Volume:       2000,
		OpenInterest: 1000,
		Timestamp:    monitorNow,
	}
	rec.ImpliedVol = models.Float(0.20)
	rec.Delta = models.Float(0.54)
	return rec
}

func newTestMonitor(t *testing.T, clock *fakeClock, provider *fakeProvider, metrics *fakeMetrics, opts ...MonitorOption) *Monitor {
	t.Helper()
	scr, err := screener.New(screener.DefaultCriteria())
	require.NoError(t, err)

	log := testLogger(t)
	cfg := MonitorConfig{
		Interval:     5 * time.Second,
		WarmupWait:   2 * time.Second,
		Underlyings:  []string{"SPX"},
		MaxContracts: 500,
	}
	opts = append([]MonitorOption{WithClock(clock)}, opts...)
	return NewMonitor(cfg, provider, NewEnhancer(0.05, metrics, log), scr, metrics, log, opts...)
}

func TestMonitorSleepCompensatesForProcessingTime(t *testing.T) {
	clock := newFakeClock(monitorNow, 1) // warmup fires, first sleep parks
	provider := &fakeProvider{clock: clock, tickCost: time.Second, quotes: map[string]models.Quote{"SPX": spxQuote(5000)}}
	metrics := newFakeMetrics()
	m := newTestMonitor(t, clock, provider, metrics)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	require.Eventually(t, func() bool {
		return len(clock.recorded()) >= 2
	}, time.Second, time.Millisecond)

	sleeps := clock.recorded()
	require.Equal(t, 2*time.Second, sleeps[0]) // warmup
	require.Equal(t, 4*time.Second, sleeps[1]) // interval minus 1s of processing
	require.Equal(t, 0, metrics.overrunCount())
}

func TestMonitorOverrunStartsNextTickImmediately(t *testing.T) {
	clock := newFakeClock(monitorNow, 1)
	provider := &fakeProvider{clock: clock, tickCost: 6 * time.Second, quotes: map[string]models.Quote{"SPX": spxQuote(5000)}}
	metrics := newFakeMetrics()
	m := newTestMonitor(t, clock, provider, metrics)

	require.NoError(t, m.Start(context.Background()))

	require.Eventually(t, func() bool {
		return metrics.overrunCount() >= 1
	}, time.Second, time.Millisecond)

	// only the warmup wait was slept; overruns skip the pause entirely
	require.Equal(t, []time.Duration{2 * time.Second}, clock.recorded())

	m.Stop()
	require.Equal(t, StateStopped, m.State())
}

func TestMonitorDoubleStartRejected(t *testing.T) {
	clock := newFakeClock(monitorNow, 1)
	provider := &fakeProvider{clock: clock, quotes: map[string]models.Quote{"SPX": spxQuote(5000)}}
	m := newTestMonitor(t, clock, provider, newFakeMetrics())

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	err := m.Start(context.Background())
	var already *models.AlreadyRunningError
	require.ErrorAs(t, err, &already)
}

func TestMonitorStopJoinsAndClosesProvider(t *testing.T) {
	clock := newFakeClock(monitorNow, 1)
	provider := &fakeProvider{clock: clock, tickCost: time.Second, quotes: map[string]models.Quote{"SPX": spxQuote(5000)}}
	m := newTestMonitor(t, clock, provider, newFakeMetrics())

	require.NoError(t, m.Start(context.Background()))
	require.Equal(t, StateRunning, m.State())

	m.Stop()
	require.Equal(t, StateStopped, m.State())
	require.True(t, provider.wasClosed())

	// stop on a stopped monitor is a no-op
	m.Stop()
	require.Equal(t, StateStopped, m.State())
}

func TestMonitorStopForcesShutdownWhenTickHangs(t *testing.T) {
	clock := newFakeClock(monitorNow, 2) // warmup fires, then the stop timeout
	provider := &stuckProvider{entered: make(chan struct{}), release: make(chan struct{})}
	provider.clock = clock
	provider.quotes = map[string]models.Quote{"SPX": spxQuote(5000)}

	scr, err := screener.New(screener.DefaultCriteria())
	require.NoError(t, err)
	log := testLogger(t)
	metrics := newFakeMetrics()
	m := NewMonitor(MonitorConfig{
		Interval:    5 * time.Second,
		WarmupWait:  2 * time.Second,
		StopTimeout: 10 * time.Second,
		Underlyings: []string{"SPX"},
	}, provider, NewEnhancer(0.05, metrics, log), scr, metrics, log, WithClock(clock))

	require.NoError(t, m.Start(context.Background()))
	<-provider.entered // worker is pinned mid-tick

	m.Stop()
	require.Equal(t, StateStopped, m.State())
	require.True(t, provider.wasClosed())

	// the join deadline was the only sleep after warmup
	sleeps := clock.recorded()
	require.Equal(t, 10*time.Second, sleeps[len(sleeps)-1])

	entries := log.RecentErrors(0)
	require.NotEmpty(t, entries)
	found := false
	for _, e := range entries {
		if strings.Contains(e.Message, "forced shutdown") {
			found = true
		}
	}
	require.True(t, found, "expected a forced-shutdown warning")

	close(provider.release) // let the pinned worker drain
}

func TestMonitorPublishesSnapshotToReadersAndSinks(t *testing.T) {
	clock := newFakeClock(monitorNow, 1)
	provider := &fakeProvider{
		clock:   clock,
		quotes:  map[string]models.Quote{"SPX": spxQuote(5000)},
		records: []models.OptionRecord{screenedCandidate()},
	}
	metrics := newFakeMetrics()
	sink := &fakeSink{}
	m := newTestMonitor(t, clock, provider, metrics, WithSinks(sink))

	var cbCount int
	var cbMu sync.Mutex
	m.OnSnapshot(func(*models.MarketSnapshot) {
		cbMu.Lock()
		defer cbMu.Unlock()
		cbCount++
	})

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	require.Eventually(t, func() bool {
		return m.CurrentSnapshot() != nil
	}, time.Second, time.Millisecond)

	snap := m.CurrentSnapshot()
	require.Len(t, snap.Options, 1)
	require.Equal(t, "SPX", snap.Options[0].Symbol)
	require.Equal(t, 5000.0, snap.Overview.UnderlyingLevels["SPX"])
	require.Len(t, snap.Overview.TopVolume, 1)
	require.NotNil(t, snap.Overview.Volatility)
	require.InDelta(t, 0.20, snap.Overview.Volatility.Avg, 1e-12)

	require.GreaterOrEqual(t, sink.count(), 1)
	cbMu.Lock()
	require.GreaterOrEqual(t, cbCount, 1)
	cbMu.Unlock()
	require.Len(t, m.History(1), 1)

	// universe subscription happened at start
	require.Greater(t, provider.subscribedCount(), 0)
}

func TestMonitorUpdateCriteriaResubscribesNextTick(t *testing.T) {
	clock := newFakeClock(monitorNow, 0)
	provider := &fakeProvider{clock: clock, quotes: map[string]models.Quote{"SPX": spxQuote(5000)}}
	m := newTestMonitor(t, clock, provider, newFakeMetrics())

	require.NoError(t, m.UpdateCriteria(map[string]any{"min_volume": float64(250)}))
	require.Equal(t, int64(250), m.screener.Criteria().MinVolume)
	require.Equal(t, 0, provider.subscribedCount())

	require.NoError(t, m.tick(context.Background(), monitorNow))
	require.Greater(t, provider.subscribedCount(), 0)

	var cfgErr *models.ConfigError
	require.ErrorAs(t, m.UpdateCriteria(map[string]any{"max_gamma": 1.0}), &cfgErr)
}

func TestMonitorExportWritesSnapshotJSON(t *testing.T) {
	clock := newFakeClock(monitorNow, 0)
	provider := &fakeProvider{
		clock:   clock,
		quotes:  map[string]models.Quote{"SPX": spxQuote(5000)},
		records: []models.OptionRecord{screenedCandidate()},
	}
	m := newTestMonitor(t, clock, provider, newFakeMetrics())

	_, err := m.Export("")
	require.True(t, errors.Is(err, models.ErrNoSnapshot))

	require.NoError(t, m.tick(context.Background(), monitorNow))

	path := filepath.Join(t.TempDir(), "snapshot.json")
	written, err := m.Export(path)
	require.NoError(t, err)
	require.Equal(t, path, written)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Contains(t, doc, "underlying_data")
	require.Contains(t, doc, "screened_options")
	require.Contains(t, doc, "summary_stats")
	require.Contains(t, doc, "market_overview")
}
