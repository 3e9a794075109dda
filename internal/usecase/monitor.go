package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"OptiFeed/internal/domain/models"
	domrepo "OptiFeed/internal/domain/repository"
	"OptiFeed/internal/services/screener"
	"OptiFeed/pkg/cache"
	applogger "OptiFeed/pkg/logger"
)

// State is the monitor lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// MonitorConfig drives the tick scheduler and universe subscription.
type MonitorConfig struct {
	Interval     time.Duration // snapshot cadence
	WarmupWait   time.Duration // wait for first underlying quotes after subscribing
	ErrorBackoff time.Duration // pause after a failed tick
	StopTimeout  time.Duration // bound on joining the worker in Stop
	Underlyings  []string      // underlying symbols to watch
	MaxContracts int           // cap on option subscriptions
	HistorySize  int           // snapshots retained in the rolling buffer
}

func (c *MonitorConfig) fillDefaults() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.WarmupWait <= 0 {
		c.WarmupWait = 2 * time.Second
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = time.Second
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 10 * time.Second
	}
	if c.MaxContracts <= 0 {
		c.MaxContracts = 500
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 120
	}
}

// Monitor runs the periodic snapshot pipeline: pull buffered quotes from the
// provider, enhance, screen, assemble, publish. One background worker owns
// the loop; the published snapshot is shared with readers by whole-value
// atomic replacement, so no reader ever sees a partial tick.
type Monitor struct {
	cfg      MonitorConfig
	provider domrepo.QuoteProvider
	enhancer *Enhancer
	screener *screener.Screener
	sinks    []domrepo.SnapshotSink
	metrics  domrepo.Metrics
	log      *applogger.Logger
	clock    Clock

	state       atomic.Int32
	current     atomic.Pointer[models.MarketSnapshot]
	callback    atomic.Pointer[func(*models.MarketSnapshot)]
	resubscribe atomic.Bool
	history     *cache.Ring[*models.MarketSnapshot]

	stopCh chan struct{}
	doneCh chan struct{}
}

// MonitorOption configures optional collaborators.
type MonitorOption func(*Monitor)

// WithClock injects a clock; tests use a fake.
func WithClock(c Clock) MonitorOption {
	return func(m *Monitor) { m.clock = c }
}

// WithSinks attaches downstream snapshot sinks (Kafka, Redis mirror, ...).
func WithSinks(sinks ...domrepo.SnapshotSink) MonitorOption {
	return func(m *Monitor) { m.sinks = append(m.sinks, sinks...) }
}

// NewMonitor assembles the monitor loop.
func NewMonitor(
	cfg MonitorConfig,
	provider domrepo.QuoteProvider,
	enhancer *Enhancer,
	scr *screener.Screener,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	opts ...MonitorOption,
) *Monitor {
	cfg.fillDefaults()
	m := &Monitor{
		cfg:      cfg,
		provider: provider,
		enhancer: enhancer,
		screener: scr,
		metrics:  metrics,
		log:      log,
		clock:    SystemClock(),
		history:  cache.NewRing[*models.MarketSnapshot](cfg.HistorySize),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state.
func (m *Monitor) State() State { return State(m.state.Load()) }

// OnSnapshot registers the per-tick callback. It is invoked synchronously
// from the worker; long-running consumers must hand off asynchronously.
func (m *Monitor) OnSnapshot(cb func(*models.MarketSnapshot)) {
	m.callback.Store(&cb)
}

// CurrentSnapshot returns the last published snapshot, or nil before the
// first tick completes.
func (m *Monitor) CurrentSnapshot() *models.MarketSnapshot {
	return m.current.Load()
}

// History returns up to n most recent snapshots, newest first.
func (m *Monitor) History(n int) []*models.MarketSnapshot {
	return m.history.Recent(n)
}

// Start transitions Stopped -> Starting -> Running: connect, subscribe the
// configured underlyings, wait briefly for quotes, subscribe the derived
// contract universe, and launch the tick worker. A start from any other
// state fails with AlreadyRunningError and changes nothing.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return &models.AlreadyRunningError{State: m.State().String()}
	}

	if err := m.provider.Connect(ctx); err != nil {
		m.state.Store(int32(StateStopped))
		return fmt.Errorf("provider connect: %w", err)
	}
	for _, sym := range m.cfg.Underlyings {
		if err := m.provider.SubscribeUnderlying(ctx, sym); err != nil {
			m.state.Store(int32(StateStopped))
			return fmt.Errorf("subscribe underlying %s: %w", sym, err)
		}
	}

	// give the provider a moment to buffer first quotes
	select {
	case <-m.clock.After(m.cfg.WarmupWait):
	case <-ctx.Done():
		m.state.Store(int32(StateStopped))
		return ctx.Err()
	}

	spots := models.SpotPrices(m.provider.UnderlyingQuotes())
	if len(spots) > 0 {
		m.subscribeUniverse(ctx, spots)
	} else {
		m.log.Warn("no underlying quotes after warmup, deferring universe subscription")
		m.resubscribe.Store(true)
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.state.Store(int32(StateRunning))
	go m.run(ctx)

	m.log.Info("monitor started",
		applogger.Strings("underlyings", m.cfg.Underlyings),
		applogger.Duration("interval", m.cfg.Interval),
	)
	return nil
}

// Stop requests cancellation, joins the worker within the configured
// timeout, and returns to Stopped. Missing the join deadline is logged as a
// forced shutdown, never raised.
func (m *Monitor) Stop() {
	if !m.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return
	}
	close(m.stopCh)

	select {
	case <-m.doneCh:
	case <-m.clock.After(m.cfg.StopTimeout):
		m.log.Warn("forced shutdown: tick did not finish within stop timeout",
			applogger.Duration("timeout", m.cfg.StopTimeout))
	}

	if err := m.provider.Close(); err != nil {
		m.log.Warn("provider close error", applogger.Error(err))
	}
	m.state.Store(int32(StateStopped))
	m.log.Info("monitor stopped")
}

// Criteria returns the screener's active criteria.
func (m *Monitor) Criteria() screener.Criteria {
	return m.screener.Criteria()
}

// UpdateCriteria applies a partial criteria update. On success the contract
// universe is re-derived at the start of the next tick, so the new criteria
// apply no later than that tick.
func (m *Monitor) UpdateCriteria(fields map[string]any) error {
	if err := m.screener.UpdateCriteria(fields); err != nil {
		return err
	}
	m.resubscribe.Store(true)
	m.log.Info("screening criteria updated", applogger.Int("fields", len(fields)))
	return nil
}

// Export writes the current snapshot as an indented JSON document. An empty
// path derives a timestamped filename. Returns the path written.
func (m *Monitor) Export(path string) (string, error) {
	snap := m.current.Load()
	if snap == nil {
		return "", models.ErrNoSnapshot
	}
	if path == "" {
		path = fmt.Sprintf("options_snapshot_%s.json", snap.Timestamp.Format("20060102_150405"))
	}

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// run is the worker loop. Sleep is self-correcting: the next tick starts
// interval minus elapsed after the previous one, and an overrun starts the
// next tick immediately with a logged warning.
func (m *Monitor) run(ctx context.Context) {
	defer close(m.doneCh)

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		started := m.clock.Now()
		if err := m.tick(ctx, started); err != nil {
			m.metrics.RecordError("tick")
			m.log.Error("tick failed", applogger.Error(err))
			if !m.pause(m.cfg.ErrorBackoff) {
				return
			}
			continue
		}

		elapsed := m.clock.Now().Sub(started)
		if elapsed >= m.cfg.Interval {
			overrun := &models.ScheduleOverrunError{Interval: m.cfg.Interval, Elapsed: elapsed}
			m.metrics.RecordOverrun()
			m.log.Warn("tick overran interval", applogger.String("detail", overrun.Error()))
			continue
		}
		if !m.pause(m.cfg.Interval - elapsed) {
			return
		}
	}
}

// pause sleeps for d unless stop is requested; reports whether to continue.
func (m *Monitor) pause(d time.Duration) bool {
	select {
	case <-m.stopCh:
		return false
	case <-m.clock.After(d):
		return true
	}
}

// tick performs one full snapshot cycle. Panics are contained here so a bad
// tick can never take the loop down.
func (m *Monitor) tick(ctx context.Context, started time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()

	quotes := m.provider.UnderlyingQuotes()
	spots := models.SpotPrices(quotes)

	if m.resubscribe.CompareAndSwap(true, false) {
		if len(spots) > 0 {
			m.subscribeUniverse(ctx, spots)
		} else {
			m.resubscribe.Store(true)
		}
	}

	records := m.provider.OptionQuotes()
	enhanced := m.enhancer.Enhance(records, spots, started)
	screened := m.screener.Screen(enhanced, spots, started)

	snap := &models.MarketSnapshot{
		Timestamp:   started,
		Underlyings: quotes,
		Options:     screened,
		Summary:     m.screener.Summary(screened),
		Overview:    buildOverview(spots, screened, 10),
	}

	m.current.Store(snap)
	m.history.Push(snap)

	if cb := m.callback.Load(); cb != nil && *cb != nil {
		(*cb)(snap)
	}
	for _, sink := range m.sinks {
		if perr := sink.Publish(ctx, snap); perr != nil {
			m.metrics.RecordError("sink")
			m.log.Warn("snapshot sink publish failed", applogger.Error(perr))
		}
	}

	m.metrics.RecordTick(m.clock.Now().Sub(started).Seconds())
	m.metrics.RecordScreened(len(screened))
	for sym, px := range spots {
		m.metrics.RecordLastPrice(sym, px)
	}

	m.log.Debug("snapshot published",
		applogger.Int("screened", len(screened)),
		applogger.Int("underlyings", len(quotes)),
	)
	return nil
}

// subscribeUniverse derives the contract universe from current spots and
// requests provider subscriptions, capped at MaxContracts.
func (m *Monitor) subscribeUniverse(ctx context.Context, spots map[string]float64) {
	contracts := m.screener.Universe(spots, m.clock.Now())
	if len(contracts) > m.cfg.MaxContracts {
		m.log.Warn("capping option subscriptions",
			applogger.Int("universe", len(contracts)),
			applogger.Int("cap", m.cfg.MaxContracts),
		)
		contracts = contracts[:m.cfg.MaxContracts]
	}
	for _, c := range contracts {
		if err := m.provider.Subscribe(ctx, c); err != nil {
			m.metrics.RecordError("subscribe")
			m.log.Warn("contract subscription failed",
				applogger.String("contract", c.Key()),
				applogger.Error(err),
			)
		}
	}
	m.log.Info("subscribed contract universe", applogger.Int("contracts", len(contracts)))
}

// buildOverview assembles the dashboard digest: underlying levels, the
// implied-vol envelope, and the top-n contracts by volume. The screened
// slice is already volume-ordered, so top-n is a prefix.
func buildOverview(spots map[string]float64, screened []models.ScreenedOption, topN int) models.MarketOverview {
	ov := models.MarketOverview{
		TotalScreenedOptions: len(screened),
		UnderlyingLevels:     spots,
		TopVolume:            make([]models.TopOption, 0, topN),
	}

	var sum float64
	var n int
	for _, opt := range screened {
		if opt.ImpliedVol == nil {
			continue
		}
		iv := *opt.ImpliedVol
		if ov.Volatility == nil {
			ov.Volatility = &models.VolatilitySummary{Min: iv, Max: iv}
		}
		if iv < ov.Volatility.Min {
			ov.Volatility.Min = iv
		}
		if iv > ov.Volatility.Max {
			ov.Volatility.Max = iv
		}
		sum += iv
		n++
	}
	if ov.Volatility != nil {
		ov.Volatility.Avg = sum / float64(n)
	}

	for i := 0; i < len(screened) && i < topN; i++ {
		opt := screened[i]
		ov.TopVolume = append(ov.TopVolume, models.TopOption{
			Symbol:   opt.Symbol,
			Strike:   opt.Strike,
			Expiry:   opt.Expiry,
			Right:    opt.Right,
			Volume:   opt.Volume,
			Midpoint: opt.Midpoint,
		})
	}
	return ov
}
