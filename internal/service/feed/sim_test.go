package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"OptiFeed/internal/domain/models"
)

func newConnectedSim(t *testing.T, seed int64) *Simulator {
	t.Helper()
	sim := NewSimulator(SimConfig{Seed: seed})
	sim.now = func() time.Time { return time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, sim.Connect(context.Background()))
	return sim
}

func TestSimulatorRequiresConnect(t *testing.T) {
	sim := NewSimulator(SimConfig{Seed: 1})
	require.Error(t, sim.SubscribeUnderlying(context.Background(), "SPX"))
	require.Error(t, sim.Subscribe(context.Background(), models.OptionContract{Symbol: "SPX"}))
}

func TestSimulatorWalkMovesSpot(t *testing.T) {
	sim := newConnectedSim(t, 7)
	require.NoError(t, sim.SubscribeUnderlying(context.Background(), "SPX"))

	first := sim.UnderlyingQuotes()["SPX"]
	second := sim.UnderlyingQuotes()["SPX"]

	require.InEpsilon(t, 5000, first.Last, 0.01) // one step from the base level
	require.NotEqual(t, first.Last, second.Last)
	require.Less(t, first.Bid, first.Ask)
	require.InDelta(t, first.Last, (first.Bid+first.Ask)/2, 1e-9)
}

func TestSimulatorSeedDeterminism(t *testing.T) {
	ctx := context.Background()
	contract := models.OptionContract{Symbol: "SPX", Strike: 5000, Expiry: "20260327", Right: models.Call}

	run := func(seed int64) ([]models.Quote, []models.OptionRecord) {
		sim := newConnectedSim(t, seed)
		require.NoError(t, sim.SubscribeUnderlying(ctx, "SPX"))
		require.NoError(t, sim.Subscribe(ctx, contract))

		var quotes []models.Quote
		var records []models.OptionRecord
		for i := 0; i < 5; i++ {
			quotes = append(quotes, sim.UnderlyingQuotes()["SPX"])
			records = append(records, sim.OptionQuotes()...)
		}
		return quotes, records
	}

	q1, r1 := run(42)
	q2, r2 := run(42)
	require.Equal(t, q1, q2)
	require.Equal(t, r1, r2)

	q3, _ := run(43)
	require.NotEqual(t, q1, q3)
}

func TestSimulatorOptionQuoteShape(t *testing.T) {
	ctx := context.Background()
	sim := newConnectedSim(t, 11)
	require.NoError(t, sim.SubscribeUnderlying(ctx, "SPX"))
	require.NoError(t, sim.Subscribe(ctx, models.OptionContract{
		Symbol: "SPX", Strike: 5000, Expiry: "20260327", Right: models.Call,
	}))
	require.NoError(t, sim.Subscribe(ctx, models.OptionContract{
		Symbol: "SPX", Strike: 5000, Expiry: "20250101", Right: models.Call, // already expired
	}))

	sim.UnderlyingQuotes() // prime the walk

	records := sim.OptionQuotes()
	require.Len(t, records, 1) // the expired contract is not quoted

	rec := records[0]
	require.Less(t, rec.Bid, rec.Ask)
	require.GreaterOrEqual(t, rec.Bid, 0.0)
	require.Greater(t, rec.Last, 0.0)
	require.Nil(t, rec.ImpliedVol) // analytics are the enhancer's job
}

func TestSimulatorResetReplaysSequence(t *testing.T) {
	ctx := context.Background()
	sim := newConnectedSim(t, 42)
	require.NoError(t, sim.SubscribeUnderlying(ctx, "SPX"))
	first := sim.UnderlyingQuotes()["SPX"]

	sim.Reset(42)
	require.NoError(t, sim.Connect(ctx))
	require.NoError(t, sim.SubscribeUnderlying(ctx, "SPX"))
	replay := sim.UnderlyingQuotes()["SPX"]

	require.Equal(t, first, replay)
}
