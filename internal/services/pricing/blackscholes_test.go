package pricing

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"OptiFeed/internal/domain/models"
)

func TestCallThirtyDayATM(t *testing.T) {
	s, k := 5000.0, 5000.0
	tt := 30.0 / 365.0
	r, sigma := 0.05, 0.20

	g := Compute(s, k, tt, r, sigma, models.Call)
	require.InDelta(t, 124.65, g.Price, 0.5)
	require.InDelta(t, 0.540, g.Delta, 0.02)
	require.Greater(t, g.Gamma, 0.0)
	require.Less(t, g.Theta, 0.0, "long calls decay")
	require.Greater(t, g.Vega, 0.0)
}

func TestPutCallParity(t *testing.T) {
	cases := []struct {
		name             string
		s, k, t, r, sigm float64
	}{
		{"atm", 100, 100, 0.5, 0.05, 0.2},
		{"itm_call", 120, 100, 1.0, 0.03, 0.35},
		{"otm_call", 80, 100, 0.25, 0.0, 0.5},
		{"long_dated", 5000, 4800, 2.0, 0.08, 0.15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Price(tc.s, tc.k, tc.t, tc.r, tc.sigm, models.Call)
			p := Price(tc.s, tc.k, tc.t, tc.r, tc.sigm, models.Put)
			forward := tc.s - tc.k*math.Exp(-tc.r*tc.t)
			require.InDelta(t, forward, c-p, 1e-8)
		})
	}
}

func TestPutDeltaOffsetsCallDelta(t *testing.T) {
	dc := Delta(100, 105, 0.3, 0.04, 0.25, models.Call)
	dp := Delta(100, 105, 0.3, 0.04, 0.25, models.Put)
	require.InDelta(t, 1.0, dc-dp, 1e-12)
	require.Less(t, dp, 0.0)
}

func TestImpliedVolRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		s := 50 + rng.Float64()*9950
		k := s * (0.5 + rng.Float64())
		tt := 2 * (1 - rng.Float64()) // (0, 2]
		r := rng.Float64() * 0.1
		sigma := 0.05 + rng.Float64()*0.95
		right := models.Call
		if rng.Intn(2) == 1 {
			right = models.Put
		}

		// Deep in-the-money short-dated draws have vega below float
		// resolution: the price carries no volatility information and
		// inversion is meaningless for them.
		if Vega(s, k, tt, r, sigma) < 1e-6 {
			continue
		}

		price := Price(s, k, tt, r, sigma, right)
		solved, err := ImpliedVol(price, s, k, tt, r, right)
		require.NoError(t, err, "draw %d: s=%v k=%v t=%v r=%v sigma=%v", i, s, k, tt, r, sigma)
		require.InDelta(t, sigma, solved, 1e-4, "draw %d", i)

		reprice := Price(s, k, tt, r, solved, right)
		require.InDelta(t, price, reprice, 1e-6*math.Max(1, price))
	}
}

func TestImpliedVolBracketFailure(t *testing.T) {
	var convErr *models.ConvergenceError

	// A call can never be worth more than the spot.
	_, err := ImpliedVol(150, 100, 100, 0.5, 0.05, models.Call)
	require.Error(t, err)
	require.True(t, errors.As(err, &convErr))

	// Deep OTM priced below its minimum-vol value.
	lowest := Price(100, 150, 0.1, 0.05, VolFloor, models.Call)
	_, err = ImpliedVol(lowest/10, 100, 150, 0.1, 0.05, models.Call)
	require.Error(t, err)
	require.True(t, errors.As(err, &convErr))

	_, err = ImpliedVol(0, 100, 100, 0.5, 0.05, models.Call)
	require.Error(t, err)
	require.True(t, errors.As(err, &convErr))
}

func TestVegaReportedPerPercent(t *testing.T) {
	s, k, tt, r, sigma := 100.0, 100.0, 1.0, 0.0, 0.2

	base := Price(s, k, tt, r, sigma, models.Call)
	bumped := Price(s, k, tt, r, sigma+0.01, models.Call)
	require.InDelta(t, bumped-base, Vega(s, k, tt, r, sigma), 5e-3)
}
