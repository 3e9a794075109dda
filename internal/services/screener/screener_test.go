package screener

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"OptiFeed/internal/domain/models"
)

// Monday noon, fixed so DTE math is exact.
var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func expiryIn(days int) string {
	return testNow.AddDate(0, 0, days).Format(models.ExpiryLayout)
}

// passingRecord satisfies every default filter: ATM strike, 20 DTE, 10%
// spread exactly at the limit, healthy volume and open interest.
func passingRecord() models.OptionRecord {
	return models.OptionRecord{
		OptionContract: models.OptionContract{
			Symbol: "SPX",
			Strike: 5000,
			Expiry: expiryIn(20),
			Right:  models.Call,
		},
		Bid:          9.5,
		Ask:          10.5,
		Volume:       2000,
		OpenInterest: 1000,
		Timestamp:    testNow,
	}
}

func testSpots() map[string]float64 {
	return map[string]float64{"SPX": 5000}
}

func newTestScreener(t *testing.T) *Screener {
	t.Helper()
	s, err := New(DefaultCriteria())
	require.NoError(t, err)
	return s
}

func TestScreenPassingRecord(t *testing.T) {
	s := newTestScreener(t)

	got := s.Screen([]models.OptionRecord{passingRecord()}, testSpots(), testNow)
	require.Len(t, got, 1)
	require.Equal(t, 20, got[0].DTE)
	require.InDelta(t, 10.0, got[0].Midpoint, 1e-12)
	require.InDelta(t, 1.0, got[0].Moneyness, 1e-12)
	require.InDelta(t, 0.10, got[0].SpreadWidthPct, 1e-12)
	require.InDelta(t, 1000.0, got[0].NotionalValue, 1e-9)
}

func TestScreenDTEBoundaries(t *testing.T) {
	s := newTestScreener(t)

	cases := []struct {
		name string
		days int
		want int
	}{
		{"below_min", 9, 0},
		{"at_min", 10, 1},
		{"at_max", 50, 1},
		{"above_max", 51, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := passingRecord()
			rec.Expiry = expiryIn(tc.days)
			require.Len(t, s.Screen([]models.OptionRecord{rec}, testSpots(), testNow), tc.want)
		})
	}
}

func TestScreenSpreadBoundary(t *testing.T) {
	s := newTestScreener(t)

	// (10.5-9.5)/10 == 0.10 exactly: at the limit is included.
	atLimit := passingRecord()
	require.Len(t, s.Screen([]models.OptionRecord{atLimit}, testSpots(), testNow), 1)

	wide := passingRecord()
	wide.Bid, wide.Ask = 9.4, 10.6
	require.Empty(t, s.Screen([]models.OptionRecord{wide}, testSpots(), testNow))

	oneSided := passingRecord()
	oneSided.Bid = 0
	require.Empty(t, s.Screen([]models.OptionRecord{oneSided}, testSpots(), testNow))
}

func TestScreenStrikeDistance(t *testing.T) {
	s := newTestScreener(t)

	atEdge := passingRecord()
	atEdge.Strike = 5450 // 9% of 5000, exactly at the limit
	require.Len(t, s.Screen([]models.OptionRecord{atEdge}, testSpots(), testNow), 1)

	tooFar := passingRecord()
	tooFar.Strike = 5500
	require.Empty(t, s.Screen([]models.OptionRecord{tooFar}, testSpots(), testNow))
}

func TestScreenMinMidAndLiquidity(t *testing.T) {
	s := newTestScreener(t)

	cheap := passingRecord()
	cheap.Bid, cheap.Ask = 0.09, 0.11
	require.Empty(t, s.Screen([]models.OptionRecord{cheap}, testSpots(), testNow))

	thin := passingRecord()
	thin.Volume = 999
	require.Empty(t, s.Screen([]models.OptionRecord{thin}, testSpots(), testNow))

	lowOI := passingRecord()
	lowOI.OpenInterest = 499
	require.Empty(t, s.Screen([]models.OptionRecord{lowOI}, testSpots(), testNow))
}

func TestScreenDropsRecordsWithoutSpot(t *testing.T) {
	s := newTestScreener(t)

	orphan := passingRecord()
	orphan.Symbol = "XSP" // allowed symbol, but no spot supplied
	got := s.Screen([]models.OptionRecord{passingRecord(), orphan}, testSpots(), testNow)
	require.Len(t, got, 1)
	require.Equal(t, "SPX", got[0].Symbol)
}

func TestScreenRejectsUnknownSymbol(t *testing.T) {
	s := newTestScreener(t)

	stray := passingRecord()
	stray.Symbol = "NDX"
	spots := testSpots()
	spots["NDX"] = 20000
	stray.Strike = 20000
	require.Empty(t, s.Screen([]models.OptionRecord{stray}, spots, testNow))
}

func TestScreenOrdering(t *testing.T) {
	s := newTestScreener(t)

	busy := passingRecord()
	busy.Strike = 5100
	busy.Volume = 9000

	closeATM := passingRecord()
	closeATM.Strike = 5005
	closeATM.Volume = 4000

	farATM := passingRecord()
	farATM.Strike = 5200
	farATM.Volume = 4000

	got := s.Screen([]models.OptionRecord{farATM, closeATM, busy}, testSpots(), testNow)
	require.Len(t, got, 3)
	require.Equal(t, 5100.0, got[0].Strike, "highest volume first")
	require.Equal(t, 5005.0, got[1].Strike, "volume tie broken by ATM distance")
	require.Equal(t, 5200.0, got[2].Strike)
}

func TestSummaryExcludesUnsetIV(t *testing.T) {
	s := newTestScreener(t)

	withIV := passingRecord()
	withIV.ImpliedVol = models.Float(0.30)
	noIV := passingRecord()
	noIV.Strike = 5010
	put := passingRecord()
	put.Right = models.Put
	put.Strike = 4990
	put.ImpliedVol = models.Float(0.50)

	screened := s.Screen([]models.OptionRecord{withIV, noIV, put}, testSpots(), testNow)
	require.Len(t, screened, 3)

	sum := s.Summary(screened)
	require.Equal(t, 3, sum.TotalOptions)
	require.Equal(t, 2, sum.Calls)
	require.Equal(t, 1, sum.Puts)
	require.InDelta(t, 0.40, sum.AvgImpliedVol, 1e-12, "mean over set vols only")
	require.InDelta(t, 2000.0, sum.AvgVolume, 1e-9)
}

func TestSummaryEmpty(t *testing.T) {
	s := newTestScreener(t)
	require.Equal(t, models.SummaryStats{}, s.Summary(nil))
}

func TestUniverseFridayExpiries(t *testing.T) {
	s := newTestScreener(t)

	for _, expiry := range s.ExpiryDates(testNow) {
		d, err := models.ParseExpiry(expiry)
		require.NoError(t, err)
		require.Equal(t, time.Friday, d.Weekday())

		dte := models.DaysToExpiry(expiry, testNow)
		require.GreaterOrEqual(t, dte, 10)
		require.Less(t, dte, 50+30)
	}
}

func TestUniverseCrossProduct(t *testing.T) {
	s := newTestScreener(t)

	spots := map[string]float64{"SPX": 5000} // no XSP spot yet
	contracts := s.Universe(spots, testNow)
	require.NotEmpty(t, contracts)

	strikes := s.ATMStrikes(spots)["SPX"]
	expiries := s.ExpiryDates(testNow)
	require.Len(t, contracts, len(strikes)*len(expiries)*2)

	for _, c := range contracts {
		require.Equal(t, "SPX", c.Symbol)
		require.True(t, c.Right.Valid())
		require.LessOrEqual(t, c.Strike, 5000*1.09+1e-9)
		require.GreaterOrEqual(t, c.Strike, 5000*0.91-1e-9)
	}
}

func TestATMStrikesOnIncrement(t *testing.T) {
	s := newTestScreener(t)

	strikes := s.ATMStrikes(map[string]float64{"SPX": 5003})["SPX"]
	require.NotEmpty(t, strikes)
	require.Contains(t, strikes, 5005.0)
	for i := 1; i < len(strikes); i++ {
		require.InDelta(t, 5.0, strikes[i]-strikes[i-1], 1e-9, "strikes ascend on the increment")
	}
}
