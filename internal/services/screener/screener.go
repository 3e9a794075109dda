package screener

import (
	"math"
	"sort"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"

	"OptiFeed/internal/domain/models"
)

// Screener applies the criteria predicate chain to option records, attaches
// derived metrics, and orders the survivors. It is stateless apart from the
// atomically-replaced criteria value, so Screen may run concurrently with
// UpdateCriteria: an update applies no later than the next tick.
type Screener struct {
	criteria atomic.Pointer[Criteria]
}

// New creates a Screener with the given starting criteria.
func New(c Criteria) (*Screener, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	s := &Screener{}
	s.criteria.Store(&c)
	return s, nil
}

// Criteria returns a copy of the current criteria value.
func (s *Screener) Criteria() Criteria {
	return *s.criteria.Load()
}

// UpdateCriteria applies a partial field map on top of the current value and
// swaps the result in atomically. Any unknown field, type mismatch, or range
// violation rejects the whole update and retains the prior value untouched.
func (s *Screener) UpdateCriteria(fields map[string]any) error {
	next := *s.criteria.Load()
	for name, value := range fields {
		if err := next.apply(name, value); err != nil {
			return err
		}
	}
	if err := next.validate(); err != nil {
		return err
	}
	s.criteria.Store(&next)
	return nil
}

// Screen filters records against the criteria and returns survivors with
// derived metrics, ordered by descending volume with ties broken by
// ascending distance from ATM. Records whose symbol has no spot price are
// dropped silently: a data gap, not an error.
func (s *Screener) Screen(records []models.OptionRecord, spots map[string]float64, now time.Time) []models.ScreenedOption {
	crit := s.criteria.Load()
	allowed := make(map[string]struct{}, len(crit.Symbols))
	for _, sym := range crit.Symbols {
		allowed[sym] = struct{}{}
	}

	out := make([]models.ScreenedOption, 0, len(records))
	for _, rec := range records {
		spot, ok := spots[rec.Symbol]
		if !ok || spot <= 0 {
			continue
		}
		if _, ok := allowed[rec.Symbol]; !ok {
			continue
		}
		if !passes(rec, spot, crit, now) {
			continue
		}
		out = append(out, derive(rec, spot, now))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Volume != out[j].Volume {
			return out[i].Volume > out[j].Volume
		}
		return out[i].DistanceFromATMPct < out[j].DistanceFromATMPct
	})
	return out
}

// passes runs the predicate chain in order; the first failing filter
// excludes the record outright.
func passes(rec models.OptionRecord, spot float64, crit *Criteria, now time.Time) bool {
	dte := models.DaysToExpiry(rec.Expiry, now)
	if dte < crit.MinDTE || dte > crit.MaxDTE {
		return false
	}
	if math.Abs(rec.Strike-spot)/spot > crit.StrikeRangePct {
		return false
	}
	if rec.Bid <= 0 || rec.Ask <= 0 {
		return false
	}
	mid, ok := rec.Mid()
	if !ok || mid == 0 {
		// no midpoint means the spread is effectively infinite
		return false
	}
	if (rec.Ask-rec.Bid)/mid > crit.MaxSpreadWidthPct {
		return false
	}
	if mid < crit.MinMidPrice {
		return false
	}
	if rec.Volume < crit.MinVolume {
		return false
	}
	if rec.OpenInterest < crit.MinOpenInterest {
		return false
	}
	return true
}

func derive(rec models.OptionRecord, spot float64, now time.Time) models.ScreenedOption {
	mid, _ := rec.Mid()
	notional := mid * 100 // one contract covers 100 shares

	var thetaDecay float64
	if rec.Theta != nil {
		thetaDecay = math.Abs(*rec.Theta) * notional
	}

	return models.ScreenedOption{
		OptionRecord:       rec,
		DTE:                models.DaysToExpiry(rec.Expiry, now),
		Midpoint:           mid,
		Moneyness:          rec.Strike / spot,
		SpreadWidthPct:     (rec.Ask - rec.Bid) / mid,
		DistanceFromATMPct: math.Abs(rec.Strike-spot) / spot,
		NotionalValue:      notional,
		DailyThetaDecay:    thetaDecay,
	}
}

// Summary aggregates screened options. Implied-vol means cover only records
// whose vol is set; empty input yields the zero value.
func (s *Screener) Summary(screened []models.ScreenedOption) models.SummaryStats {
	if len(screened) == 0 {
		return models.SummaryStats{}
	}

	volumes := make([]float64, 0, len(screened))
	ois := make([]float64, 0, len(screened))
	spreads := make([]float64, 0, len(screened))
	ivs := make([]float64, 0, len(screened))
	calls := 0

	for _, opt := range screened {
		volumes = append(volumes, float64(opt.Volume))
		ois = append(ois, float64(opt.OpenInterest))
		spreads = append(spreads, opt.SpreadWidthPct)
		if opt.ImpliedVol != nil {
			ivs = append(ivs, *opt.ImpliedVol)
		}
		if opt.Right == models.Call {
			calls++
		}
	}

	st := models.SummaryStats{
		TotalOptions:      len(screened),
		AvgVolume:         stat.Mean(volumes, nil),
		AvgOpenInterest:   stat.Mean(ois, nil),
		AvgSpreadWidthPct: stat.Mean(spreads, nil),
		Calls:             calls,
		Puts:              len(screened) - calls,
	}
	if len(ivs) > 0 {
		st.AvgImpliedVol = stat.Mean(ivs, nil)
	}
	return st
}
