package screener

import (
	"math"
	"sort"
	"time"

	"OptiFeed/internal/domain/models"
)

// ATMStrikes returns the strikes within the criteria's distance fraction of
// each underlying's spot, on the configured strike increment, sorted
// ascending per symbol.
func (s *Screener) ATMStrikes(spots map[string]float64) map[string][]float64 {
	crit := s.criteria.Load()
	out := make(map[string][]float64, len(crit.Symbols))

	for _, sym := range crit.Symbols {
		px, ok := spots[sym]
		if !ok || px <= 0 {
			continue
		}
		inc := crit.StrikeIncrement
		atm := math.Round(px/inc) * inc
		maxDist := px * crit.StrikeRangePct

		var strikes []float64
		for k := atm; k <= px+maxDist; k += inc {
			strikes = append(strikes, k)
		}
		for k := atm - inc; k >= px-maxDist; k -= inc {
			strikes = append(strikes, k)
		}
		sort.Float64s(strikes)
		out[sym] = strikes
	}
	return out
}

// ExpiryDates lists weekly expiries in YYYYMMDD form: every Friday between
// min-DTE and max-DTE plus a 30-day lookahead. Exchange convention, not a
// business-day calendar.
func (s *Screener) ExpiryDates(now time.Time) []string {
	crit := s.criteria.Load()

	var expiries []string
	for days := crit.MinDTE; days < crit.MaxDTE+30; days++ {
		d := now.AddDate(0, 0, days)
		if d.Weekday() == time.Friday {
			expiries = append(expiries, d.Format(models.ExpiryLayout))
		}
	}
	return expiries
}

// Universe builds the contract subscription list: the Cartesian product of
// ATM-region strikes, weekly expiries, and both rights, per allowed symbol.
func (s *Screener) Universe(spots map[string]float64, now time.Time) []models.OptionContract {
	crit := s.criteria.Load()
	strikes := s.ATMStrikes(spots)
	expiries := s.ExpiryDates(now)

	var contracts []models.OptionContract
	for _, sym := range crit.Symbols {
		ks, ok := strikes[sym]
		if !ok {
			continue
		}
		for _, expiry := range expiries {
			for _, k := range ks {
				for _, right := range []models.OptionRight{models.Call, models.Put} {
					contracts = append(contracts, models.OptionContract{
						Symbol: sym,
						Strike: k,
						Expiry: expiry,
						Right:  right,
					})
				}
			}
		}
	}
	return contracts
}
