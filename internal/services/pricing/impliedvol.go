package pricing

import (
	"math"

	"OptiFeed/internal/domain/models"
)

// Implied-volatility solver bounds and budget. The bracket matches the
// screening pipeline's accepted vol range; anything outside it is treated
// as unresolvable market data, not as a numerical edge case to chase.
const (
	VolFloor = 0.01
	VolCeil  = 3.0

	maxIterations = 200
	priceTol      = 1e-9
	volTol        = 1e-8
)

// ImpliedVol finds the volatility that reprices the observed price under
// Black-Scholes. Price is monotone increasing in sigma, so a plain bisection
// on [VolFloor, VolCeil] converges whenever the bracket contains a root.
//
// Returns *models.ConvergenceError when the observed price lies outside the
// bracket's price range or the iteration budget runs out.
func ImpliedVol(observed, s, k, t, r float64, right models.OptionRight) (float64, error) {
	if observed <= 0 {
		return 0, &models.ConvergenceError{Price: observed, Reason: "non-positive price"}
	}

	lo, hi := VolFloor, VolCeil
	fLo := Price(s, k, t, r, lo, right) - observed
	fHi := Price(s, k, t, r, hi, right) - observed

	if fLo > 0 {
		return 0, &models.ConvergenceError{Price: observed, Reason: "price below minimum-vol value"}
	}
	if fHi < 0 {
		return 0, &models.ConvergenceError{Price: observed, Reason: "price above maximum-vol value"}
	}

	for i := 0; i < maxIterations; i++ {
		mid := (lo + hi) / 2
		fMid := Price(s, k, t, r, mid, right) - observed

		if math.Abs(fMid) < priceTol || (hi-lo)/2 < volTol {
			return mid, nil
		}
		if fMid < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0, &models.ConvergenceError{Price: observed, Reason: "iteration budget exhausted"}
}
