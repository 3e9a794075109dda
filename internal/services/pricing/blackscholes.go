// Package pricing implements closed-form Black-Scholes valuation, Greeks,
// and implied-volatility inversion for European options.
//
// Dividend yield is not modeled (q = 0). Callers pricing a dividend-paying
// underlying must fold the yield into the rate themselves.
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"OptiFeed/internal/domain/models"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Greeks bundles the outputs of one closed-form evaluation. Theta is per
// calendar day, Vega per one percentage point of volatility.
type Greeks struct {
	Price float64
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

func d1(s, k, t, r, sigma float64) float64 {
	return (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
}

// Price returns the Black-Scholes value of a European option. All inputs
// must satisfy the caller contract: s, k, sigma > 0 and t > 0 in years;
// expired contracts are filtered before pricing.
func Price(s, k, t, r, sigma float64, right models.OptionRight) float64 {
	dOne := d1(s, k, t, r, sigma)
	dTwo := dOne - sigma*math.Sqrt(t)
	disc := k * math.Exp(-r*t)

	if right == models.Call {
		return s*stdNormal.CDF(dOne) - disc*stdNormal.CDF(dTwo)
	}
	return disc*stdNormal.CDF(-dTwo) - s*stdNormal.CDF(-dOne)
}

// Delta is the option price sensitivity to the spot.
func Delta(s, k, t, r, sigma float64, right models.OptionRight) float64 {
	dOne := d1(s, k, t, r, sigma)
	if right == models.Call {
		return stdNormal.CDF(dOne)
	}
	return stdNormal.CDF(dOne) - 1
}

// Gamma is the delta sensitivity to the spot, identical for calls and puts.
func Gamma(s, k, t, r, sigma float64) float64 {
	dOne := d1(s, k, t, r, sigma)
	return stdNormal.Prob(dOne) / (s * sigma * math.Sqrt(t))
}

// Theta is the time decay of the option value, per calendar day.
func Theta(s, k, t, r, sigma float64, right models.OptionRight) float64 {
	dOne := d1(s, k, t, r, sigma)
	dTwo := dOne - sigma*math.Sqrt(t)
	decay := -s * stdNormal.Prob(dOne) * sigma / (2 * math.Sqrt(t))

	var perYear float64
	if right == models.Call {
		perYear = decay - r*k*math.Exp(-r*t)*stdNormal.CDF(dTwo)
	} else {
		perYear = decay + r*k*math.Exp(-r*t)*stdNormal.CDF(-dTwo)
	}
	return perYear / 365.0
}

// Vega is the price sensitivity to volatility, per 1% vol move.
func Vega(s, k, t, r, sigma float64) float64 {
	dOne := d1(s, k, t, r, sigma)
	return s * stdNormal.Prob(dOne) * math.Sqrt(t) / 100.0
}

// Compute evaluates price and all four Greeks in one pass.
func Compute(s, k, t, r, sigma float64, right models.OptionRight) Greeks {
	return Greeks{
		Price: Price(s, k, t, r, sigma, right),
		Delta: Delta(s, k, t, r, sigma, right),
		Gamma: Gamma(s, k, t, r, sigma),
		Theta: Theta(s, k, t, r, sigma, right),
		Vega:  Vega(s, k, t, r, sigma),
	}
}
