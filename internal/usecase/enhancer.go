package usecase

import (
	"time"

	"OptiFeed/internal/domain/models"
	domrepo "OptiFeed/internal/domain/repository"
	"OptiFeed/internal/services/pricing"
	applogger "OptiFeed/pkg/logger"
)

// Enhancer fills in missing implied volatility and Greeks on raw provider
// records. Provider-supplied values are never overwritten: a record arriving
// with both vol and delta passes through untouched, and even when the vol
// had to be solved, only the fields the provider left unset are filled.
type Enhancer struct {
	riskFree float64
	metrics  domrepo.Metrics
	log      *applogger.Logger
}

// NewEnhancer creates an Enhancer using the given continuously-compounded
// risk-free rate.
func NewEnhancer(riskFree float64, metrics domrepo.Metrics, log *applogger.Logger) *Enhancer {
	return &Enhancer{riskFree: riskFree, metrics: metrics, log: log}
}

// Enhance returns the records with analytics filled where possible. A failed
// vol solve leaves the record's analytics unset but keeps the record: the
// screener's own liquidity filters decide its fate.
func (e *Enhancer) Enhance(records []models.OptionRecord, spots map[string]float64, now time.Time) []models.OptionRecord {
	out := make([]models.OptionRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, e.enhance(rec, spots, now))
	}
	return out
}

func (e *Enhancer) enhance(rec models.OptionRecord, spots map[string]float64, now time.Time) models.OptionRecord {
	if rec.Complete() {
		return rec
	}

	spot, ok := spots[rec.Symbol]
	if !ok || spot <= 0 {
		e.log.Debug("no spot for contract, skipping analytics",
			applogger.String("contract", rec.Key()),
			applogger.Error(&models.DataGapError{Symbol: rec.Symbol}),
		)
		return rec
	}
	mid, ok := rec.Mid()
	if !ok {
		return rec
	}
	t := models.YearsToExpiry(rec.Expiry, now)
	if t <= 0 {
		// expired or unparseable; the DTE filter removes it downstream
		return rec
	}

	sigma := 0.0
	if rec.ImpliedVol != nil {
		sigma = *rec.ImpliedVol
	} else {
		solved, err := pricing.ImpliedVol(mid, spot, rec.Strike, t, e.riskFree, rec.Right)
		if err != nil {
			e.metrics.RecordSolveFailure()
			e.log.Debug("implied vol solve failed",
				applogger.String("contract", rec.Key()),
				applogger.Error(err),
			)
			return rec
		}
		sigma = solved
		rec.ImpliedVol = models.Float(sigma)
	}

	g := pricing.Compute(spot, rec.Strike, t, e.riskFree, sigma, rec.Right)
	if rec.Delta == nil {
		rec.Delta = models.Float(g.Delta)
	}
	if rec.Gamma == nil {
		rec.Gamma = models.Float(g.Gamma)
	}
	if rec.Theta == nil {
		rec.Theta = models.Float(g.Theta)
	}
	if rec.Vega == nil {
		rec.Vega = models.Float(g.Vega)
	}
	return rec
}
