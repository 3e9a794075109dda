package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OptionRight identifies the side of an option contract.
type OptionRight string

const (
	Call OptionRight = "C"
	Put  OptionRight = "P"
)

// Valid reports whether r is one of the two known rights.
func (r OptionRight) Valid() bool { return r == Call || r == Put }

// Quote is a top-of-book quote for an underlying symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Last      float64   `json:"last"`
	BidSize   int64     `json:"bid_size,omitempty"`
	AskSize   int64     `json:"ask_size,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Mid returns the bid/ask midpoint. It is defined only when both sides
// are quoted above zero.
func (q Quote) Mid() (float64, bool) {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2, true
	}
	return 0, false
}

// Spot resolves the reference price for screening: last trade when present,
// otherwise the midpoint.
func (q Quote) Spot() (float64, bool) {
	if q.Last > 0 {
		return q.Last, true
	}
	return q.Mid()
}

// MarshalJSON includes the computed midpoint so exported documents carry it.
func (q Quote) MarshalJSON() ([]byte, error) {
	type alias Quote
	mid, _ := q.Mid()
	return json.Marshal(struct {
		alias
		Midpoint float64 `json:"midpoint"`
	}{alias(q), mid})
}

// OptionContract is the immutable identity of an option. Expiry is a
// calendar date in YYYYMMDD form.
type OptionContract struct {
	Symbol string      `json:"symbol"`
	Strike float64     `json:"strike"`
	Expiry string      `json:"expiry"`
	Right  OptionRight `json:"option_type"`
}

// Key returns a stable identity string for map keys and Kafka partitioning.
func (c OptionContract) Key() string {
	return fmt.Sprintf("%s_%s_%.2f_%s", c.Symbol, c.Expiry, c.Strike, c.Right)
}

// OptionAnalytics carries implied volatility and Greeks. A nil field means
// the value was neither supplied by the provider nor computed; it is never
// conflated with zero.
type OptionAnalytics struct {
	ImpliedVol *float64 `json:"implied_vol,omitempty"`
	Delta      *float64 `json:"delta,omitempty"`
	Gamma      *float64 `json:"gamma,omitempty"`
	Theta      *float64 `json:"theta,omitempty"`
	Vega       *float64 `json:"vega,omitempty"`
}

// Complete reports whether the provider already supplied both implied vol
// and delta, in which case enhancement leaves the record alone.
func (a OptionAnalytics) Complete() bool {
	return a.ImpliedVol != nil && a.Delta != nil
}

// OptionRecord is one option quote as delivered by the provider, possibly
// with analytics attached. Records are tick-scoped: built fresh from the
// provider's buffered state each tick and discarded with the snapshot.
type OptionRecord struct {
	OptionContract
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	BidSize      int64     `json:"bid_size"`
	AskSize      int64     `json:"ask_size"`
	Last         float64   `json:"last_price"`
	LastSize     int64     `json:"last_size"`
	Volume       int64     `json:"volume"`
	OpenInterest int64     `json:"open_interest"`
	Timestamp    time.Time `json:"timestamp"`
	OptionAnalytics
}

// Mid returns the option midpoint, defined only when both sides are quoted.
func (r OptionRecord) Mid() (float64, bool) {
	if r.Bid > 0 && r.Ask > 0 {
		return (r.Bid + r.Ask) / 2, true
	}
	return 0, false
}

// ScreenedOption is an OptionRecord that passed every filter, with the
// derived screening metrics attached.
type ScreenedOption struct {
	OptionRecord
	DTE                int     `json:"dte"`
	Midpoint           float64 `json:"midpoint"`
	Moneyness          float64 `json:"moneyness"`
	SpreadWidthPct     float64 `json:"spread_width_pct"`
	DistanceFromATMPct float64 `json:"distance_from_atm_pct"`
	NotionalValue      float64 `json:"notional_value"`
	DailyThetaDecay    float64 `json:"daily_theta_decay"`
}

// SummaryStats aggregates one tick's screened options. Means over implied
// vol cover only records whose vol is set.
type SummaryStats struct {
	TotalOptions      int     `json:"total_options"`
	AvgVolume         float64 `json:"avg_volume"`
	AvgOpenInterest   float64 `json:"avg_open_interest"`
	AvgImpliedVol     float64 `json:"avg_implied_vol"`
	AvgSpreadWidthPct float64 `json:"avg_spread_width_pct"`
	Calls             int     `json:"calls"`
	Puts              int     `json:"puts"`
}

// VolatilitySummary condenses the implied-vol distribution of a snapshot.
type VolatilitySummary struct {
	Avg float64 `json:"avg_iv"`
	Min float64 `json:"min_iv"`
	Max float64 `json:"max_iv"`
}

// TopOption is the compact per-contract view used in the top-volume list.
type TopOption struct {
	Symbol   string      `json:"symbol"`
	Strike   float64     `json:"strike"`
	Expiry   string      `json:"expiry"`
	Right    OptionRight `json:"type"`
	Volume   int64       `json:"volume"`
	Midpoint float64     `json:"midpoint"`
}

// MarketOverview is the dashboard-facing digest attached to each snapshot.
type MarketOverview struct {
	TotalScreenedOptions int                `json:"total_screened_options"`
	UnderlyingLevels     map[string]float64 `json:"underlying_levels"`
	Volatility           *VolatilitySummary `json:"volatility_metrics,omitempty"`
	TopVolume            []TopOption        `json:"top_volume_options"`
}

// MarketSnapshot is one published tick of enriched, screened market state.
// It is immutable once published and shared by whole-value replacement.
type MarketSnapshot struct {
	Timestamp   time.Time        `json:"timestamp"`
	Underlyings map[string]Quote `json:"underlying_data"`
	Options     []ScreenedOption `json:"screened_options"`
	Summary     SummaryStats     `json:"summary_stats"`
	Overview    MarketOverview   `json:"market_overview"`
}

// SpotPrices extracts a symbol -> reference price map from underlying quotes,
// skipping symbols without a resolvable price.
func SpotPrices(quotes map[string]Quote) map[string]float64 {
	out := make(map[string]float64, len(quotes))
	for sym, q := range quotes {
		if px, ok := q.Spot(); ok {
			out[sym] = px
		}
	}
	return out
}

// Float returns a pointer to v, for populating optional analytics fields.
func Float(v float64) *float64 { return &v }
