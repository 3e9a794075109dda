// Package screener filters and ranks enriched option records against a
// mutable set of screening criteria, and derives the contract universe the
// provider should be subscribed to.
package screener

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"OptiFeed/internal/domain/models"
)

// Criteria is the screening configuration. A Screener holds exactly one
// value and replaces it atomically on update; a tick in flight keeps the
// value it started with.
type Criteria struct {
	MinDTE            int      `json:"min_dte" yaml:"min_dte" validate:"gte=0"`
	MaxDTE            int      `json:"max_dte" yaml:"max_dte" validate:"gtefield=MinDTE"`
	StrikeRangePct    float64  `json:"strike_range_pct" yaml:"strike_range_pct" validate:"gt=0,lte=1"`
	MaxSpreadWidthPct float64  `json:"max_spread_width_pct" yaml:"max_spread_width_pct" validate:"gt=0,lte=1"`
	MinMidPrice       float64  `json:"min_mid_price" yaml:"min_mid_price" validate:"gte=0"`
	MinVolume         int64    `json:"min_volume" yaml:"min_volume" validate:"gte=0"`
	MinOpenInterest   int64    `json:"min_open_interest" yaml:"min_open_interest" validate:"gte=0"`
	StrikeIncrement   float64  `json:"strike_increment" yaml:"strike_increment" validate:"gt=0"`
	Symbols           []string `json:"symbols" yaml:"symbols" validate:"min=1,dive,required"`
}

// DefaultCriteria returns the index-option screening profile used when the
// config file does not override it.
func DefaultCriteria() Criteria {
	return Criteria{
		MinDTE:            10,
		MaxDTE:            50,
		StrikeRangePct:    0.09,
		MaxSpreadWidthPct: 0.10,
		MinMidPrice:       0.20,
		MinVolume:         1000,
		MinOpenInterest:   500,
		StrikeIncrement:   5.0,
		Symbols:           []string{"SPX", "XSP"},
	}
}

var criteriaValidate = validator.New()

// validate checks field ranges after an update has been applied to a copy.
func (c Criteria) validate() error {
	if err := criteriaValidate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &models.ConfigError{
				Field:  fe.Field(),
				Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
			}
		}
		return &models.ConfigError{Reason: err.Error()}
	}
	return nil
}

// apply sets one named field from an untyped value (JSON numbers arrive as
// float64). Unknown names and wrong types reject the whole update.
func (c *Criteria) apply(name string, value any) error {
	switch name {
	case "min_dte":
		v, ok := asInt(value)
		if !ok {
			return typeErr(name, "integer")
		}
		c.MinDTE = v
	case "max_dte":
		v, ok := asInt(value)
		if !ok {
			return typeErr(name, "integer")
		}
		c.MaxDTE = v
	case "strike_range_pct":
		v, ok := asFloat(value)
		if !ok {
			return typeErr(name, "number")
		}
		c.StrikeRangePct = v
	case "max_spread_width_pct":
		v, ok := asFloat(value)
		if !ok {
			return typeErr(name, "number")
		}
		c.MaxSpreadWidthPct = v
	case "min_mid_price":
		v, ok := asFloat(value)
		if !ok {
			return typeErr(name, "number")
		}
		c.MinMidPrice = v
	case "min_volume":
		v, ok := asInt(value)
		if !ok {
			return typeErr(name, "integer")
		}
		c.MinVolume = int64(v)
	case "min_open_interest":
		v, ok := asInt(value)
		if !ok {
			return typeErr(name, "integer")
		}
		c.MinOpenInterest = int64(v)
	case "strike_increment":
		v, ok := asFloat(value)
		if !ok {
			return typeErr(name, "number")
		}
		c.StrikeIncrement = v
	case "symbols":
		v, ok := asStrings(value)
		if !ok {
			return typeErr(name, "string list")
		}
		c.Symbols = v
	default:
		return &models.ConfigError{Field: name, Reason: "unknown criteria field"}
	}
	return nil
}

func typeErr(field, want string) error {
	return &models.ConfigError{Field: field, Reason: "expected " + want}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != float64(int(x)) {
			return 0, false
		}
		return int(x), true
	}
	return 0, false
}

func asStrings(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out, true
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
