package models

import (
	"fmt"
	"sync"
	"time"
)

// ExpiryLayout is the exchange-style contract date form, e.g. "20261218".
const ExpiryLayout = "20060102"

// Expiry strings are immutable identity keys, so parses are memoized for
// the life of the process with no invalidation.
var expiryMemo sync.Map // string -> time.Time

// ParseExpiry parses a YYYYMMDD expiry date, memoizing successful parses.
func ParseExpiry(s string) (time.Time, error) {
	if v, ok := expiryMemo.Load(s); ok {
		return v.(time.Time), nil
	}
	t, err := time.Parse(ExpiryLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expiry %q: %w", s, err)
	}
	expiryMemo.Store(s, t)
	return t, nil
}

// DaysToExpiry returns whole calendar days from now to the expiry date,
// floored at zero. Invalid expiries count as zero days. Both dates are
// normalized to UTC midnight: expiry strings parse to UTC, so anchoring
// "today" in the host zone would shift every DTE by a day west of UTC.
func DaysToExpiry(expiry string, now time.Time) int {
	exp, err := ParseExpiry(expiry)
	if err != nil {
		return 0
	}
	y, m, day := now.UTC().Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	d := int(exp.Sub(today).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// YearsToExpiry returns the time to expiry in years, the unit the pricing
// closed form works in. Expired or invalid contracts return zero. The
// subtraction is instant arithmetic against the UTC-midnight expiry, so the
// result is independent of now's zone; UTC is taken for symmetry with
// DaysToExpiry.
func YearsToExpiry(expiry string, now time.Time) float64 {
	exp, err := ParseExpiry(expiry)
	if err != nil {
		return 0
	}
	t := exp.Sub(now.UTC()).Hours() / (365.25 * 24)
	if t < 0 {
		return 0
	}
	return t
}
