package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var expiryNow = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func TestDaysToExpiry(t *testing.T) {
	cases := []struct {
		name   string
		expiry string
		want   int
	}{
		{"ten_days_out", "20260312", 10},
		{"tomorrow", "20260303", 1},
		{"today", "20260302", 0},
		{"yesterday_floors_to_zero", "20260301", 0},
		{"unparseable", "not-a-date", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DaysToExpiry(tc.expiry, expiryNow))
		})
	}
}

func TestDaysToExpiryIsZoneIndependent(t *testing.T) {
	// The same instant expressed in any host zone must yield the same DTE;
	// a contract exactly min-DTE out screens identically east or west of
	// UTC.
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("west", -5*3600),
		time.FixedZone("east", 9*3600),
	}
	for _, loc := range zones {
		now := expiryNow.In(loc)
		require.Equal(t, 10, DaysToExpiry("20260312", now), loc.String())
		require.Equal(t, 0, DaysToExpiry("20260302", now), loc.String())
	}
}

func TestYearsToExpiry(t *testing.T) {
	// Expiry parses to UTC midnight; 9.5 days from the fixed noon.
	got := YearsToExpiry("20260312", expiryNow)
	require.InDelta(t, 9.5/365.25, got, 1e-12)

	require.Equal(t, 0.0, YearsToExpiry("20260301", expiryNow))
	require.Equal(t, 0.0, YearsToExpiry("garbage", expiryNow))

	west := expiryNow.In(time.FixedZone("west", -5*3600))
	require.Equal(t, got, YearsToExpiry("20260312", west))
}

func TestParseExpiryMemoizes(t *testing.T) {
	first, err := ParseExpiry("20261218")
	require.NoError(t, err)
	again, err := ParseExpiry("20261218")
	require.NoError(t, err)
	require.True(t, first.Equal(again))
	require.Equal(t, time.UTC, first.Location())
}
