package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIntDefault(t *testing.T) {
	require.Equal(t, 42, ParseIntDefault("42", 7))
	require.Equal(t, 7, ParseIntDefault("", 7))
	require.Equal(t, 7, ParseIntDefault("not-a-number", 7))
	require.Equal(t, -3, ParseIntDefault("-3", 7))
}
