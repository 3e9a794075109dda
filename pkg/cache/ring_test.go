package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingEmpty(t *testing.T) {
	r := NewRing[int](4)

	require.Equal(t, 0, r.Len())
	require.Empty(t, r.Recent(10))

	_, ok := r.Latest()
	require.False(t, ok)
}

func TestRingPartialFill(t *testing.T) {
	r := NewRing[int](4)
	r.Push(1)
	r.Push(2)

	require.Equal(t, 2, r.Len())
	require.Equal(t, []int{2, 1}, r.Recent(0))

	latest, ok := r.Latest()
	require.True(t, ok)
	require.Equal(t, 2, latest)
}

func TestRingOverwritesOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	require.Equal(t, 3, r.Len())
	require.Equal(t, []int{5, 4, 3}, r.Recent(0))
	require.Equal(t, []int{5, 4}, r.Recent(2))

	latest, ok := r.Latest()
	require.True(t, ok)
	require.Equal(t, 5, latest)
}
