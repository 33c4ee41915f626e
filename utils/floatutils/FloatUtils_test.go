package floatutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{1, 3, -2, 3, 0})
	require.Equal(t, 3.0, max)
	require.Equal(t, []int{1, 3}, indices)

	max, indices = MaxSlice([]float64{-5})
	require.Equal(t, -5.0, max)
	require.Equal(t, []int{0}, indices)
}

func TestWrap(t *testing.T) {
	require.InDelta(t, 0.0, Wrap(2*math.Pi, -math.Pi, math.Pi), 1e-12)
	require.InDelta(t, -math.Pi+0.5, Wrap(math.Pi+0.5, -math.Pi, math.Pi),
		1e-12)
	require.InDelta(t, math.Pi-0.5, Wrap(-math.Pi-0.5, -math.Pi, math.Pi),
		1e-12)
	require.InDelta(t, 1.0, Wrap(1.0, -math.Pi, math.Pi), 1e-12)
}

func TestClip(t *testing.T) {
	require.Equal(t, 1.0, Clip(5, -1, 1))
	require.Equal(t, -1.0, Clip(-5, -1, 1))
	require.Equal(t, 0.25, Clip(0.25, -1, 1))
	require.Equal(t, -1.0, Sign(-0.1))
	require.Equal(t, 1.0, Sign(0))
}
