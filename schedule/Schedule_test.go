package schedule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExponential(t *testing.T) {
	s, err := NewExponential(1.0, 0.01, 0.995)
	require.NoError(t, err)
	require.Equal(t, 1.0, s.Value())

	for k := 1; k <= 2000; k++ {
		want := math.Max(0.01, math.Pow(0.995, float64(k)))
		require.InDelta(t, want, s.Next(), 1e-9, "episode %v", k)
	}
	require.Equal(t, 0.01, s.Value())

	s.Reset()
	require.Equal(t, 1.0, s.Value())
}

func TestExponentialArgs(t *testing.T) {
	_, err := NewExponential(1.0, 0.01, 1.5)
	require.Error(t, err)

	_, err = NewExponential(0.1, 0.5, 0.9)
	require.Error(t, err)
}

func TestRatesOutsideUnitInterval(t *testing.T) {
	_, err := NewExponential(1.5, 0.01, 0.995)
	require.Error(t, err)

	_, err = NewExponential(1.0, -0.1, 0.995)
	require.Error(t, err)

	_, err = NewLinear(1.0, -0.5, 10)
	require.Error(t, err)

	_, err = NewLinear(2.0, 0.0, 10)
	require.Error(t, err)

	_, err = NewConstant(1.1)
	require.Error(t, err)

	_, err = Config{Type: "constant", Start: -0.2}.Create()
	require.Error(t, err)

	c, err := NewConstant(0.05)
	require.NoError(t, err)
	require.Equal(t, 0.05, c.Value())
}

func TestLinear(t *testing.T) {
	s, err := NewLinear(1.0, 0.0, 4)
	require.NoError(t, err)

	for _, want := range []float64{0.75, 0.5, 0.25, 0.0, 0.0} {
		require.InDelta(t, want, s.Next(), 1e-12)
	}

	s.Reset()
	require.Equal(t, 1.0, s.Value())

	_, err = NewLinear(1.0, 0.0, 0)
	require.Error(t, err)
}

func TestConfigCreate(t *testing.T) {
	s, err := Config{Type: "exponential", Start: 1, End: 0.01,
		Decay: 0.995}.Create()
	require.NoError(t, err)
	require.IsType(t, &Exponential{}, s)

	s, err = Config{Type: "constant", Start: 0.1}.Create()
	require.NoError(t, err)
	require.Equal(t, 0.1, s.Next())

	_, err = Config{Type: "cosine"}.Create()
	require.Error(t, err)
}
