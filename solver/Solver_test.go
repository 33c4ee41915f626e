package solver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewValidates(t *testing.T) {
	_, err := NewDefaultAdam(0, 32)
	require.Error(t, err)

	_, err = NewDefaultAdam(1e-3, 0)
	require.Error(t, err)

	_, err = New(RMSPropConfig{StepSize: 1e-3, Rho: 1.5, Batch: 1})
	require.Error(t, err)

	s, err := NewDefaultAdam(5e-4, 64)
	require.NoError(t, err)
	require.Equal(t, Adam, s.Type())
	require.NotNil(t, s.Solver)
}

func TestJSON(t *testing.T) {
	s, err := New(VanillaConfig{StepSize: 0.01, Batch: 8, Clip: 1.0})
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded Solver
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, s.Config, decoded.Config)
	require.NotNil(t, decoded.Solver)
}

func TestUnmarshalViperStyle(t *testing.T) {
	data := []byte(`{"type": "adam", "config": {"stepsize": 0.0005, ` +
		`"epsilon": 1e-8, "beta1": 0.9, "beta2": 0.999, "batch": 64}}`)

	var s Solver
	require.NoError(t, json.Unmarshal(data, &s))
	require.Equal(t, AdamConfig{
		StepSize: 5e-4,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
		Batch:    64,
	}, s.Config)
}
