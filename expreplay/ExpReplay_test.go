package expreplay

import (
	"testing"

	"github.com/samuelfneumann/lunardqn/timestep"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// transition returns a transition whose every value is v
func transition(v float64) timestep.Transition {
	return timestep.Transition{
		State:     mat.NewVecDense(2, []float64{v, v}),
		Action:    mat.NewVecDense(1, []float64{v}),
		Reward:    v,
		Discount:  v,
		NextState: mat.NewVecDense(2, []float64{v, v}),
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		valid  bool
	}{
		{"canonical", Config{64, 100000, 64}, true},
		{"zero batch", Config{0, 10, 1}, false},
		{"zero min", Config{1, 10, 0}, false},
		{"batch over max", Config{11, 10, 1}, false},
		{"min over max", Config{1, 10, 11}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.config.Validate()
			if test.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New(NewUniformSelector(5, 1), 1, 4, 2, 1)
	require.Error(t, err, "batch size larger than capacity")

	_, err = New(NewUniformSelector(1, 1), 0, 4, 2, 1)
	require.Error(t, err, "non-positive min capacity")
}

func TestSampleErrors(t *testing.T) {
	buffer, err := New(NewUniformSelector(2, 1), 3, 10, 2, 1)
	require.NoError(t, err)

	_, _, _, _, _, err = buffer.Sample()
	require.True(t, IsEmptyBuffer(err))
	require.False(t, IsInsufficientSamples(err))

	require.NoError(t, buffer.Add(transition(1)))
	_, _, _, _, _, err = buffer.Sample()
	require.True(t, IsInsufficientSamples(err))

	var replayErr *ExpReplayError
	require.ErrorAs(t, err, &replayErr)
	require.Equal(t, "sample", replayErr.Op)
}

func TestFIFOOverwrite(t *testing.T) {
	const capacity = 3
	buffer, err := New(NewUniformSelector(capacity, 1), 1, capacity, 2, 1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, buffer.Add(transition(float64(i))))
	}
	require.Equal(t, capacity, buffer.Capacity())

	// Only the last 3 transitions remain
	seen := map[float64]bool{}
	for i := 0; i < 100; i++ {
		_, _, r, _, _, err := buffer.Sample()
		require.NoError(t, err)
		for _, v := range r {
			seen[v] = true
		}
	}
	require.Equal(t, map[float64]bool{2: true, 3: true, 4: true}, seen)
}

func TestSampleConsistency(t *testing.T) {
	buffer, err := Config{
		SampleSize:        4,
		MaxReplayCapacity: 10,
		MinReplayCapacity: 4,
	}.Create(2, 1, 7)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		require.NoError(t, buffer.Add(transition(float64(i))))
	}

	s, a, r, d, next, err := buffer.Sample()
	require.NoError(t, err)
	require.Len(t, s, 8)
	require.Len(t, a, 4)
	require.Len(t, r, 4)
	require.Len(t, d, 4)
	require.Len(t, next, 8)

	// Each sampled row comes from a single stored transition
	for i := range r {
		require.Equal(t, r[i], s[2*i])
		require.Equal(t, r[i], next[2*i+1])
		require.Equal(t, r[i], a[i])
		require.Equal(t, r[i], d[i])
	}
}

func TestAddInvalidSize(t *testing.T) {
	buffer, err := New(NewUniformSelector(1, 1), 1, 2, 3, 1)
	require.NoError(t, err)
	require.Error(t, buffer.Add(transition(1)))
	require.Equal(t, 0, buffer.Capacity())
}

func BenchmarkSample(b *testing.B) {
	buffer, err := Config{64, 100000, 64}.Create(8, 4, 1)
	if err != nil {
		b.Fatal(err)
	}

	tr := timestep.Transition{
		State:     mat.NewVecDense(8, nil),
		Action:    mat.NewVecDense(4, nil),
		NextState: mat.NewVecDense(8, nil),
	}
	for i := 0; i < 1000; i++ {
		if err := buffer.Add(tr); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, _, _, _, err := buffer.Sample(); err != nil {
			b.Fatal(err)
		}
	}
}
