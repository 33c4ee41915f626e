package network

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

func newTestNet(t *testing.T, batch int) NeuralNet {
	t.Helper()
	net, err := NewMultiHeadMLP(3, batch, 2, G.NewGraph(), []int{5, 4},
		[]bool{true, false}, G.GlorotU(1.0), []*Activation{ReLU(), TanH()})
	require.NoError(t, err)
	return net
}

// predict runs the network's graph on input and returns its output
func predict(t *testing.T, net NeuralNet, input []float64) []float64 {
	t.Helper()
	require.NoError(t, net.SetInput(input))

	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	out := net.Output().Data().([]float64)
	return append([]float64{}, out...)
}

func TestNewMultiHeadMLPArgs(t *testing.T) {
	_, err := NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{5}, []bool{},
		G.Zeroes(), []*Activation{ReLU()})
	require.Error(t, err, "biases")

	_, err = NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{5}, []bool{true},
		G.Zeroes(), nil)
	require.Error(t, err, "activations")

	_, err = NewMultiHeadMLP(3, 1, 0, G.NewGraph(), nil, nil, G.Zeroes(), nil)
	require.Error(t, err, "outputs")
}

func TestLinearNetwork(t *testing.T) {
	net, err := NewMultiHeadMLP(2, 1, 3, G.NewGraph(), nil, nil, G.Zeroes(),
		nil)
	require.NoError(t, err)

	// Weights and bias of the final layer
	require.Len(t, net.Learnables(), 2)
	require.Equal(t, []float64{0, 0, 0}, predict(t, net, []float64{1, 2}))
}

func TestOutputShape(t *testing.T) {
	net := newTestNet(t, 4)
	require.Equal(t, 4, net.BatchSize())
	require.Equal(t, 3, net.Features())
	require.Equal(t, 2, net.Outputs())

	out := predict(t, net, make([]float64, 12))
	require.Len(t, out, 8)

	require.Error(t, net.SetInput(make([]float64, 3)))
}

func TestCloneWithBatch(t *testing.T) {
	net := newTestNet(t, 1)
	input := []float64{0.5, -1.0, 2.0}
	want := predict(t, net, input)

	clone, err := net.CloneWithBatch(2)
	require.NoError(t, err)
	require.NotSame(t, net.Graph(), clone.Graph())

	got := predict(t, clone, append(append([]float64{}, input...), input...))
	require.InDeltaSlice(t, want, got[:2], 1e-9)
	require.InDeltaSlice(t, want, got[2:], 1e-9)
}

func TestSetAndPolyak(t *testing.T) {
	source := newTestNet(t, 1)
	dest := newTestNet(t, 1)
	input := []float64{0.1, 0.2, 0.3}

	require.NoError(t, dest.Set(source))
	require.InDeltaSlice(t, predict(t, source, input), predict(t, dest, input),
		1e-9)

	// Polyak averaging between equal weights leaves them unchanged
	before := append([]float64{}, nodeData(dest.Learnables()[0])...)
	require.NoError(t, dest.Polyak(source, 0.3))
	require.InDeltaSlice(t, before, nodeData(dest.Learnables()[0]), 1e-9)

	// τ = 1 copies the source weights
	zero, err := NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{5, 4},
		[]bool{true, false}, G.Zeroes(), []*Activation{ReLU(), TanH()})
	require.NoError(t, err)
	require.NoError(t, zero.Polyak(source, 1.0))
	require.InDeltaSlice(t, nodeData(source.Learnables()[0]),
		nodeData(zero.Learnables()[0]), 1e-9)

	// τ = 0.5 halves the distance
	zero, err = NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{5, 4},
		[]bool{true, false}, G.Zeroes(), []*Activation{ReLU(), TanH()})
	require.NoError(t, err)
	require.NoError(t, zero.Polyak(source, 0.5))
	w := nodeData(source.Learnables()[0])
	half := nodeData(zero.Learnables()[0])
	for i := range w {
		require.InDelta(t, w[i]/2, half[i], 1e-9)
	}
}

func TestGob(t *testing.T) {
	net := newTestNet(t, 1)
	input := []float64{-0.4, 0.9, 1.3}
	want := predict(t, net, input)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(net))

	decoded, err := Load(&buf)
	require.NoError(t, err)
	require.Equal(t, net.Outputs(), decoded.Outputs())
	require.InDeltaSlice(t, want, predict(t, decoded, input), 1e-9)
}

func TestActivationJSON(t *testing.T) {
	act := TanH()
	data, err := act.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"tanh"`, string(data))

	decoded := &Activation{}
	require.NoError(t, decoded.UnmarshalJSON([]byte(`"ReLU"`)))
	require.Equal(t, "relu", decoded.String())

	require.Error(t, decoded.UnmarshalJSON([]byte(`"softmax"`)))
}
