package deepq

import (
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/lunardqn/environment"
	"github.com/samuelfneumann/lunardqn/expreplay"
	"github.com/samuelfneumann/lunardqn/initwfn"
	"github.com/samuelfneumann/lunardqn/network"
	"github.com/samuelfneumann/lunardqn/solver"
	ts "github.com/samuelfneumann/lunardqn/timestep"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// bandit is a single state environment with two actions. Action 1
// yields a reward of 1 and action 0 a reward of 0, and every episode
// ends after one step.
type bandit struct {
	last ts.TimeStep
}

func (b *bandit) obs() *mat.VecDense {
	return mat.NewVecDense(2, []float64{1.0, 0.5})
}

func (b *bandit) Start() *mat.VecDense           { return b.obs() }
func (b *bandit) End(t *ts.TimeStep) bool        { return true }
func (b *bandit) AtGoal(mat.Matrix) bool         { return false }
func (b *bandit) LastTimeStep() ts.TimeStep      { return b.last }
func (b *bandit) RewardSpec() environment.Spec   { return b.spec(1, environment.Reward) }
func (b *bandit) DiscountSpec() environment.Spec { return b.spec(1, environment.Discount) }

func (b *bandit) ObservationSpec() environment.Spec {
	return b.spec(2, environment.Observation)
}

func (b *bandit) spec(n int, t environment.SpecType) environment.Spec {
	return environment.NewSpec(mat.NewVecDense(n, nil), t,
		mat.NewVecDense(n, nil), mat.NewVecDense(n, nil),
		environment.Continuous)
}

func (b *bandit) ActionSpec() environment.Spec {
	return environment.NewSpec(mat.NewVecDense(1, nil), environment.Action,
		mat.NewVecDense(1, []float64{0}), mat.NewVecDense(1, []float64{1}),
		environment.Discrete)
}

func (b *bandit) GetReward(_, a, _ mat.Vector) float64 {
	return a.AtVec(0)
}

func (b *bandit) Reset() (ts.TimeStep, error) {
	b.last = ts.New(ts.First, 0, 0.99, b.obs(), 0)
	return b.last, nil
}

func (b *bandit) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	step := ts.New(ts.Last, b.GetReward(nil, a, nil), 0.99, b.obs(), 1)
	step.SetEnd(ts.TerminalStateReached)
	b.last = step
	return step, true, nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	adam, err := solver.NewDefaultAdam(0.01, 8)
	require.NoError(t, err)

	return Config{
		PolicyLayers: []int{8},
		Biases:       []bool{true},
		Activations:  []*network.Activation{network.TanH()},
		Solver:       adam,
		InitWFn:      initwfn.NewGlorotU(1.0),
		Epsilon:      0.5,
		ExpReplay: expreplay.Config{
			SampleSize:        8,
			MaxReplayCapacity: 100,
			MinReplayCapacity: 8,
		},
		LearnEvery:           1,
		Tau:                  1.0,
		TargetUpdateInterval: 5,
	}
}

// runEpisode runs a single training episode of the bandit
func runEpisode(t *testing.T, d *DeepQ, env *bandit) {
	t.Helper()
	step, err := env.Reset()
	require.NoError(t, err)
	require.NoError(t, d.ObserveFirst(step))

	action, err := d.SelectAction(step)
	require.NoError(t, err)

	next, _, err := env.Step(action)
	require.NoError(t, err)
	require.NoError(t, d.Observe(action, next))
	require.NoError(t, d.Step())
	d.EndEpisode()
}

func TestConfigValidate(t *testing.T) {
	valid := testConfig(t)
	require.NoError(t, valid.Validate())
	require.NoError(t, DefaultConfig().Validate())

	tests := map[string]func(c *Config){
		"biases":      func(c *Config) { c.Biases = nil },
		"activations": func(c *Config) { c.Activations = nil },
		"epsilon":     func(c *Config) { c.Epsilon = 1.1 },
		"learn every": func(c *Config) { c.LearnEvery = 0 },
		"tau":         func(c *Config) { c.Tau = 0 },
		"interval":    func(c *Config) { c.TargetUpdateInterval = 0 },
		"replay":      func(c *Config) { c.ExpReplay.SampleSize = 1000 },
		"solver":      func(c *Config) { c.Solver = nil },
	}

	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			c := testConfig(t)
			modify(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestObserveBeforeObserveFirst(t *testing.T) {
	d, err := New(&bandit{}, testConfig(t), 1)
	require.NoError(t, err)

	step, _, _ := (&bandit{}).Step(mat.NewVecDense(1, []float64{1}))
	require.Error(t, d.Observe(mat.NewVecDense(1, []float64{1}), step))
}

func TestNoLearningBeforeMinCapacity(t *testing.T) {
	d, err := New(&bandit{}, testConfig(t), 1)
	require.NoError(t, err)
	env := &bandit{}

	for i := 0; i < 7; i++ {
		runEpisode(t, d, env)
	}
	require.Equal(t, 0, d.GradientSteps())

	runEpisode(t, d, env)
	require.Equal(t, 1, d.GradientSteps())
}

func TestLearnEvery(t *testing.T) {
	config := testConfig(t)
	config.LearnEvery = 4
	d, err := New(&bandit{}, config, 1)
	require.NoError(t, err)
	env := &bandit{}

	for i := 0; i < 16; i++ {
		runEpisode(t, d, env)
	}

	// Gradient steps at environment steps 8, 12 and 16
	require.Equal(t, 3, d.GradientSteps())
}

func TestTargetSync(t *testing.T) {
	d, err := New(&bandit{}, testConfig(t), 1)
	require.NoError(t, err)
	env := &bandit{}

	weights := func(n network.NeuralNet) []float64 {
		return append([]float64{},
			n.Learnables()[0].Value().Data().([]float64)...)
	}
	initial := weights(d.targetNet)

	// 8 steps to fill the buffer, then 4 gradient steps
	for i := 0; i < 11; i++ {
		runEpisode(t, d, env)
	}
	require.Equal(t, 4, d.GradientSteps())
	require.Equal(t, initial, weights(d.targetNet))
	require.NotEqual(t, initial, weights(d.trainNet))

	runEpisode(t, d, env)
	require.Equal(t, 5, d.GradientSteps())
	require.Equal(t, weights(d.trainNet), weights(d.targetNet))
	require.Equal(t, weights(d.trainNet),
		weights(d.behaviourPolicy.Network()))
}

func TestTargetPolyak(t *testing.T) {
	config := testConfig(t)
	config.Tau = 0.25
	d, err := New(&bandit{}, config, 1)
	require.NoError(t, err)
	env := &bandit{}

	weights := func(n network.NeuralNet) []float64 {
		return append([]float64{},
			n.Learnables()[0].Value().Data().([]float64)...)
	}
	initial := weights(d.targetNet)

	for i := 0; i < 12; i++ {
		runEpisode(t, d, env)
	}
	require.Equal(t, 5, d.GradientSteps())

	train := weights(d.trainNet)
	target := weights(d.targetNet)
	require.NotEqual(t, initial, target)
	require.NotEqual(t, train, target)
	for i := range target {
		want := 0.75*initial[i] + 0.25*train[i]
		require.InDelta(t, want, target[i], 1e-9)
	}
}

func TestLearnsBandit(t *testing.T) {
	d, err := New(&bandit{}, testConfig(t), 1)
	require.NoError(t, err)
	env := &bandit{}

	for i := 0; i < 500; i++ {
		runEpisode(t, d, env)
	}

	step, err := env.Reset()
	require.NoError(t, err)

	values, err := d.ActionValues(step)
	require.NoError(t, err)
	require.InDelta(t, 0.0, values[0], 0.2)
	require.InDelta(t, 1.0, values[1], 0.2)

	d.Eval()
	require.True(t, d.IsEval())
	for i := 0; i < 20; i++ {
		action, err := d.SelectAction(step)
		require.NoError(t, err)
		require.Equal(t, 1.0, action.AtVec(0))
	}
	require.Equal(t, 0.5, d.Epsilon(), "eval mode must not change epsilon")
}

func TestSaveLoad(t *testing.T) {
	env := &bandit{}
	d, err := New(env, testConfig(t), 1)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		runEpisode(t, d, env)
	}

	filename := filepath.Join(t.TempDir(), "deepq.bin")
	require.NoError(t, d.Save(filename))

	loaded, err := New(env, testConfig(t), 2)
	require.NoError(t, err)
	require.NoError(t, loaded.Load(filename))

	step, err := env.Reset()
	require.NoError(t, err)

	want, err := d.ActionValues(step)
	require.NoError(t, err)
	got, err := loaded.ActionValues(step)
	require.NoError(t, err)
	require.InDeltaSlice(t, want, got, 1e-9)

	require.Error(t, loaded.Load(filepath.Join(t.TempDir(), "missing.bin")))
}
