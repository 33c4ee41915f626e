package lunarlander

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByteArena/box2d"
	"github.com/samuelfneumann/lunardqn/environment"
	"github.com/samuelfneumann/lunardqn/timestep"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

func newTestEnv(t *testing.T, cutoff int) *Discrete {
	t.Helper()
	env, step, err := NewDiscrete(NewDefaultLand(1, cutoff), 0.99, 1)
	require.NoError(t, err)
	require.True(t, step.First())
	require.Equal(t, 0, step.Number)
	return env
}

func TestResetObservation(t *testing.T) {
	env := newTestEnv(t, 100)

	step, err := env.Reset()
	require.NoError(t, err)
	require.True(t, step.First())
	require.Equal(t, StateObservations, step.Observation.Len())
	require.Equal(t, 0.0, step.Reward)

	// The lander starts above the centre of the viewport
	require.InDelta(t, 0.0, step.Observation.AtVec(0), 0.05)
	require.Greater(t, step.Observation.AtVec(1), 0.0)

	require.Equal(t, step, env.LastTimeStep())
}

func TestActionSpec(t *testing.T) {
	env := newTestEnv(t, 100)

	n, err := env.ActionSpec().NumActions()
	require.NoError(t, err)
	require.Equal(t, NumActions, n)
}

func TestIllegalAction(t *testing.T) {
	env := newTestEnv(t, 100)

	_, _, err := env.Step(mat.NewVecDense(1, []float64{4}))
	require.Error(t, err)

	_, _, err = env.Step(mat.NewVecDense(2, []float64{0, 1}))
	require.Error(t, err)
}

func TestTimeout(t *testing.T) {
	const cutoff = 5
	env := newTestEnv(t, cutoff)

	var (
		step timestep.TimeStep
		last bool
		err  error
	)
	for i := 1; i <= cutoff; i++ {
		require.False(t, last, "episode ended early at step %v", i)
		step, last, err = env.Step(mat.NewVecDense(1, []float64{float64(NoOp)}))
		require.NoError(t, err)
		require.Equal(t, i, step.Number)
	}

	require.True(t, last)
	require.True(t, step.Timeout())
	require.False(t, step.TerminalStateReached())
}

func TestEpisodeEndsInTerminalState(t *testing.T) {
	env := newTestEnv(t, 1000)

	var step timestep.TimeStep
	for last := false; !last; {
		var err error
		step, last, err = env.Step(mat.NewVecDense(1, []float64{float64(NoOp)}))
		require.NoError(t, err)
	}

	// Falling without thrust either crashes or comes to rest
	require.True(t, step.TerminalStateReached(), "episode ended with %v",
		step.EndType)
	require.Equal(t, 100.0, math.Abs(step.Reward))
}

func TestMainEngineCostsFuel(t *testing.T) {
	env := newTestEnv(t, 100)

	_, _, err := env.Step(mat.NewVecDense(1, []float64{float64(FireMain)}))
	require.NoError(t, err)
	require.Equal(t, 1.0, env.MPower())
	require.Equal(t, 0.0, env.SPower())

	_, _, err = env.Step(mat.NewVecDense(1, []float64{float64(FireLeft)}))
	require.NoError(t, err)
	require.Equal(t, 0.0, env.MPower())
	require.Equal(t, 1.0, env.SPower())
}

func TestIllegalStart(t *testing.T) {
	s := environment.NewUniformStarter([]r1.Interval{
		{Min: 0, Max: 0},
		{Min: InitialY, Max: InitialY},
		{Min: 0, Max: 0},
	}, 1)

	_, _, err := NewDiscrete(NewLand(s, 10), 0.99, 1)
	require.Error(t, err)
}

func TestRender(t *testing.T) {
	env := newTestEnv(t, 100)
	filename := filepath.Join(t.TempDir(), "frame.png")

	require.NoError(t, env.Render(filename))

	info, err := os.Stat(filename)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func noOp() *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(NoOp)})
}

func TestStartsInFlight(t *testing.T) {
	for seed := uint64(0); seed < 10; seed++ {
		env, step, err := NewDiscrete(NewDefaultLand(seed, 100), 0.99, seed)
		require.NoError(t, err, "seed %v", seed)
		require.False(t, step.Last())
		require.False(t, env.IsGameOver())
		require.True(t, env.IsAwake())

		leg1, leg2 := env.GroundContact()
		require.False(t, leg1 || leg2, "legs touch the top of the viewport")

		step, _, err = env.Step(noOp())
		require.NoError(t, err)
		require.False(t, step.Last())
		require.False(t, env.IsGameOver())
	}
}

func TestOutOfBoundsCrashes(t *testing.T) {
	env := newTestEnv(t, 100)

	// Move the whole ship past the right edge of the viewport
	shift := ViewportW / Scale
	for _, body := range append([]*box2d.B2Body{env.lander}, env.legs...) {
		pos := body.GetPosition()
		body.SetTransform(box2d.MakeB2Vec2(pos.X+shift, pos.Y),
			body.GetAngle())
	}

	step, last, err := env.Step(noOp())
	require.NoError(t, err)
	require.True(t, last)
	require.True(t, step.TerminalStateReached())
	require.GreaterOrEqual(t, step.Observation.AtVec(0), 1.0)
	require.Equal(t, CrashReward, step.Reward)
}

func TestRestingLanderSucceeds(t *testing.T) {
	env := newTestEnv(t, 100)

	// Box2D puts resting bodies to sleep
	env.lander.SetAwake(false)
	for _, leg := range env.legs {
		leg.SetAwake(false)
	}

	step, last, err := env.Step(noOp())
	require.NoError(t, err)
	require.True(t, last)
	require.True(t, step.TerminalStateReached())
	require.Equal(t, RestReward, step.Reward)
}
