package experiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/lunardqn/solver"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	c, err := LoadConfig("")
	require.NoError(t, err)

	def := DefaultConfig()
	require.Equal(t, def.MaxEpisodes, c.MaxEpisodes)
	require.Equal(t, def.Discount, c.Discount)
	require.Equal(t, def.Epsilon, c.Epsilon)
	require.Equal(t, def.Agent.PolicyLayers, c.Agent.PolicyLayers)
	require.Equal(t, def.Agent.ExpReplay, c.Agent.ExpReplay)
	require.Equal(t, solver.Adam, c.Agent.Solver.Type())
	require.Equal(t, "relu", c.Agent.Activations[0].String())
}

func TestLoadConfigFile(t *testing.T) {
	yaml := `
maxEpisodes: 10
discount: 0.9
epsilon:
  type: linear
  start: 1.0
  end: 0.1
  episodes: 5
agent:
  policyLayers: [32]
  biases: [false]
  activations: [tanh]
  solver:
    type: RMSProp
    config:
      stepSize: 0.001
      epsilon: 0.00000001
      rho: 0.9
      batch: 32
  expReplay:
    sampleSize: 32
    minReplayCapacity: 32
`
	filename := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(yaml), 0o644))

	c, err := LoadConfig(filename)
	require.NoError(t, err)

	require.Equal(t, 10, c.MaxEpisodes)
	require.Equal(t, 0.9, c.Discount)
	require.Equal(t, "linear", c.Epsilon.Type)
	require.Equal(t, 5, c.Epsilon.Episodes)
	require.Equal(t, []int{32}, c.Agent.PolicyLayers)
	require.Equal(t, []bool{false}, c.Agent.Biases)
	require.Equal(t, "tanh", c.Agent.Activations[0].String())
	require.Equal(t, solver.RMSProp, c.Agent.Solver.Type())
	require.Equal(t, 32, c.Agent.BatchSize())
	require.Equal(t, 100000, c.Agent.ExpReplay.MaxReplayCapacity,
		"unset values keep their defaults")
	require.Equal(t, 1000, c.EpisodeCutoff)
}

func TestLoadConfigIntegersOverrideDefaults(t *testing.T) {
	files := map[string]string{
		"config.yaml": "maxEpisodes: 10\nagent:\n  learnEvery: 2\n",
		"config.yml":  "maxEpisodes: 10\nagent:\n  learnEvery: 2\n",
		"config.json": `{"maxEpisodes": 10, "agent": {"learnEvery": 2}}`,
	}

	dir := t.TempDir()
	for name, contents := range files {
		t.Run(name, func(t *testing.T) {
			filename := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(filename, []byte(contents), 0o644))

			c, err := LoadConfig(filename)
			require.NoError(t, err)
			require.Equal(t, 10, c.MaxEpisodes)
			require.Equal(t, 2, c.Agent.LearnEvery)
			require.Equal(t, DefaultConfig().Agent.TargetUpdateInterval,
				c.Agent.TargetUpdateInterval)
		})
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("LUNARDQN_MAXEPISODES", "7")
	t.Setenv("LUNARDQN_AGENT_LEARNEVERY", "2")

	c, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, 7, c.MaxEpisodes)
	require.Equal(t, 2, c.Agent.LearnEvery)
}

func TestLoadConfigInvalid(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(filename,
		[]byte(`{"discount": 1.5}`), 0o644))

	_, err := LoadConfig(filename)
	require.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())

	c.SolvedWindow = 0
	require.Error(t, c.Validate())

	c = DefaultConfig()
	c.Epsilon.Type = "cosine"
	require.Error(t, c.Validate())

	c = DefaultConfig()
	c.Epsilon.Start = 1.5
	require.Error(t, c.Validate())

	c = DefaultConfig()
	c.Agent.LearnEvery = 0
	require.Error(t, c.Validate())
}
