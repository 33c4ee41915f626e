package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/lunardqn/experiment"
	"github.com/samuelfneumann/lunardqn/experiment/tracker"
	"github.com/stretchr/testify/require"
)

func smallConfig(t *testing.T) experiment.Config {
	t.Helper()
	c := experiment.DefaultConfig()
	c.MaxEpisodes = 2
	c.EpisodeCutoff = 25
	c.CheckpointEvery = 1
	c.OutDir = t.TempDir()
	c.Agent.PolicyLayers = []int{8}
	c.Agent.Biases = []bool{true}
	c.Agent.Activations = c.Agent.Activations[:1]
	c.Agent.ExpReplay.SampleSize = 4
	c.Agent.ExpReplay.MinReplayCapacity = 4
	c.Agent.ExpReplay.MaxReplayCapacity = 100
	require.NoError(t, c.Validate())
	return c
}

func TestTrainWritesOutputs(t *testing.T) {
	c := smallConfig(t)
	require.NoError(t, train(context.Background(), c))

	for _, name := range []string{configFile, returnsFile, lengthsFile,
		plotFile, checkpointFile, finalFile} {
		_, err := os.Stat(c.Path(name))
		require.NoError(t, err, name)
	}
	_, err := os.Stat(c.Path(solvedFile))
	require.True(t, os.IsNotExist(err))

	returns, err := tracker.LoadFData(c.Path(returnsFile))
	require.NoError(t, err)
	require.Len(t, returns, 2)

	saved, err := experiment.LoadConfig(c.Path(configFile))
	require.NoError(t, err)
	require.Equal(t, c.Agent.PolicyLayers, saved.Agent.PolicyLayers)
	require.Equal(t, c.EpisodeCutoff, saved.EpisodeCutoff)
}

func TestEvalCommand(t *testing.T) {
	c := smallConfig(t)
	require.NoError(t, train(context.Background(), c))

	cmd := evalCmd()
	cmd.SetArgs([]string{
		"--config", c.Path(configFile),
		"--checkpoint", c.Path(finalFile),
		"--episodes", "2",
		"--render", filepath.Join(c.OutDir, "frames"),
	})
	require.NoError(t, cmd.Execute())

	frames, err := filepath.Glob(filepath.Join(c.OutDir, "frames", "*.png"))
	require.NoError(t, err)
	require.NotEmpty(t, frames)
}

func TestEvalFindsTrainingConfig(t *testing.T) {
	c := smallConfig(t)
	require.NoError(t, train(context.Background(), c))
	require.Equal(t, c.Path(configFile), trainingConfig(c.Path(finalFile)))

	// The checkpoint's architecture differs from the default one
	cmd := evalCmd()
	cmd.SetArgs([]string{
		"--checkpoint", c.Path(finalFile),
		"--episodes", "1",
	})
	require.NoError(t, cmd.Execute())

	require.Equal(t, "", trainingConfig(filepath.Join(t.TempDir(), "x.bin")))
}

func TestEvalCommandMissingCheckpoint(t *testing.T) {
	cmd := evalCmd()
	cmd.SetArgs([]string{"--checkpoint", filepath.Join(t.TempDir(), "none")})
	cmd.SetErr(&bytes.Buffer{})
	require.Error(t, cmd.Execute())
}

func TestPlotCommand(t *testing.T) {
	c := smallConfig(t)
	require.NoError(t, train(context.Background(), c))

	out := filepath.Join(c.OutDir, "plot.png")
	cmd := plotCmd()
	cmd.SetArgs([]string{"--data", c.Path(returnsFile), "--out", out,
		"--window", "2"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(out)
	require.NoError(t, err)
}
