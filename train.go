package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/aunum/log"
	"github.com/samuelfneumann/lunardqn/experiment"
	"github.com/samuelfneumann/lunardqn/experiment/checkpointer"
	"github.com/samuelfneumann/lunardqn/experiment/tracker"
	"github.com/spf13/cobra"
)

// Files written to the output directory by train
const (
	configFile     = "config.json"
	returnsFile    = "returns.bin"
	lengthsFile    = "lengths.bin"
	plotFile       = "returns.png"
	checkpointFile = "checkpoint.bin"
	solvedFile     = "solved.bin"
	finalFile      = "final.bin"
)

func trainCmd() *cobra.Command {
	var (
		configPath string
		episodes   int
		seed       uint64
		out        string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a DQN agent on the lunar lander",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := experiment.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("episodes") {
				c.MaxEpisodes = episodes
			}
			if cmd.Flags().Changed("seed") {
				c.Seed = seed
			}
			if cmd.Flags().Changed("out") {
				c.OutDir = out
			}
			if err := c.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt)
			defer stop()
			return train(ctx, c)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"JSON or YAML configuration file")
	cmd.Flags().IntVarP(&episodes, "episodes", "n", 0,
		"maximum number of training episodes")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory")
	return cmd
}

func train(ctx context.Context, c experiment.Config) error {
	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return fmt.Errorf("train: %v", err)
	}
	if err := writeConfig(c); err != nil {
		return fmt.Errorf("train: %v", err)
	}

	env, err := c.CreateEnv(c.Seed)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	a, err := c.Agent.CreateAgent(env, c.Seed)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	if closer, ok := a.(io.Closer); ok {
		defer closer.Close()
	}
	saver, ok := a.(checkpointer.Serializable)
	if !ok {
		return fmt.Errorf("train: agent %T cannot be saved", a)
	}

	var checkpointers []checkpointer.Checkpointer
	if c.CheckpointEvery > 0 {
		ckpt, err := checkpointer.NewNEpisode(c.CheckpointEvery, saver,
			checkpointer.Fixed(c.Path(checkpointFile)))
		if err != nil {
			return fmt.Errorf("train: %v", err)
		}
		checkpointers = append(checkpointers, ckpt)
	}

	returns := tracker.NewReturn(c.Path(returnsFile))
	lengths := tracker.NewEpisodeLength(c.Path(lengthsFile))
	o, err := experiment.NewOnline(env, a, c.MaxEpisodes, c.MaxSteps,
		[]tracker.Tracker{returns, lengths}, checkpointers)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}

	s, err := c.Epsilon.Create()
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	if err := o.SetSchedule(s); err != nil {
		return fmt.Errorf("train: %v", err)
	}
	err = o.SetSolved(c.SolvedWindow, c.SolvedScore, func() error {
		return saver.Save(c.Path(solvedFile))
	})
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	o.SetProgress(os.Stderr, c.LogEvery)

	log.Infof("training for at most %d episodes, writing to %v",
		c.MaxEpisodes, c.OutDir)
	runErr := o.Run(ctx)
	if runErr != nil {
		log.Errorf("training stopped early: %v", runErr)
	}

	if err := o.Save(); err != nil {
		return fmt.Errorf("train: %v", err)
	}
	if err := saver.Save(c.Path(finalFile)); err != nil {
		return fmt.Errorf("train: %v", err)
	}
	if len(returns.Returns()) > 0 {
		err := tracker.Plot(returns.Returns(), c.SolvedWindow,
			c.Path(plotFile))
		if err != nil {
			return fmt.Errorf("train: %v", err)
		}
	}

	log.Successf("finished %d episodes (%d steps), average return %.2f",
		o.Episodes(), o.Steps(), o.AverageReturn())
	return runErr
}

// writeConfig saves the configuration next to the experiment's output
// so that the checkpoints can be evaluated later
func writeConfig(c experiment.Config) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.Path(configFile), data, 0o644)
}
