package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/aunum/log"
	"github.com/samuelfneumann/lunardqn/agent/deepq"
	"github.com/samuelfneumann/lunardqn/experiment"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

func evalCmd() *cobra.Command {
	var (
		configPath string
		checkpoint string
		episodes   int
		seed       uint64
		renderDir  string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a trained agent greedily",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				configPath = trainingConfig(checkpoint)
			}
			c, err := experiment.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				c.Seed = seed
			}

			env, err := c.CreateEnv(c.Seed)
			if err != nil {
				return err
			}
			a, err := deepq.New(env, c.Agent, c.Seed)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Load(checkpoint); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt)
			defer stop()

			returns, err := experiment.Evaluate(ctx, env, a, episodes,
				renderDir)
			if err != nil {
				return err
			}
			report(os.Stdout, returns)
			mean, std := stat.MeanStdDev(returns, nil)
			log.Successf("average return over %d episodes: %.2f ± %.2f",
				len(returns), mean, std)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"configuration the checkpoint was trained with (default: "+
			configFile+" next to the checkpoint)")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "",
		"saved agent weights")
	cmd.Flags().IntVarP(&episodes, "episodes", "n", 10,
		"number of evaluation episodes")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&renderDir, "render", "",
		"directory to save rendered frames to")
	if err := cmd.MarkFlagRequired("checkpoint"); err != nil {
		panic(fmt.Sprintf("evalCmd: %v", err))
	}
	return cmd
}

// trainingConfig returns the configuration that train wrote next to
// checkpoint, or "" if there is none
func trainingConfig(checkpoint string) string {
	path := filepath.Join(filepath.Dir(checkpoint), configFile)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func report(w io.Writer, returns []float64) {
	for i, r := range returns {
		fmt.Fprintf(w, "episode %d: return %.2f\n", i+1, r)
	}
}
