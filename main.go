// Command lunardqn trains and evaluates a Deep Q-Network agent on the
// lunar lander environment
package main

import (
	"github.com/aunum/log"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "lunardqn",
		Short:        "Train a DQN agent to land on the moon",
		SilenceUsage: true,
	}
	root.AddCommand(trainCmd(), evalCmd(), plotCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
