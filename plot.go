package main

import (
	"github.com/aunum/log"
	"github.com/samuelfneumann/lunardqn/experiment/tracker"
	"github.com/spf13/cobra"
)

func plotCmd() *cobra.Command {
	var (
		data   string
		out    string
		window int
	)

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Plot the episodic returns saved during training",
		RunE: func(*cobra.Command, []string) error {
			returns, err := tracker.LoadFData(data)
			if err != nil {
				return err
			}
			if err := tracker.Plot(returns, window, out); err != nil {
				return err
			}
			log.Infof("plotted %d episodes to %v", len(returns), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", returnsFile,
		"returns saved by train")
	cmd.Flags().StringVarP(&out, "out", "o", plotFile, "output PNG")
	cmd.Flags().IntVarP(&window, "window", "w", 100,
		"moving average window")
	return cmd
}
