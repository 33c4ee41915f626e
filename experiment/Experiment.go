// Package experiment implements functionality for running an experiment
package experiment

import (
	"context"

	"github.com/samuelfneumann/lunardqn/experiment/tracker"
)

// Experiment runs an agent on an environment. Run runs episodes until
// the experiment's limits are reached, while RunEpisode runs a single
// episode.
//
// Each TimeStep the experiment generates is sent to its Trackers using
// the Tracker's Track() method. Save then saves all tracked data to
// disk. This is usually performed after an experiment has been run.
type Experiment interface {
	Run(ctx context.Context) error

	// RunEpisode returns whether the experiment has finished
	RunEpisode(ctx context.Context) (bool, error)

	// Register adds a Tracker to the (possibly already running)
	// experiment
	Register(t tracker.Tracker)

	// Save saves all tracked data to disk
	Save() error
}
