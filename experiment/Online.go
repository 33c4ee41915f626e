package experiment

import (
	"context"
	"fmt"
	"io"

	"github.com/aunum/log"
	"github.com/gammazero/deque"
	"github.com/samuelfneumann/lunardqn/agent"
	env "github.com/samuelfneumann/lunardqn/environment"
	"github.com/samuelfneumann/lunardqn/experiment/checkpointer"
	"github.com/samuelfneumann/lunardqn/experiment/tracker"
	"github.com/samuelfneumann/lunardqn/schedule"
	ts "github.com/samuelfneumann/lunardqn/timestep"
	"github.com/samuelfneumann/lunardqn/utils/progressbar"
)

// Online is an Experiment that trains an agent online. After each
// episode, the agent's exploration is annealed by the schedule, if
// one is set and the agent is an agent.Explorer.
type Online struct {
	env.Environment
	agent.Agent

	maxEpisodes  int
	maxSteps     int // <= 0 for no limit
	episodes     int
	currentSteps int

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer
	schedule      schedule.Schedule

	// Returns of the most recent episodes, used to decide whether the
	// task is solved
	window       *deque.Deque[float64]
	windowSize   int
	windowSum    float64
	solvedScore  float64
	onSolved     func() error
	solved       bool
	solveEnabled bool

	episodeReturn float64
	logEvery      int
	bar           *progressbar.ProgressBar
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The experiment runs for at most
// maxEpisodes episodes and maxSteps total steps, where maxSteps <= 0
// places no limit on the total number of steps.
func NewOnline(e env.Environment, a agent.Agent, maxEpisodes, maxSteps int,
	t []tracker.Tracker, c []checkpointer.Checkpointer) (*Online, error) {
	if maxEpisodes < 1 {
		return nil, fmt.Errorf("newOnline: maximum episodes must be "+
			"positive \n\thave(%v)", maxEpisodes)
	}

	return &Online{
		Environment:   e,
		Agent:         a,
		maxEpisodes:   maxEpisodes,
		maxSteps:      maxSteps,
		trackers:      t,
		checkpointers: c,
		window:        deque.New[float64](),
		logEvery:      1,
	}, nil
}

// SetSchedule sets the schedule used to anneal the agent's exploration
// rate. The agent must be an agent.Explorer.
func (o *Online) SetSchedule(s schedule.Schedule) error {
	explorer, ok := o.Agent.(agent.Explorer)
	if !ok {
		return fmt.Errorf("setSchedule: agent %T cannot set its "+
			"exploration rate", o.Agent)
	}
	o.schedule = s
	explorer.SetEpsilon(s.Value())
	return nil
}

// SetSolved stops the experiment once the average return over the
// last window episodes is at least score, calling onSolved (if not
// nil) when this happens
func (o *Online) SetSolved(window int, score float64,
	onSolved func() error) error {
	if window < 1 {
		return fmt.Errorf("setSolved: window must be positive \n\t"+
			"have(%v)", window)
	}
	o.windowSize = window
	o.solvedScore = score
	o.onSolved = onSolved
	o.solveEnabled = true
	return nil
}

// SetProgress displays a progress bar on out, logging every logEvery
// episodes. A nil out disables the progress bar.
func (o *Online) SetProgress(out io.Writer, logEvery int) {
	if logEvery > 0 {
		o.logEvery = logEvery
	}
	if out != nil {
		o.bar = progressbar.New(out, 40, o.maxEpisodes)
	}
}

// Register registers a Tracker with the Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// Episodes returns the number of finished episodes
func (o *Online) Episodes() int {
	return o.episodes
}

// Steps returns the total number of steps taken
func (o *Online) Steps() int {
	return o.currentSteps
}

// Solved returns whether the solved criterion has been met
func (o *Online) Solved() bool {
	return o.solved
}

// AverageReturn returns the average return over the most recent
// episodes in the solved window
func (o *Online) AverageReturn() float64 {
	if o.window.Len() == 0 {
		return 0
	}
	return o.windowSum / float64(o.window.Len())
}

func (o *Online) done() bool {
	if o.solved || o.episodes >= o.maxEpisodes {
		return true
	}
	return o.maxSteps > 0 && o.currentSteps >= o.maxSteps
}

// RunEpisode runs a single episode of the experiment and returns
// whether the experiment has finished
func (o *Online) RunEpisode(ctx context.Context) (bool, error) {
	if o.done() {
		return true, nil
	}

	step, err := o.Environment.Reset()
	if err != nil {
		return true, fmt.Errorf("runEpisode: %v", err)
	}
	if err := o.Agent.ObserveFirst(step); err != nil {
		return true, fmt.Errorf("runEpisode: %v", err)
	}
	o.track(step)
	o.episodeReturn = 0

	for !step.Last() {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		if o.maxSteps > 0 && o.currentSteps >= o.maxSteps {
			break
		}
		o.currentSteps++

		action, err := o.Agent.SelectAction(step)
		if err != nil {
			return true, fmt.Errorf("runEpisode: %v", err)
		}
		step, _, err = o.Environment.Step(action)
		if err != nil {
			return true, fmt.Errorf("runEpisode: %v", err)
		}
		o.episodeReturn += step.Reward
		o.track(step)

		if err := o.Agent.Observe(action, step); err != nil {
			return true, fmt.Errorf("runEpisode: %v", err)
		}
		if err := o.Agent.Step(); err != nil {
			return true, fmt.Errorf("runEpisode: %v", err)
		}
		if err := o.checkpoint(step); err != nil {
			return true, fmt.Errorf("runEpisode: %v", err)
		}
	}
	o.Agent.EndEpisode()

	if step.Last() {
		if err := o.endEpisode(); err != nil {
			return true, fmt.Errorf("runEpisode: %v", err)
		}
	}

	return o.done(), nil
}

// endEpisode records the return of a finished episode, anneals
// exploration and checks whether the task has been solved
func (o *Online) endEpisode() error {
	o.episodes++

	o.window.PushBack(o.episodeReturn)
	o.windowSum += o.episodeReturn
	if o.windowSize > 0 && o.window.Len() > o.windowSize {
		o.windowSum -= o.window.PopFront()
	}

	if o.schedule != nil {
		o.Agent.(agent.Explorer).SetEpsilon(o.schedule.Next())
	}

	o.report()

	if o.solveEnabled && o.window.Len() == o.windowSize &&
		o.AverageReturn() >= o.solvedScore {
		o.solved = true
		log.Successf("solved in %d episodes: average return %.2f over the "+
			"last %d episodes", o.episodes, o.AverageReturn(), o.windowSize)
		if o.onSolved != nil {
			return o.onSolved()
		}
	}
	return nil
}

func (o *Online) report() {
	epsilon := -1.0
	if explorer, ok := o.Agent.(agent.Explorer); ok {
		epsilon = explorer.Epsilon()
	}

	if o.bar != nil {
		o.bar.Increment()
		o.bar.SetStatus("episode %d | average return %.2f | ε %.3f",
			o.episodes, o.AverageReturn(), epsilon)
		o.bar.Display()
	}

	if o.episodes%o.logEvery == 0 {
		log.Infof("episode %d | steps %d | return %.2f | average return "+
			"%.2f | ε %.3f", o.episodes, o.currentSteps, o.episodeReturn,
			o.AverageReturn(), epsilon)
	}
}

// Run runs episodes until the experiment is finished or ctx is
// cancelled
func (o *Online) Run(ctx context.Context) error {
	if o.bar != nil {
		defer o.bar.Close()
	}

	for {
		finished, err := o.RunEpisode(ctx)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		if finished {
			return nil
		}
	}
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each
// Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tr := range o.trackers {
		tr.Track(t)
	}
}

func (o *Online) checkpoint(t ts.TimeStep) error {
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(t); err != nil {
			return err
		}
	}
	return nil
}
