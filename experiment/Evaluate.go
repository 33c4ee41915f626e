package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samuelfneumann/lunardqn/agent"
	env "github.com/samuelfneumann/lunardqn/environment"
)

// Renderer is an Environment which can draw its current state to an
// image file
type Renderer interface {
	Render(filename string) error
}

// Evaluate runs episodes greedy episodes of the agent on the
// environment and returns their returns. The agent is returned to
// training mode afterwards if it was training before. If renderDir is
// not empty and the environment is a Renderer, each frame is saved to
// renderDir as ep<episode>-<step>.png.
func Evaluate(ctx context.Context, e env.Environment, a agent.Agent,
	episodes int, renderDir string) ([]float64, error) {
	var renderer Renderer
	if renderDir != "" {
		var ok bool
		if renderer, ok = e.(Renderer); !ok {
			return nil, fmt.Errorf("evaluate: environment %T cannot be "+
				"rendered", e)
		}
		if err := os.MkdirAll(renderDir, 0o755); err != nil {
			return nil, fmt.Errorf("evaluate: %v", err)
		}
	}

	if !a.IsEval() {
		a.Eval()
		defer a.Train()
	}

	returns := make([]float64, 0, episodes)
	for i := 0; i < episodes; i++ {
		step, err := e.Reset()
		if err != nil {
			return returns, fmt.Errorf("evaluate: %v", err)
		}

		ret := 0.0
		for !step.Last() {
			if err := ctx.Err(); err != nil {
				return returns, err
			}
			if renderer != nil {
				name := filepath.Join(renderDir,
					fmt.Sprintf("ep%d-%04d.png", i, step.Number))
				if err := renderer.Render(name); err != nil {
					return returns, fmt.Errorf("evaluate: %v", err)
				}
			}

			action, err := a.SelectAction(step)
			if err != nil {
				return returns, fmt.Errorf("evaluate: %v", err)
			}
			step, _, err = e.Step(action)
			if err != nil {
				return returns, fmt.Errorf("evaluate: %v", err)
			}
			ret += step.Reward
		}
		a.EndEpisode()
		returns = append(returns, ret)
	}
	return returns, nil
}
