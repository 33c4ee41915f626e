package tracker

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// MovingAverage returns the average of each trailing window of data.
// The first window-1 elements average over however many elements
// precede them.
func MovingAverage(data []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	avg := make([]float64, len(data))
	for i := range data {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		avg[i] = stat.Mean(data[start:i+1], nil)
	}
	return avg
}

func toXYs(data []float64) plotter.XYs {
	xys := make(plotter.XYs, len(data))
	for i, y := range data {
		xys[i].X = float64(i + 1)
		xys[i].Y = y
	}
	return xys
}

// Plot plots the episodic returns and their moving average over window
// episodes, saving the figure as a PNG at filename
func Plot(returns []float64, window int, filename string) error {
	if len(returns) == 0 {
		return fmt.Errorf("plot: no returns to plot")
	}

	p := plot.New()
	p.Title.Text = "Episodic Return"
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = "Return"

	raw, err := plotter.NewLine(toXYs(returns))
	if err != nil {
		return fmt.Errorf("plot: %v", err)
	}
	raw.LineStyle.Color = color.RGBA{R: 120, G: 160, B: 220, A: 255}

	avg, err := plotter.NewLine(toXYs(MovingAverage(returns, window)))
	if err != nil {
		return fmt.Errorf("plot: %v", err)
	}
	avg.LineStyle.Color = color.RGBA{R: 220, G: 60, B: 40, A: 255}
	avg.LineStyle.Width = vg.Points(2)

	p.Add(plotter.NewGrid(), raw, avg)
	p.Legend.Add("return", raw)
	p.Legend.Add(fmt.Sprintf("%d-episode average", window), avg)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 5*vg.Inch, filename); err != nil {
		return fmt.Errorf("plot: %v", err)
	}
	return nil
}
