// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar is a progress bar that is redrawn whenever Display is
// called. Progress is counted in units of work, such as episodes, and
// a free form status message may be printed after the bar.
type ProgressBar struct {
	out       io.Writer
	width     int
	max       int
	current   int
	status    string
	startTime time.Time
}

// New returns a new ProgressBar that is width characters wide and
// reaches 100% after max calls to Increment
func New(out io.Writer, width, max int) *ProgressBar {
	if max < 1 {
		max = 1
	}
	return &ProgressBar{
		out:       out,
		width:     width,
		max:       max,
		startTime: time.Now(),
	}
}

// Increment increments the internal progress counter
func (p *ProgressBar) Increment() {
	if p.current < p.max {
		p.current++
	}
}

// SetStatus sets the message printed after the bar
func (p *ProgressBar) SetStatus(format string, args ...interface{}) {
	p.status = fmt.Sprintf(format, args...)
}

// Progress returns the fraction of work completed
func (p *ProgressBar) Progress() float64 {
	return float64(p.current) / float64(p.max)
}

// String returns the current progress bar
func (p *ProgressBar) String() string {
	var bar strings.Builder
	filled := int(p.Progress() * float64(p.width))

	bar.WriteString("|")
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat(" ", p.width-filled))
	fmt.Fprintf(&bar, "| [%.2f%% | elapsed: %v]", p.Progress()*100,
		time.Since(p.startTime).Truncate(time.Second))

	if p.status != "" {
		bar.WriteString(" ")
		bar.WriteString(p.status)
	}
	return bar.String()
}

// Display redraws the progress bar over the current terminal line
func (p *ProgressBar) Display() {
	fmt.Fprintf(p.out, "\n\033[1A\033[K%v", p.String())
}

// Close moves the cursor past the progress bar
func (p *ProgressBar) Close() {
	fmt.Fprintln(p.out)
}
