package tracker

import ts "github.com/samuelfneumann/lunardqn/timestep"

// EpisodeLength tracks and saves the lengths of episodes in an
// experiment. If the last episode in an experiment does not finish,
// its length is not saved.
type EpisodeLength struct {
	episodeLengths []int
	filename       string
}

// NewEpisodeLength returns a new EpisodeLength Tracker which saves to
// filename
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// Track caches the episode length if t is the last timestep in an
// episode
func (e *EpisodeLength) Track(t ts.TimeStep) {
	if t.Last() {
		e.episodeLengths = append(e.episodeLengths, t.Number)
	}
}

// Lengths returns the lengths of all finished episodes
func (e *EpisodeLength) Lengths() []int {
	return e.episodeLengths
}

// Save saves the data tracked by the EpisodeLength Tracker to disk
func (e *EpisodeLength) Save() error {
	return save(e.filename, e.episodeLengths)
}
