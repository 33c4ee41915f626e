package checkpointer

import (
	"fmt"

	ts "github.com/samuelfneumann/lunardqn/timestep"
)

// nEpisode checkpoints an object every N episodes
type nEpisode struct {
	interval int
	episodes int
	object   Serializable

	// filename returns the name of the file to save the object in.
	// Use FilenameEnumerator to save to file1.bin, file2.bin, ... or
	// FileTimer to suffix each file with the time it was saved at.
	filename func() string
}

// NewNEpisode returns a Checkpointer that saves object at the end of
// every n-th episode
func NewNEpisode(n int, object Serializable,
	filename func() string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("newNEpisode: checkpoint interval must be "+
			"positive \n\thave(%v)", n)
	}
	return &nEpisode{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the tracked object if t ends the n-th episode since
// the last checkpoint
func (n *nEpisode) Checkpoint(t ts.TimeStep) error {
	if !t.Last() {
		return nil
	}

	n.episodes++
	if n.episodes%n.interval == 0 {
		if err := n.object.Save(n.filename()); err != nil {
			return fmt.Errorf("checkpoint: %v", err)
		}
	}
	return nil
}
