package expreplay

import (
	"errors"
	"fmt"
)

var (
	errEmptyCache          = errors.New("buffer is empty")
	errInsufficientSamples = errors.New("insufficient samples in buffer")
)

// ExpReplayError records an error that occurred while operating on an
// experience replay buffer
type ExpReplayError struct {
	Op  string
	Err error
}

func (e *ExpReplayError) Error() string {
	return fmt.Sprintf("%v: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// IsEmptyBuffer returns whether err was caused by operating on an
// empty buffer
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, errEmptyCache)
}

// IsInsufficientSamples returns whether err was caused by sampling a
// buffer which holds fewer than its minimum capacity of transitions
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, errInsufficientSamples)
}
