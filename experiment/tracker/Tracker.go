// Package tracker implements Trackers, which track and save data
// generated during an experiment
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/samuelfneumann/lunardqn/timestep"
)

// Tracker keeps track of experiment data and saves the data after the
// experiment has finished
type Tracker interface {
	Track(t ts.TimeStep)
	Save() error
}

// save gob encodes data to filename
func save(filename string, data interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		return fmt.Errorf("save: could not encode data: %v", err)
	}
	return nil
}

// load gob decodes the data in filename into data
func load(filename string, data interface{}) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("load: could not open data file: %v", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(data); err != nil {
		return fmt.Errorf("load: could not decode data: %v", err)
	}
	return nil
}

// LoadFData loads and returns float data saved by a Tracker, such as
// the episodic returns saved by Return
func LoadFData(filename string) ([]float64, error) {
	var data []float64
	err := load(filename, &data)
	return data, err
}

// LoadIData loads and returns integer data saved by a Tracker, such as
// the episode lengths saved by EpisodeLength
func LoadIData(filename string) ([]int, error) {
	var data []int
	err := load(filename, &data)
	return data, err
}
