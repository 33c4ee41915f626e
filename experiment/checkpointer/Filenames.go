package checkpointer

import (
	"fmt"
	"time"
)

// FilenameEnumerator returns a function which returns filenames with
// an increasing integer suffix, starting at start+1. The filename
// parameter is the full filename with its path, and extension is
// appended after the counter.
func FilenameEnumerator(start int, filename, extension string) func() string {
	i := start
	return func() string {
		i++
		return fmt.Sprintf("%v%v%v", filename, i, extension)
	}
}

// FileTimer returns a function which suffixes filename with the Unix
// time in nanoseconds
func FileTimer(filename, extension string) func() string {
	return func() string {
		return fmt.Sprintf("%v-%d%v", filename, time.Now().UnixNano(),
			extension)
	}
}

// Fixed returns a function which always returns filename, so that each
// checkpoint overwrites the last
func Fixed(filename string) func() string {
	return func() string { return filename }
}
