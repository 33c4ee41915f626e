package progressbar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, 10, 4)

	p.Increment()
	require.Equal(t, 0.25, p.Progress())

	for i := 0; i < 10; i++ {
		p.Increment()
	}
	require.Equal(t, 1.0, p.Progress())
	require.Equal(t, 10, strings.Count(p.String(), "█"))
}

func TestDisplayStatus(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, 4, 2)
	p.Increment()
	p.SetStatus("avg: %.1f", 12.5)
	p.Display()
	p.Close()

	out := buf.String()
	require.Contains(t, out, "|██  |")
	require.Contains(t, out, "50.00%")
	require.Contains(t, out, "avg: 12.5")
}
