package profiling

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderDisabledByDefault(t *testing.T) {
	var r Recorder
	r.Start("frame").Stop()
	assert.Empty(t, r.Stats())

	var buf bytes.Buffer
	r.Summarize(&buf)
	assert.Empty(t, buf.String())
}

func TestRecorderAggregates(t *testing.T) {
	var r Recorder
	r.Enable()

	r.record("frame", 2*time.Millisecond)
	r.record("frame", 4*time.Millisecond)
	r.record("decode", 10*time.Millisecond)
	r.Start("frame").Stop()

	stats := r.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "decode", stats[0].Name)
	assert.Equal(t, 1, stats[0].Count)

	frame := stats[1]
	assert.Equal(t, 3, frame.Count)
	assert.GreaterOrEqual(t, frame.Total, 6*time.Millisecond)
	assert.Equal(t, 4*time.Millisecond, frame.Max)

	var buf bytes.Buffer
	r.Summarize(&buf)
	assert.Contains(t, buf.String(), "decode")
	assert.Contains(t, buf.String(), "frame")
}

func TestStatMean(t *testing.T) {
	assert.Zero(t, Stat{}.Mean())
	assert.Equal(t, 3*time.Millisecond, Stat{Count: 2, Total: 6 * time.Millisecond}.Mean())
}
