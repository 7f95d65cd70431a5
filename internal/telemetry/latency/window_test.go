package latency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Percentile(t *testing.T) {
	w := NewWindow(10)
	assert.Equal(t, 0.0, w.Percentile(0.5))

	for i := 1; i <= 5; i++ {
		w.Record(time.Duration(i) * time.Millisecond)
	}
	assert.Equal(t, 5, w.Count())
	assert.InDelta(t, 3.0, w.Percentile(0.5), 1e-9)
	assert.InDelta(t, 1.0, w.Percentile(0), 1e-9)
	assert.InDelta(t, 5.0, w.Percentile(1), 1e-9)
	assert.InDelta(t, 4.5, w.Percentile(0.875), 1e-9)
}

func TestWindow_Rolls(t *testing.T) {
	w := NewWindow(3)
	for i := 1; i <= 5; i++ {
		w.Record(time.Duration(i) * time.Millisecond)
	}
	// Only 3, 4 and 5 remain
	assert.Equal(t, 3, w.Count())
	assert.InDelta(t, 3.0, w.Percentile(0), 1e-9)
	assert.InDelta(t, 4.0, w.Percentile(0.5), 1e-9)
}

func TestTracker_Stats(t *testing.T) {
	tr := NewTracker(0)
	tr.Record("score", 2*time.Millisecond)
	tr.Record("normalize", time.Millisecond)
	tr.Record("score", 4*time.Millisecond)

	stats := tr.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "normalize", stats[0].Step)
	assert.Equal(t, "score", stats[1].Step)
	assert.Equal(t, 2, stats[1].Count)
	assert.InDelta(t, 3.0, stats[1].P50, 1e-9)
}
