package latency

import (
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultWindow is the number of samples kept per step
const DefaultWindow = 256

// Window keeps the most recent durations of one pipeline step in a ring
// buffer and answers percentile queries over them.
type Window struct {
	mu      sync.RWMutex
	samples []float64 // milliseconds
	next    int
	full    bool
}

// NewWindow creates a window holding up to size samples
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindow
	}
	return &Window{samples: make([]float64, size)}
}

// Record adds one duration
func (w *Window) Record(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.next] = float64(d.Nanoseconds()) / 1e6
	w.next = (w.next + 1) % len(w.samples)
	if w.next == 0 {
		w.full = true
	}
}

// Count returns the number of samples held
func (w *Window) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size()
}

func (w *Window) size() int {
	if w.full {
		return len(w.samples)
	}
	return w.next
}

// Percentile interpolates the p-th percentile (0..1) in milliseconds
func (w *Window) Percentile(p float64) float64 {
	w.mu.RLock()
	n := w.size()
	values := make([]float64, n)
	copy(values, w.samples[:n])
	w.mu.RUnlock()

	if n == 0 {
		return 0
	}
	sort.Float64s(values)

	p = math.Max(0, math.Min(1, p))
	idx := p * float64(n-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	if lo == hi {
		return values[lo]
	}
	frac := idx - float64(lo)
	return values[lo]*(1-frac) + values[hi]*frac
}

// Stats is the percentile summary of one step
type Stats struct {
	Step  string  `json:"step"`
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
	P99   float64 `json:"p99_ms"`
	Count int     `json:"count"`
}

// Tracker holds one window per step name
type Tracker struct {
	mu      sync.RWMutex
	size    int
	windows map[string]*Window
}

// NewTracker creates a tracker whose windows hold size samples each
func NewTracker(size int) *Tracker {
	return &Tracker{size: size, windows: make(map[string]*Window)}
}

// Record adds a duration for step, creating its window on first use
func (t *Tracker) Record(step string, d time.Duration) {
	t.mu.RLock()
	w, ok := t.windows[step]
	t.mu.RUnlock()

	if !ok {
		t.mu.Lock()
		if w, ok = t.windows[step]; !ok {
			w = NewWindow(t.size)
			t.windows[step] = w
		}
		t.mu.Unlock()
	}
	w.Record(d)
}

// Stats returns the summary of every step, sorted by step name
func (t *Tracker) Stats() []Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Stats, 0, len(t.windows))
	for step, w := range t.windows {
		out = append(out, Stats{
			Step:  step,
			P50:   w.Percentile(0.50),
			P95:   w.Percentile(0.95),
			P99:   w.Percentile(0.99),
			Count: w.Count(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out
}
