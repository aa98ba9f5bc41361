// Package opstats tracks operational percentiles for the write path —
// batch size delivered per write and the time from a file's enqueue
// (or latest promotion) until its write completes — using the same DDSketch percentile
// approach the teacher's per-series aggregator uses. Everything here
// is read-only diagnostics: nothing in the cache/queue/writer path
// reads from opstats or waits on it.
package opstats

import (
	"math"
	"sync"

	"github.com/DataDog/sketches-go/ddsketch"
)

// Tracker maintains running statistics with percentile estimation for
// one named measurement (e.g. "batch_size" or "queue_dwell_ms").
type Tracker struct {
	mu sync.Mutex

	count int64
	sum   float64
	min   float64
	max   float64

	sketch *ddsketch.DDSketch
}

// NewTracker creates a Tracker with the given relative accuracy
// (0.01 is the default the teacher's aggregator uses).
func NewTracker(accuracy float64) *Tracker {
	t := &Tracker{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
	if sketch, err := ddsketch.NewDefaultDDSketch(accuracy); err == nil {
		t.sketch = sketch
	}
	return t
}

// Observe records one value.
func (t *Tracker) Observe(value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count++
	t.sum += value
	if value < t.min {
		t.min = value
	}
	if value > t.max {
		t.max = value
	}
	if t.sketch != nil {
		t.sketch.Add(value)
	}
}

// Snapshot is a point-in-time summary of a Tracker.
type Snapshot struct {
	Count int64
	Sum   float64
	Avg   float64
	Min   float64
	Max   float64
	P50   float64
	P90   float64
	P99   float64
}

// Snapshot returns the current statistics, including percentile
// estimates if a sketch is active.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{Count: t.count, Sum: t.sum}
	if t.count == 0 {
		return s
	}
	s.Avg = t.sum / float64(t.count)
	s.Min = t.min
	s.Max = t.max

	if t.sketch != nil {
		s.P50, _ = t.sketch.GetValueAtQuantile(0.50)
		s.P90, _ = t.sketch.GetValueAtQuantile(0.90)
		s.P99, _ = t.sketch.GetValueAtQuantile(0.99)
	}
	return s
}

// Stats bundles the two write-path measurements the daemon tracks:
// how many tokens land in a single RRD update call, and how long a
// file takes from enqueue (or latest promotion) to a finished write.
type Stats struct {
	BatchSize  *Tracker
	QueueDwell *Tracker
}

// NewStats builds a Stats with 1% relative accuracy sketches, the
// same default the teacher's per-series aggregator uses.
func NewStats() *Stats {
	return &Stats{
		BatchSize:  NewTracker(0.01),
		QueueDwell: NewTracker(0.01),
	}
}

// Snapshot summarizes both trackers together.
type StatsSnapshot struct {
	BatchSize  Snapshot
	QueueDwell Snapshot
}

// Snapshot returns a point-in-time summary of both trackers.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		BatchSize:  s.BatchSize.Snapshot(),
		QueueDwell: s.QueueDwell.Snapshot(),
	}
}
