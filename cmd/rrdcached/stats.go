package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/xtxerr/rrdcached/internal/history"
	"github.com/xtxerr/rrdcached/internal/opstats"
)

// eventHooks fans the single onEvent callback core.Init accepts out to
// the two diagnostic consumers a cache/writer state transition feeds:
// the in-memory history ring, and the batch-size/queue-dwell
// percentile trackers.
type eventHooks struct {
	ring  *history.Ring
	stats *opstats.Stats

	mu       sync.Mutex
	enqueued map[string]time.Time
}

func newEventHooks(ring *history.Ring, stats *opstats.Stats) *eventHooks {
	return &eventHooks{ring: ring, stats: stats, enqueued: make(map[string]time.Time)}
}

func (h *eventHooks) onEvent(kind, filename string, valuesNum int, detail string) {
	now := time.Now()
	h.ring.Push(history.Event{
		Time:      now,
		Filename:  filename,
		Kind:      kind,
		ValuesNum: valuesNum,
		Detail:    detail,
	})

	switch kind {
	case "enqueued", "promoted":
		h.mu.Lock()
		h.enqueued[filename] = now
		h.mu.Unlock()

	case "written", "write_failed":
		h.mu.Lock()
		start, ok := h.enqueued[filename]
		delete(h.enqueued, filename)
		h.mu.Unlock()

		if ok {
			h.stats.QueueDwell.Observe(float64(now.Sub(start).Milliseconds()))
		}
		if kind == "written" {
			h.stats.BatchSize.Observe(float64(valuesNum))
		}
	}
}

func (h *eventHooks) logSnapshot(log *slog.Logger) {
	snap := h.stats.Snapshot()
	log.Info("write path stats",
		"batch_count", snap.BatchSize.Count, "batch_avg", snap.BatchSize.Avg, "batch_p99", snap.BatchSize.P99,
		"dwell_p50_ms", snap.QueueDwell.P50, "dwell_p99_ms", snap.QueueDwell.P99)
}
