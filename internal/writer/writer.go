// Package writer implements the single background worker that drains
// the dispatch queue: dequeue a filename, steal its accumulated
// tokens from the cache, push them to the RRD library, and move on. A
// failed update drops its batch and logs — nothing here retries.
package writer

import (
	"sync"

	"github.com/xtxerr/rrdcached/internal/cache"
	"github.com/xtxerr/rrdcached/internal/logging"
	"github.com/xtxerr/rrdcached/internal/queue"
	"github.com/xtxerr/rrdcached/internal/rrdlib"
)

// EventFunc mirrors cache.EventFunc: a best-effort, non-blocking
// notification hook for the audit/opstats packages.
type EventFunc func(kind, filename string, valuesNum int, detail string)

// Loop is the writer: it owns no state of its own beyond a reference
// to the cache and queue it drains, and the RRD updater it calls into.
// Exactly one Loop should run per Cache/Queue pair — the design's
// "single dedicated worker" — since the queue and cache invariants
// only hold with one drainer.
type Loop struct {
	queue   *queue.Queue
	cache   *cache.Cache
	updater rrdlib.Updater
	onEvent EventFunc

	wg sync.WaitGroup
}

// New builds a Loop over q and c, using updater to push batches to
// the RRD library. onEvent may be nil.
func New(q *queue.Queue, c *cache.Cache, updater rrdlib.Updater, onEvent EventFunc) *Loop {
	if onEvent == nil {
		onEvent = func(string, string, int, string) {}
	}
	l := &Loop{queue: q, cache: c, updater: updater, onEvent: onEvent}
	// Registered here rather than in Run so that Wait cannot return
	// before a `go loop.Run()` goroutine has been scheduled.
	l.wg.Add(1)
	return l
}

// Run drives the loop until the queue reports shutdown. Intended to
// be launched with `go loop.Run()`; callers wait on Wait (or their
// own WaitGroup) for it to exit.
func (l *Loop) Run() {
	defer l.wg.Done()

	log := logging.Component("writer")
	for {
		filename, ok := l.queue.DequeueBlocking()
		if !ok {
			log.Info("queue drained, exiting")
			return
		}

		tokens := l.cache.Steal(filename)
		if len(tokens) == 0 {
			// Invariant 3 says a queued file's entry exists and, in the
			// steady state, is non-empty; an empty steal here means the
			// entry vanished between enqueue and steal, which cannot
			// happen under the lock-ordering rule. Log and move on
			// rather than crash the one worker that drains everything.
			log.Warn("stole empty batch", "file", filename)
			continue
		}

		if err := l.updater.Update(filename, tokens); err != nil {
			log.Warn("update failed, batch dropped", "file", filename, "error", err, "values", len(tokens))
			l.onEvent("write_failed", filename, len(tokens), err.Error())
			continue
		}

		log.Debug("wrote batch", "file", filename, "values", len(tokens))
		l.onEvent("written", filename, len(tokens), "")
	}
}

// Wait blocks until Run has returned.
func (l *Loop) Wait() {
	l.wg.Wait()
}
