// Package cache implements the accumulator cache: a per-file buffer of
// pending update tokens, keyed by filename, that coalesces bursts of
// samples into batches for the writer loop. It owns the sole
// authoritative copy of the "is this file queued" flag — the dispatch
// queue package never tracks membership on its own.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/xtxerr/rrdcached/internal/errors"
	"github.com/xtxerr/rrdcached/internal/queue"
)

// EventFunc receives a best-effort notification of a cache state
// transition. It must not block or take any lock this package might
// already hold; callers wire it to the audit/history packages, which
// only ever append to an in-memory ring.
type EventFunc func(kind, filename string, valuesNum int, detail string)

// entry is the per-file accumulator. All fields are guarded by the
// owning Cache's mutex; there is no per-entry lock.
type entry struct {
	values     []string
	firstValue int64 // unix seconds; meaningless when len(values) == 0
	lastValue  int64 // unix seconds; 0 before any insertion
	queued     bool
}

func (e *entry) empty() bool { return len(e.values) == 0 }

// Cache is the accumulator cache described by the write-coalescing
// pipeline: one mutex guards a map of filename to entry, plus the
// timestamp of the last sweep.
type Cache struct {
	mu sync.Mutex

	entries        map[string]*entry
	cacheTimeout   int64 // seconds; 0 disables age-based queueing
	flushTimeout   int64 // seconds; 0 disables the in-line sweep
	cacheFlushLast int64 // unix seconds of last sweep

	queue   *queue.Queue
	onEvent EventFunc

	nowFunc func() time.Time // overridable for tests
}

// New creates a Cache backed by q for enqueue/promote operations.
// cacheTimeout and cacheFlush are seconds, following the config keys
// of the same name; cacheTimeout < 2 disables all time-based
// queueing, matching the surrounding daemon's config semantics.
func New(q *queue.Queue, cacheTimeout, cacheFlush int64, onEvent EventFunc) *Cache {
	if cacheTimeout < 2 {
		cacheTimeout = 0
		cacheFlush = 0
	} else if cacheFlush < cacheTimeout {
		cacheFlush = cacheTimeout * 10
	}
	if onEvent == nil {
		onEvent = func(string, string, int, string) {}
	}
	c := &Cache{
		entries:      make(map[string]*entry),
		cacheTimeout: cacheTimeout,
		flushTimeout: cacheFlush,
		queue:        q,
		onEvent:      onEvent,
		nowFunc:      time.Now,
	}
	c.cacheFlushLast = c.now()
	return c
}

func (c *Cache) now() int64 { return c.nowFunc().Unix() }

// Insert appends token (produced for timestamp t) to filename's
// buffer, creating the entry if this is its first sample. It rejects
// out-of-order timestamps and enqueues the file once its buffered
// span reaches cacheTimeout.
func (c *Cache) Insert(filename, token string, t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := t.Unix()
	e, ok := c.entries[filename]
	if !ok {
		e = &entry{}
		c.entries[filename] = e
	}

	if e.lastValue >= ts {
		return errors.Wrapf(errors.ErrOutOfOrder, "file %s: insert at %d not after last %d", filename, ts, e.lastValue)
	}

	e.values = append(e.values, token)
	if len(e.values) == 1 {
		e.firstValue = ts
	}
	e.lastValue = ts
	c.onEvent("inserted", filename, len(e.values), "")

	if c.cacheTimeout > 0 && !e.queued && e.lastValue-e.firstValue >= c.cacheTimeout {
		e.queued = true
		c.queue.EnqueueBack(filename)
		c.onEvent("enqueued", filename, len(e.values), "age threshold")
	}

	if c.cacheTimeout > 0 && c.now()-c.cacheFlushLast > c.flushTimeout {
		c.sweepLocked(c.flushTimeout)
	}

	return nil
}

// Sweep runs the background pass described by the design: entries
// aged past ageThreshold are queued (if non-empty) or deleted (if
// empty). An ageThreshold of -1 forces every non-empty, non-queued
// entry into the queue regardless of age — the shutdown drain.
func (c *Cache) Sweep(ageThreshold int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(ageThreshold)
}

// sweepLocked assumes c.mu is held.
func (c *Cache) sweepLocked(ageThreshold int64) {
	now := c.now()

	filenames := make([]string, 0, len(c.entries))
	for filename := range c.entries {
		filenames = append(filenames, filename)
	}
	sort.Strings(filenames)

	var toDelete []string
	for _, filename := range filenames {
		e := c.entries[filename]
		if e.queued {
			continue
		}
		if ageThreshold >= 0 && now-e.firstValue < ageThreshold {
			continue
		}
		if !e.empty() {
			e.queued = true
			c.queue.EnqueueBack(filename)
			c.onEvent("enqueued", filename, len(e.values), "swept")
			continue
		}
		if ageThreshold >= 0 {
			toDelete = append(toDelete, filename)
		}
	}

	for _, filename := range toDelete {
		delete(c.entries, filename)
		c.onEvent("gc", filename, 0, "empty and idle")
	}

	c.cacheFlushLast = now
}

// FlushOne is the host-facing targeted flush: promote filename if
// already queued, otherwise queue it at the front if its age exceeds
// ageThreshold, otherwise leave it alone (still a success).
func (c *Cache) FlushOne(ageThreshold int64, filename string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[filename]
	if !ok {
		return errors.NewNotFound(filename)
	}

	if e.queued {
		c.queue.Promote(filename)
		c.onEvent("promoted", filename, len(e.values), "")
		return nil
	}

	if e.empty() {
		return nil
	}

	now := c.now()
	if ageThreshold >= 0 && now-e.firstValue < ageThreshold {
		return nil
	}

	e.queued = true
	c.queue.EnqueueFront(filename)
	c.onEvent("enqueued", filename, len(e.values), "flush_one")
	return nil
}

// Steal removes and returns filename's buffered tokens, resetting the
// entry to empty/unqueued while leaving lastValue intact so monotonic
// ordering still holds for the next insert. It is the writer loop's
// sole entry point into the cache and the only place invariant 3's
// QUEUED -> NONE transition happens.
func (c *Cache) Steal(filename string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[filename]
	if !ok {
		return nil
	}

	stolen := e.values
	e.values = nil
	e.queued = false
	return stolen
}

// Len reports the number of entries currently tracked, queued or not.
// Used for diagnostics only.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheTimeout and FlushTimeout expose the (possibly auto-derived)
// effective timeouts, mainly so cmd/rrdcachectl can report them.
func (c *Cache) CacheTimeout() int64 { return c.cacheTimeout }
func (c *Cache) FlushTimeout() int64 { return c.flushTimeout }
