// Package queue implements the dispatch queue: a FIFO of filenames
// waiting for the writer loop, with a promote-to-head operation for
// interactive flush requests. It never touches sample values or the
// accumulator cache directly — filenames are the only thing that
// crosses the cache/queue boundary.
package queue

import (
	"container/list"
	"sync"
)

// Queue is a FIFO of pending filenames (a container/list plus a
// filename index), guarded by its own lock and a condition variable
// the writer loop blocks on. The fixed lock order throughout this
// daemon is cache lock first, queue lock second: the cache package
// calls into Queue while holding its own lock (insert, sweep, targeted
// flush), and Queue never calls back into the cache.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    *list.List // of string filenames, front = next to write
	index    map[string]*list.Element
	shutdown bool
}

// New creates an empty Queue.
func New() *Queue {
	q := &Queue{
		items: list.New(),
		index: make(map[string]*list.Element),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// EnqueueBack appends filename to the tail of the queue, the normal
// case when a cache entry ages past the flush timeout. A filename
// already queued is a no-op: the queue holds at most one entry per
// filename, matching the "already queued" flag on the cache entry.
func (q *Queue) EnqueueBack(filename string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.index[filename]; ok {
		return
	}
	el := q.items.PushBack(filename)
	q.index[filename] = el
	q.cond.Signal()
}

// EnqueueFront pushes filename to the head of the queue, used when an
// operator explicitly asks to flush one identifier: it should be
// serviced before anything queued by the age-based timer.
func (q *Queue) EnqueueFront(filename string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.index[filename]; ok {
		return
	}
	el := q.items.PushFront(filename)
	q.index[filename] = el
	q.cond.Signal()
}

// Promote moves an already-queued filename to the head of the queue.
// Reports whether filename was found (and therefore moved); if not
// found the caller is expected to enqueue it fresh instead.
func (q *Queue) Promote(filename string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	el, ok := q.index[filename]
	if !ok {
		return false
	}
	q.items.MoveToFront(el)
	return true
}

// Contains reports whether filename currently has an entry in the
// queue (queued but not yet stolen by the writer).
func (q *Queue) Contains(filename string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.index[filename]
	return ok
}

// DequeueBlocking removes and returns the filename at the head of the
// queue, blocking until one is available or the queue is shut down.
// The second return value is false only on shutdown with an empty
// queue, telling the writer loop to exit.
func (q *Queue) DequeueBlocking() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Len() == 0 && !q.shutdown {
		q.cond.Wait()
	}
	if q.items.Len() == 0 {
		return "", false
	}
	front := q.items.Front()
	filename := front.Value.(string)
	q.items.Remove(front)
	delete(q.index, filename)
	return filename, true
}

// Shutdown marks the queue as shutting down and wakes any goroutine
// blocked in DequeueBlocking. The writer loop keeps draining until the
// queue is empty, then observes the shutdown flag and exits.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shutdown = true
	q.cond.Broadcast()
}

// Len reports the number of filenames currently queued. Used by the
// backpressure controller and by operational stats; it takes only the
// queue lock and is safe to call from any goroutine at any time.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Snapshot returns the filenames currently queued, front to back.
// Diagnostic only — the returned slice is a point-in-time copy and may
// be stale by the time a caller acts on it.
func (q *Queue) Snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, q.items.Len())
	for el := q.items.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(string))
	}
	return out
}
