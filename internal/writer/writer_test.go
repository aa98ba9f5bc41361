package writer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xtxerr/rrdcached/internal/cache"
	"github.com/xtxerr/rrdcached/internal/queue"
)

type fakeUpdater struct {
	mu    sync.Mutex
	calls map[string][]string
	fail  map[string]bool
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{calls: make(map[string][]string), fail: make(map[string]bool)}
}

func (f *fakeUpdater) Update(filename string, tokens []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[filename] {
		return errors.New("boom")
	}
	cp := make([]string, len(tokens))
	copy(cp, tokens)
	f.calls[filename] = cp
	return nil
}

func (f *fakeUpdater) tokensFor(filename string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[filename]
}

// Scenario 6 (partial): a full drain delivers every buffered batch to
// the RRD library before the loop exits.
func TestWriterDrainsAllQueuedEntries(t *testing.T) {
	q := queue.New()
	c := cache.New(q, 0, 0, nil)
	up := newFakeUpdater()
	l := New(q, c, up, nil)

	now := time.Unix(1000, 0)
	for _, f := range []string{"a.rrd", "b.rrd", "c.rrd"} {
		if err := c.Insert(f, "1000:1", now); err != nil {
			t.Fatal(err)
		}
	}
	c.Sweep(-1) // force all three into the queue

	go l.Run()
	q.Shutdown()
	l.Wait()

	for _, f := range []string{"a.rrd", "b.rrd", "c.rrd"} {
		if got := up.tokensFor(f); len(got) != 1 || got[0] != "1000:1" {
			t.Fatalf("file %s: tokens = %v, want [1000:1]", f, got)
		}
	}
}

func TestWriterDoesNotRetryFailedUpdate(t *testing.T) {
	q := queue.New()
	c := cache.New(q, 0, 0, nil)
	up := newFakeUpdater()
	up.fail["bad.rrd"] = true

	var events []string
	l := New(q, c, up, func(kind, filename string, valuesNum int, detail string) {
		events = append(events, kind+":"+filename)
	})

	if err := c.Insert("bad.rrd", "1000:1", time.Unix(1000, 0)); err != nil {
		t.Fatal(err)
	}
	c.Sweep(-1)

	go l.Run()
	q.Shutdown()
	l.Wait()

	if got := up.tokensFor("bad.rrd"); got != nil {
		t.Fatalf("failed update recorded tokens: %v", got)
	}
	found := false
	for _, e := range events {
		if e == "write_failed:bad.rrd" {
			found = true
		}
	}
	if !found {
		t.Fatalf("events = %v, want write_failed:bad.rrd", events)
	}
}
