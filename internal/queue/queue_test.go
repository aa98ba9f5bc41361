package queue

import (
	"testing"
	"time"
)

func TestEnqueueBackFIFOOrder(t *testing.T) {
	q := New()
	q.EnqueueBack("a.rrd")
	q.EnqueueBack("b.rrd")
	q.EnqueueBack("c.rrd")

	for _, want := range []string{"a.rrd", "b.rrd", "c.rrd"} {
		got, ok := q.DequeueBlocking()
		if !ok || got != want {
			t.Fatalf("DequeueBlocking() = %q, %v; want %q, true", got, ok, want)
		}
	}
}

func TestEnqueueFrontJumpsQueue(t *testing.T) {
	q := New()
	q.EnqueueBack("a.rrd")
	q.EnqueueBack("b.rrd")
	q.EnqueueFront("c.rrd")

	got, _ := q.DequeueBlocking()
	if got != "c.rrd" {
		t.Fatalf("DequeueBlocking() = %q, want c.rrd", got)
	}
}

func TestEnqueueDeduplicates(t *testing.T) {
	q := New()
	q.EnqueueBack("a.rrd")
	q.EnqueueBack("a.rrd")
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

func TestPromoteMovesToFront(t *testing.T) {
	q := New()
	q.EnqueueBack("a.rrd")
	q.EnqueueBack("b.rrd")

	if !q.Promote("b.rrd") {
		t.Fatal("Promote(b.rrd) = false, want true")
	}
	got, _ := q.DequeueBlocking()
	if got != "b.rrd" {
		t.Fatalf("DequeueBlocking() = %q, want b.rrd", got)
	}
}

func TestPromoteMissingReturnsFalse(t *testing.T) {
	q := New()
	if q.Promote("missing.rrd") {
		t.Fatal("Promote() on absent filename = true, want false")
	}
}

func TestDequeueBlockingWaitsForItem(t *testing.T) {
	q := New()
	done := make(chan string, 1)
	go func() {
		v, ok := q.DequeueBlocking()
		if !ok {
			done <- ""
			return
		}
		done <- v
	}()

	time.Sleep(20 * time.Millisecond)
	q.EnqueueBack("late.rrd")

	select {
	case v := <-done:
		if v != "late.rrd" {
			t.Fatalf("got %q, want late.rrd", v)
		}
	case <-time.After(time.Second):
		t.Fatal("DequeueBlocking never returned")
	}
}

func TestShutdownUnblocksEmptyQueue(t *testing.T) {
	q := New()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.DequeueBlocking()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Shutdown()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("DequeueBlocking returned ok=true after shutdown on empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("DequeueBlocking never returned after Shutdown")
	}
}

func TestShutdownDrainsRemainingItemsFirst(t *testing.T) {
	q := New()
	q.EnqueueBack("a.rrd")
	q.Shutdown()

	got, ok := q.DequeueBlocking()
	if !ok || got != "a.rrd" {
		t.Fatalf("DequeueBlocking() after shutdown = %q, %v; want a.rrd, true", got, ok)
	}

	_, ok = q.DequeueBlocking()
	if ok {
		t.Fatal("DequeueBlocking() after drain = true, want false")
	}
}

func TestLenReflectsQueueSize(t *testing.T) {
	q := New()
	if q.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", q.Len())
	}
	q.EnqueueBack("a.rrd")
	q.EnqueueBack("b.rrd")
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
}
