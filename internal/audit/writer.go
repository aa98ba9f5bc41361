// Package audit persists the in-memory event history to Parquet files
// so operators can query further back than the ring buffer's
// capacity. It is diagnostic-only: nothing in the write path depends
// on the audit trail existing, and losing it loses no correctness
// guarantee (the design's durability non-goal covers the cache, not
// this trail, but the same "volatile is fine" spirit applies here).
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/rrdcached/internal/history"
	"github.com/xtxerr/rrdcached/internal/logging"
)

// EventRow is history.Event flattened into Parquet's column types.
type EventRow struct {
	TimeUnixMs int64  `parquet:"time_unix_ms"`
	Filename   string `parquet:"filename,zstd"`
	Kind       string `parquet:"kind,zstd"`
	ValuesNum  int32  `parquet:"values_num"`
	QueueDepth int32  `parquet:"queue_depth"`
	Detail     string `parquet:"detail,optional,zstd"`
}

// EventToRow converts one history.Event to its Parquet row form.
func EventToRow(e history.Event) EventRow {
	return EventRow{
		TimeUnixMs: e.Time.UnixMilli(),
		Filename:   e.Filename,
		Kind:       e.Kind,
		ValuesNum:  int32(e.ValuesNum),
		QueueDepth: int32(e.QueueDepth),
		Detail:     e.Detail,
	}
}

// Writer appends batches of events to a single Parquet file. Unlike
// the ring buffer it drains, a Writer is not safe to close and reopen
// mid-batch: callers create one per output file (see Flusher for the
// rotation policy).
type Writer struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[EventRow]
	rowCount int64
	closed   bool
}

// NewWriter creates a Parquet writer at path, compressed with zstd
// column-by-column via the struct tags above.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create audit file: %w", err)
	}
	return &Writer{
		path:   path,
		file:   f,
		writer: parquet.NewGenericWriter[EventRow](f),
	}, nil
}

// Write appends events as rows. A nil or empty slice is a no-op.
func (w *Writer) Write(events []history.Event) error {
	if len(events) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errWriterClosed
	}

	rows := make([]EventRow, len(events))
	for i, e := range events {
		rows[i] = EventToRow(e)
	}
	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write audit rows: %w", err)
	}
	w.rowCount += int64(n)
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close audit writer: %w", err)
	}
	return w.file.Close()
}

// RowCount reports how many rows have been written so far.
func (w *Writer) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file this writer targets.
func (w *Writer) Path() string {
	return w.path
}

var errWriterClosed = fmt.Errorf("audit writer is closed")

// Flusher periodically drains a history.Ring into a fresh Parquet
// file under dir, one file per flush interval. It owns no lock the
// cache/queue/writer path ever touches: history.Ring.Drain is the
// only point of contact, and that takes only the ring's own mutex.
type Flusher struct {
	ring     *history.Ring
	dir      string
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewFlusher builds a Flusher that drains ring into dir every
// interval.
func NewFlusher(ring *history.Ring, dir string, interval time.Duration) *Flusher {
	return &Flusher{
		ring:     ring,
		dir:      dir,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run drains the ring on a ticker until Stop is called. Intended to
// be launched with `go flusher.Run()`.
func (f *Flusher) Run() {
	defer close(f.done)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.flushOnce()
		case <-f.stop:
			f.flushOnce() // final drain so nothing buffered is lost
			return
		}
	}
}

func (f *Flusher) flushOnce() {
	events := f.ring.Drain()
	if len(events) == 0 {
		return
	}

	path := filepath.Join(f.dir, fmt.Sprintf("audit-%d.parquet", events[0].Time.UnixNano()))
	log := logging.Component("audit")

	w, err := NewWriter(path)
	if err != nil {
		log.Warn("could not open audit file, dropping batch", "path", path, "error", err, "events", len(events))
		return
	}
	defer w.Close()

	if err := w.Write(events); err != nil {
		log.Warn("audit write failed, batch dropped", "path", path, "error", err)
	}
}

// Stop signals Run to perform one last drain and exit, then blocks
// until it has done so.
func (f *Flusher) Stop() {
	close(f.stop)
	<-f.done
}
