package core

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/xtxerr/rrdcached/internal/errors"
	"github.com/xtxerr/rrdcached/internal/rrdlib"
	"github.com/xtxerr/rrdcached/internal/types"
)

type recordingUpdater struct {
	mu    sync.Mutex
	calls map[string][][]string
}

func newRecordingUpdater() *recordingUpdater {
	return &recordingUpdater{calls: make(map[string][][]string)}
}

func (u *recordingUpdater) Update(filename string, tokens []string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	cp := make([]string, len(tokens))
	copy(cp, tokens)
	u.calls[filename] = append(u.calls[filename], cp)
	return nil
}

func (u *recordingUpdater) batches(filename string) [][]string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[filename]
}

var noopCreator = rrdlib.CreatorFunc(func(filename string, schema *types.TypeSchema, sample *types.Sample, cfg rrdlib.CreateConfig) error {
	return nil
})

func schemaFor(name string, kinds ...types.ValueKind) *types.TypeSchema {
	s := &types.TypeSchema{Name: name}
	for i, k := range kinds {
		s.DataSources = append(s.DataSources, types.DataSource{Name: string(rune('a' + i)), Kind: k})
	}
	return s
}

func TestWriteThenShutdownDrainsToLibrary(t *testing.T) {
	dir := t.TempDir()
	up := newRecordingUpdater()
	co := Init(Config{DataDir: dir, CacheTimeout: 0, CacheFlush: 0}, up, noopCreator, nil)

	schema := schemaFor("cpu", types.Gauge)
	sample := &types.Sample{
		Time:   time.Unix(1000, 0),
		Host:   "h",
		Plugin: "cpu",
		Type:   "cpu",
		Values: []types.Value{{Kind: types.Gauge, Gauge: 42.5}},
	}

	if err := co.Write(schema, sample); err != nil {
		t.Fatalf("Write: %v", err)
	}

	co.Shutdown()

	filename := filepath.Join(dir, "h/cpu/cpu.rrd")
	batches := up.batches(filename)
	if len(batches) != 1 || len(batches[0]) != 1 || batches[0][0] != "1000:42.5" {
		t.Fatalf("batches for %s = %v, want one batch [1000:42.5]", filename, batches)
	}
}

func TestWriteCreatesFileOnFirstSight(t *testing.T) {
	dir := t.TempDir()
	up := newRecordingUpdater()
	var created []string
	creator := rrdlib.CreatorFunc(func(filename string, schema *types.TypeSchema, sample *types.Sample, cfg rrdlib.CreateConfig) error {
		created = append(created, filename)
		return nil
	})

	co := Init(Config{DataDir: dir}, up, creator, nil)
	schema := schemaFor("cpu", types.Gauge)
	sample := &types.Sample{Time: time.Unix(1, 0), Host: "h", Plugin: "cpu", Type: "cpu", Values: []types.Value{{Kind: types.Gauge, Gauge: 1}}}

	if err := co.Write(schema, sample); err != nil {
		t.Fatal(err)
	}
	co.Shutdown()

	if len(created) != 1 {
		t.Fatalf("creator called %d times, want 1", len(created))
	}
}

func TestWriteSkipsCreatorWhenFileExists(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "h/cpu"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "h/cpu/cpu.rrd"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	up := newRecordingUpdater()
	called := false
	creator := rrdlib.CreatorFunc(func(filename string, schema *types.TypeSchema, sample *types.Sample, cfg rrdlib.CreateConfig) error {
		called = true
		return nil
	})

	co := Init(Config{DataDir: dir}, up, creator, nil)
	schema := schemaFor("cpu", types.Gauge)
	sample := &types.Sample{Time: time.Unix(1, 0), Host: "h", Plugin: "cpu", Type: "cpu", Values: []types.Value{{Kind: types.Gauge, Gauge: 1}}}
	if err := co.Write(schema, sample); err != nil {
		t.Fatal(err)
	}
	co.Shutdown()

	if called {
		t.Fatal("creator invoked for a file that already existed")
	}
}

func TestFlushWithIdentifierPromotesTargetedFile(t *testing.T) {
	dir := t.TempDir()
	up := newRecordingUpdater()
	co := Init(Config{DataDir: dir}, up, noopCreator, nil)

	schema := schemaFor("cpu", types.Gauge)
	for _, host := range []string{"a", "b"} {
		sample := &types.Sample{Time: time.Unix(1000, 0), Host: host, Plugin: "cpu", Type: "cpu", Values: []types.Value{{Kind: types.Gauge, Gauge: 1}}}
		if err := co.Write(schema, sample); err != nil {
			t.Fatal(err)
		}
	}

	if err := co.Flush(0, "a/cpu/cpu"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	co.Shutdown()

	if len(up.batches(filepath.Join(dir, "a/cpu/cpu.rrd"))) != 1 {
		t.Fatal("targeted flush did not deliver a.rrd's batch")
	}
}

func TestShutdownWithNoPendingEntriesReturnsPromptly(t *testing.T) {
	up := newRecordingUpdater()
	co := Init(Config{}, up, noopCreator, nil)

	done := make(chan struct{})
	go func() {
		co.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return promptly with an empty cache")
	}
}

func TestWriteAfterShutdownReturnsErrNotRunning(t *testing.T) {
	up := newRecordingUpdater()
	co := Init(Config{}, up, noopCreator, nil)
	co.Shutdown()

	schema := schemaFor("cpu", types.Gauge)
	sample := &types.Sample{Time: time.Unix(1, 0), Host: "h", Plugin: "cpu", Type: "cpu", Values: []types.Value{{Kind: types.Gauge, Gauge: 1}}}

	if err := co.Write(schema, sample); !errors.Is(err, errors.ErrNotRunning) {
		t.Fatalf("Write after Shutdown: err = %v, want ErrNotRunning", err)
	}
}

func TestFlushAfterShutdownSucceedsImmediately(t *testing.T) {
	up := newRecordingUpdater()
	co := Init(Config{}, up, noopCreator, nil)
	co.Shutdown()

	if err := co.Flush(0, ""); err != nil {
		t.Fatalf("Flush after Shutdown: %v, want nil", err)
	}
	if err := co.Flush(0, "h/cpu/cpu"); err != nil {
		t.Fatalf("targeted Flush after Shutdown: %v, want nil", err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	up := newRecordingUpdater()
	co := Init(Config{}, up, noopCreator, nil)

	done := make(chan struct{})
	go func() {
		co.Shutdown()
		co.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second Shutdown call did not return promptly")
	}
}
