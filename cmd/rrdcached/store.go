package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xtxerr/rrdcached/internal/rrdlib"
	"github.com/xtxerr/rrdcached/internal/types"
)

// fileRRDStore is the daemon's reference storage boundary: it models
// each RRD file as an append-only log of update tokens, one line per
// token, with a header line recording the schema and create
// parameters. No Go binding for librrd exists among this daemon's
// reference stack, so this stands in for it; swapping in a cgo rrd
// binding only touches this file, since it speaks the same
// rrdlib.Updater/Creator contract the writer loop already calls.
type fileRRDStore struct {
	mu sync.Mutex
}

func newFileRRDStore() (rrdlib.Updater, rrdlib.Creator) {
	s := &fileRRDStore{}
	return rrdlib.NewSerializedUpdater(s.update), rrdlib.CreatorFunc(s.create)
}

func (s *fileRRDStore) create(filename string, schema *types.TypeSchema, sample *types.Sample, cfg rrdlib.CreateConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer f.Close()

	dsNames := make([]string, len(schema.DataSources))
	for i, ds := range schema.DataSources {
		dsNames[i] = fmt.Sprintf("%s:%s", ds.Name, ds.Kind)
	}

	header := fmt.Sprintf("# rrd type=%s ds=%s step=%d heartbeat=%d rows=%d timespans=%v xff=%.3f\n",
		schema.Name, strings.Join(dsNames, ","), cfg.StepSize, cfg.HeartBeat, cfg.RRARows, cfg.RRATimespan, cfg.XFF)
	_, err = f.WriteString(header)
	return err
}

func (s *fileRRDStore) update(argv []string) error {
	if len(argv) < 2 {
		return fmt.Errorf("update: argv too short")
	}
	filename := argv[1]
	tokens := argv[2:]

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, tok := range tokens {
		if _, err := fmt.Fprintln(w, tok); err != nil {
			return err
		}
	}
	return w.Flush()
}
