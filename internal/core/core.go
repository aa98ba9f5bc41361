// Package core implements the host-facing contract: Init, Write,
// Flush and Shutdown, tying together the encoder, cache, queue and
// writer loop packages into the single owned context the design notes
// recommend in place of process-wide singletons.
package core

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/xtxerr/rrdcached/internal/cache"
	"github.com/xtxerr/rrdcached/internal/encode"
	"github.com/xtxerr/rrdcached/internal/errors"
	"github.com/xtxerr/rrdcached/internal/logging"
	"github.com/xtxerr/rrdcached/internal/queue"
	"github.com/xtxerr/rrdcached/internal/rrdlib"
	"github.com/xtxerr/rrdcached/internal/types"
	"github.com/xtxerr/rrdcached/internal/writer"
)

// Config carries the config keys the design's external parser is
// responsible for producing; Core treats them as read-only after Init.
type Config struct {
	DataDir      string
	CacheTimeout int64
	CacheFlush   int64
	Create       rrdlib.CreateConfig
}

// normalizeDataDir strips trailing slashes, per the config contract.
func normalizeDataDir(dir string) string {
	return strings.TrimRight(dir, "/")
}

// Core is the single owned context that replaces the process-wide
// singletons of the design this package generalizes: one cache, one
// queue, one writer loop, all reachable only through this struct.
type Core struct {
	cfg     Config
	cache   *cache.Cache
	queue   *queue.Queue
	loop    *writer.Loop
	updater rrdlib.Updater
	creator rrdlib.Creator

	running atomic.Bool
}

// EventFunc is shared with cache.EventFunc/writer.EventFunc so a
// single hook can observe both the accumulator's and the writer's
// transitions; Init wires the same func into both.
type EventFunc = cache.EventFunc

// Init constructs a Core: creates the cache, derives the effective
// timeouts, and spawns the writer loop. The returned Core owns a
// background goroutine until Shutdown is called.
func Init(cfg Config, updater rrdlib.Updater, creator rrdlib.Creator, onEvent EventFunc) *Core {
	cfg.DataDir = normalizeDataDir(cfg.DataDir)

	q := queue.New()
	c := cache.New(q, cfg.CacheTimeout, cfg.CacheFlush, cache.EventFunc(onEvent))
	loop := writer.New(q, c, updater, writer.EventFunc(onEvent))

	core := &Core{
		cfg:     cfg,
		cache:   c,
		queue:   q,
		loop:    loop,
		updater: updater,
		creator: creator,
	}

	core.running.Store(true)
	go loop.Run()
	return core
}

// Write stats the target file, creates it via the collaborator on
// first sight, and inserts the encoded sample into the accumulator
// cache. Mirrors the host contract's write(schema, sample) operation.
func (co *Core) Write(schema *types.TypeSchema, sample *types.Sample) error {
	if !co.running.Load() {
		return errors.ErrNotRunning
	}

	filename, err := encode.EncodeFilename(co.cfg.DataDir, sample)
	if err != nil {
		return err
	}

	exists, err := rrdlib.Stat(filename)
	if err != nil {
		return err
	}
	if !exists {
		if co.creator == nil {
			return errors.Wrapf(errors.ErrWriteFailed, "no file at %s and no creator configured", filename)
		}
		if err := co.creator.Create(filename, schema, sample, co.cfg.Create); err != nil {
			return errors.Wrapf(errors.ErrWriteFailed, "create %s: %v", filename, err)
		}
	}

	token, err := encode.EncodeUpdate(schema, sample)
	if err != nil {
		return err
	}

	return co.cache.Insert(filename, token, sample.Time)
}

// Flush implements the host's flush(age_threshold, identifier?): a
// full sweep when identifier is empty, a targeted flush otherwise. A
// null cache (before Init has completed or after Shutdown) is a no-op
// success, matching the host contract's shutdown-safety guarantee.
func (co *Core) Flush(ageThreshold int64, identifier string) error {
	if !co.running.Load() {
		return nil
	}

	if identifier == "" {
		co.cache.Sweep(ageThreshold)
		return nil
	}

	filename := identifier + ".rrd"
	if co.cfg.DataDir != "" {
		filename = fmt.Sprintf("%s/%s", co.cfg.DataDir, filename)
	}
	return co.cache.FlushOne(ageThreshold, filename)
}

// Shutdown runs the two-phase drain: force every non-empty entry into
// the queue, signal the writer, and block until it has fully drained
// and exited. Idempotent: a second call after the first has already
// drained the writer is a no-op.
func (co *Core) Shutdown() {
	if !co.running.CompareAndSwap(true, false) {
		return
	}

	log := logging.Component("core")
	log.Info("shutdown: sweeping remaining entries")
	co.cache.Sweep(-1)

	co.queue.Shutdown()
	co.loop.Wait()
	log.Info("shutdown: writer drained")
}

// QueueDepth exposes the dispatch queue's current length, for the
// backpressure controller and operational stats — neither of which
// may take the cache or queue lock themselves.
func (co *Core) QueueDepth() int {
	return co.queue.Len()
}

// CacheEntries reports how many filenames the accumulator cache is
// currently tracking, queued or not. Diagnostic only.
func (co *Core) CacheEntries() int {
	return co.cache.Len()
}

// PendingFiles lists the filenames currently sitting in the dispatch
// queue, front to back. Backs the control socket's LIST command.
func (co *Core) PendingFiles() []string {
	return co.queue.Snapshot()
}
