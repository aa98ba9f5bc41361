// Package rrdlib adapts the external RRD library that actually owns
// file contents on disk. The library itself is out of scope for this
// module (§6 of the design this package implements): callers plug in
// whatever binding is available, and this package only supplies the
// two calling conventions the writer loop needs — a possibly-reentrant
// Updater and a Creator invoked the first time a filename is seen.
package rrdlib

import (
	"os"
	"sync"

	"github.com/xtxerr/rrdcached/internal/errors"
	"github.com/xtxerr/rrdcached/internal/types"
)

// Updater pushes one batch of update tokens for filename to the
// underlying RRD file. Implementations must treat concurrent calls
// for different files as safe; the writer loop never calls Update for
// the same file twice concurrently regardless.
type Updater interface {
	Update(filename string, tokens []string) error
}

// UpdateFunc is the non-reentrant binding signature: an argv-style
// call taking "update", the filename, and the tokens, exactly as the
// non-thread-safe library path's own command line expects. Only
// serializedUpdater calls this shape.
type UpdateFunc func(argv []string) error

// ReentrantUpdateFunc is the update_r(filename, template, argc, argv)
// binding signature: filename and template are passed as their own
// parameters, never folded into argv. This design never uses DS
// reordering, so template is always empty.
type ReentrantUpdateFunc func(filename, template string, argv []string) error

// reentrantUpdater wraps a ReentrantUpdateFunc that is safe to call
// from multiple goroutines at once (the library itself serializes, or
// has no shared state). This is the fast path: no extra locking here.
type reentrantUpdater struct {
	fn ReentrantUpdateFunc
}

// NewReentrantUpdater wraps fn, calling it directly with no
// additional locking. Use this when the underlying library documents
// itself as thread-safe and exposes the update_r(filename, template,
// argc, argv) entry point.
func NewReentrantUpdater(fn ReentrantUpdateFunc) Updater {
	return &reentrantUpdater{fn: fn}
}

func (u *reentrantUpdater) Update(filename string, tokens []string) error {
	if err := u.fn(filename, "", tokens); err != nil {
		return errors.Wrapf(errors.ErrWriteFailed, "update %s: %v", filename, err)
	}
	return nil
}

// serializedUpdater wraps a non-reentrant UpdateFunc behind a single
// mutex, matching the design's "library mutex" for non-thread-safe
// RRD bindings that expose only the argv-style update(argc, argv)
// entry point and therefore need "update"+filename folded into argv.
// Both this and reentrantUpdater are observationally equivalent from
// the writer loop's point of view: exactly one update per file is
// ever in flight, whichever path is chosen.
type serializedUpdater struct {
	mu sync.Mutex
	fn UpdateFunc
}

// NewSerializedUpdater wraps fn behind a mutex so that only one call
// into the library is ever in flight, for libraries that are not
// safe to call concurrently.
func NewSerializedUpdater(fn UpdateFunc) Updater {
	return &serializedUpdater{fn: fn}
}

func (u *serializedUpdater) Update(filename string, tokens []string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	argv := make([]string, 0, len(tokens)+2)
	argv = append(argv, "update", filename)
	argv = append(argv, tokens...)
	if err := u.fn(argv); err != nil {
		return errors.Wrapf(errors.ErrWriteFailed, "update %s: %v", filename, err)
	}
	return nil
}

// Creator materializes a brand-new RRD file the first time a filename
// is written to. It is the "file-creation helper" the design treats
// as an external collaborator: this module never decides on RRA
// layout itself.
type Creator interface {
	Create(filename string, schema *types.TypeSchema, sample *types.Sample, cfg CreateConfig) error
}

// CreateConfig carries the config keys the design passes through
// verbatim to the creation collaborator.
type CreateConfig struct {
	StepSize    int
	HeartBeat   int
	RRARows     int
	RRATimespan []int
	XFF         float64
}

// CreatorFunc adapts a plain function to the Creator interface.
type CreatorFunc func(filename string, schema *types.TypeSchema, sample *types.Sample, cfg CreateConfig) error

func (f CreatorFunc) Create(filename string, schema *types.TypeSchema, sample *types.Sample, cfg CreateConfig) error {
	return f(filename, schema, sample, cfg)
}

// Stat wraps os.Stat, returning ErrNotRegularFile if the path exists
// but isn't a plain file — the one case the write path must refuse
// before calling insert, per the host contract.
func Stat(filename string) (exists bool, err error) {
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !info.Mode().IsRegular() {
		return true, errors.ErrNotRegularFile
	}
	return true, nil
}
