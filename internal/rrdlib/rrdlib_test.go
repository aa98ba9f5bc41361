package rrdlib

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/xtxerr/rrdcached/internal/errors"
)

func TestReentrantUpdaterPassesFilenameSeparately(t *testing.T) {
	var gotFilename, gotTemplate string
	var gotArgv []string

	u := NewReentrantUpdater(func(filename, template string, argv []string) error {
		gotFilename, gotTemplate, gotArgv = filename, template, argv
		return nil
	})

	if err := u.Update("h/cpu/cpu.rrd", []string{"1000:42.5"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if gotFilename != "h/cpu/cpu.rrd" {
		t.Errorf("filename = %q, want h/cpu/cpu.rrd", gotFilename)
	}
	if gotTemplate != "" {
		t.Errorf("template = %q, want empty", gotTemplate)
	}
	if !reflect.DeepEqual(gotArgv, []string{"1000:42.5"}) {
		t.Errorf("argv = %v, want [1000:42.5] with no update/filename prepended", gotArgv)
	}
}

func TestSerializedUpdaterPrependsUpdateAndFilename(t *testing.T) {
	var gotArgv []string

	u := NewSerializedUpdater(func(argv []string) error {
		gotArgv = argv
		return nil
	})

	if err := u.Update("h/cpu/cpu.rrd", []string{"1000:42.5"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := []string{"update", "h/cpu/cpu.rrd", "1000:42.5"}
	if !reflect.DeepEqual(gotArgv, want) {
		t.Errorf("argv = %v, want %v", gotArgv, want)
	}
}

func TestSerializedUpdaterWrapsWriteFailure(t *testing.T) {
	u := NewSerializedUpdater(func(argv []string) error {
		return stderrors.New("rrd library rejected update")
	})

	err := u.Update("h/cpu/cpu.rrd", []string{"1000:1"})
	if !errors.Is(err, errors.ErrWriteFailed) {
		t.Fatalf("Update error = %v, want it to wrap ErrWriteFailed", err)
	}
}
