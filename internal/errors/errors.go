// Package errors consolidates the sentinel errors produced by the cache,
// queue, writer and encoder, plus small helpers for wrapping and
// classifying them.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the cache/queue/writer pipeline. Names track the
// error kinds named in the write-coalescing cache's contract.
var (
	// ErrEncodeOverflow is returned when a filename or update token would
	// exceed its bounded buffer.
	ErrEncodeOverflow = errors.New("encode: buffer would overflow")

	// ErrUnsupportedType is returned when a sample value is neither
	// counter nor gauge.
	ErrUnsupportedType = errors.New("encode: unsupported value kind")

	// ErrSchemaMismatch is returned when a sample's type name disagrees
	// with the schema it is being encoded against.
	ErrSchemaMismatch = errors.New("encode: sample type does not match schema")

	// ErrOutOfOrder is returned when an insert's timestamp does not
	// strictly exceed the entry's last accepted value.
	ErrOutOfOrder = errors.New("cache: sample time is not after last accepted value")

	// ErrAllocFailed marks an append or entry-creation failure severe
	// enough that the entry was dropped from the cache.
	ErrAllocFailed = errors.New("cache: allocation failed")

	// ErrNotFound is returned by a targeted flush for an identifier
	// that has no cache entry.
	ErrNotFound = errors.New("cache: identifier not found")

	// ErrWriteFailed is returned when the RRD library rejects an
	// update; the batch that produced it is dropped, not retried.
	ErrWriteFailed = errors.New("writer: rrd update failed")

	// ErrNotRegularFile is returned by the write path when the target
	// path exists but is not a regular file.
	ErrNotRegularFile = errors.New("write: target exists and is not a regular file")

	// ErrInvalidConfig marks a configuration validation failure.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrNotRunning is returned by operations attempted before init or
	// after shutdown.
	ErrNotRunning = errors.New("core: not running")
)

// Is is a convenience wrapper for errors.Is.
var Is = errors.Is

// As is a convenience wrapper for errors.As.
var As = errors.As

// Wrap wraps an error with additional context, or returns nil unchanged.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewNotFound builds an ErrNotFound with the offending identifier attached.
func NewNotFound(identifier string) error {
	return fmt.Errorf("%s: %w", identifier, ErrNotFound)
}

// NewInvalidConfig builds an ErrInvalidConfig for a specific field.
func NewInvalidConfig(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidConfig)
}

// ValidationErrors collects multiple configuration validation errors so
// every problem can be reported at once instead of failing on the
// first.
type ValidationErrors struct {
	Errors []error
}

// Add appends an error to the collection, ignoring nil.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField appends a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewInvalidConfig(field, reason))
}

// HasErrors reports whether any errors were collected.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors were collected, otherwise the collector
// itself as an error.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first collected error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
