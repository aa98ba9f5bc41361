package types

import (
	"fmt"
	"time"
)

// ValueKind indicates how a data source slot behaves over time. The RRD
// cache only ever forwards counter and gauge values to the underlying
// library; any other kind is rejected by the encoder.
type ValueKind int

const (
	// Gauge is a point-in-time measurement (temperature, queue depth, ...).
	Gauge ValueKind = iota
	// Counter is a monotonically increasing counter, rendered as an
	// unsigned decimal in update tokens.
	Counter
	// Derive, Absolute and Text mirror data source kinds that exist in
	// the wider RRD ecosystem but that this cache does not support.
	// They exist so encode.EncodeUpdate can name the offending kind in
	// an UNSUPPORTED_TYPE error instead of just rejecting silently.
	Derive
	Absolute
	Text
)

// String returns a human-readable representation of the kind.
func (k ValueKind) String() string {
	switch k {
	case Gauge:
		return "gauge"
	case Counter:
		return "counter"
	case Derive:
		return "derive"
	case Absolute:
		return "absolute"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// Value is one measurement slot of a Sample. Only Counter and Gauge are
// ever accepted by the encoder; the two payload fields are read
// according to Kind.
type Value struct {
	Kind    ValueKind
	Counter uint64
	Gauge   float64
}

// DataSource names one value slot of a TypeSchema.
type DataSource struct {
	Name string
	Kind ValueKind
}

// TypeSchema describes the shape of samples for a given type name: the
// ordered list of data sources a Sample of that type must carry values
// for. It is supplied by the host, not derived from the Sample itself,
// so encode.EncodeUpdate can catch a Sample whose Type disagrees with
// the schema it was written against.
type TypeSchema struct {
	Name        string
	DataSources []DataSource
}

// Len returns the number of data sources in the schema.
func (t *TypeSchema) Len() int {
	return len(t.DataSources)
}

// Sample represents a single measurement bound for one RRD file.
// Samples are immutable once constructed; the write path never mutates
// a Sample it is given.
type Sample struct {
	Time time.Time

	Host           string
	Plugin         string
	PluginInstance string // optional, suppresses the "-instance" suffix when empty
	Type           string
	TypeInstance   string // optional, suppresses the "-instance" suffix when empty

	Values []Value
}

// UnixTime returns the sample's timestamp in whole seconds, the
// granularity update tokens are expressed in.
func (s *Sample) UnixTime() int64 {
	return s.Time.Unix()
}

// Key returns the namespace-free identity of the sample's series, ahead
// of directory prefixing. It is not the cache lookup key -- that is the
// full filename produced by encode.EncodeFilename -- but is useful for
// logging and for the poller that produces samples.
func (s *Sample) Key() string {
	if s.TypeInstance != "" {
		return fmt.Sprintf("%s/%s/%s-%s", s.Host, s.pluginSegment(), s.Type, s.TypeInstance)
	}
	return fmt.Sprintf("%s/%s/%s", s.Host, s.pluginSegment(), s.Type)
}

func (s *Sample) pluginSegment() string {
	if s.PluginInstance != "" {
		return s.Plugin + "-" + s.PluginInstance
	}
	return s.Plugin
}
