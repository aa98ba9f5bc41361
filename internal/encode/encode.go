// Package encode derives the two strings the rest of the pipeline keys
// on: the canonical RRD filename for a sample, and the colon-separated
// update token pushed to the RRD library. Both are pure functions of
// their inputs — no locking, no I/O.
package encode

import (
	"strconv"
	"strings"

	"github.com/xtxerr/rrdcached/internal/errors"
	"github.com/xtxerr/rrdcached/internal/types"
)

// maxBufferLen bounds both the filename and the update token, matching
// the 512-byte stack buffers of the surrounding ecosystem this cache
// was modeled on.
const maxBufferLen = 512

// EncodeFilename derives the canonical path for a sample:
// {datadir/}host/plugin{-plugin_instance}/type{-type_instance}.rrd
//
// datadir has already had trailing slashes stripped by the config
// loader; an empty datadir omits the leading directory component.
func EncodeFilename(datadir string, sample *types.Sample) (string, error) {
	var b strings.Builder

	if datadir != "" {
		b.WriteString(datadir)
		b.WriteByte('/')
	}

	b.WriteString(sample.Host)
	b.WriteByte('/')

	if sample.PluginInstance != "" {
		b.WriteString(sample.Plugin)
		b.WriteByte('-')
		b.WriteString(sample.PluginInstance)
	} else {
		b.WriteString(sample.Plugin)
	}
	b.WriteByte('/')

	if sample.TypeInstance != "" {
		b.WriteString(sample.Type)
		b.WriteByte('-')
		b.WriteString(sample.TypeInstance)
	} else {
		b.WriteString(sample.Type)
	}
	b.WriteString(".rrd")

	if b.Len() > maxBufferLen {
		return "", errors.ErrEncodeOverflow
	}
	return b.String(), nil
}

// EncodeUpdate renders a sample as the update token
// "{unix_seconds}:{v0}:{v1}:...", validating it against schema first.
// Counters render as unsigned decimal, gauges in default
// floating-point form (strconv's shortest round-tripping form).
func EncodeUpdate(schema *types.TypeSchema, sample *types.Sample) (string, error) {
	if schema.Name != sample.Type {
		return "", errors.Wrapf(errors.ErrSchemaMismatch, "sample type %q vs schema %q", sample.Type, schema.Name)
	}
	if len(sample.Values) != schema.Len() {
		return "", errors.Wrapf(errors.ErrSchemaMismatch, "sample has %d values, schema %q wants %d", len(sample.Values), schema.Name, schema.Len())
	}

	var b strings.Builder
	b.WriteString(strconv.FormatInt(sample.UnixTime(), 10))

	for _, v := range sample.Values {
		b.WriteByte(':')
		switch v.Kind {
		case types.Counter:
			b.WriteString(strconv.FormatUint(v.Counter, 10))
		case types.Gauge:
			b.WriteString(strconv.FormatFloat(v.Gauge, 'g', -1, 64))
		default:
			return "", errors.Wrapf(errors.ErrUnsupportedType, "value kind %s", v.Kind)
		}

		if b.Len() > maxBufferLen {
			return "", errors.ErrEncodeOverflow
		}
	}

	return b.String(), nil
}
