// Package types defines the core data types shared by the accumulator
// cache, the sample encoder and the writer loop.
//
// Key types:
//   - Sample: a single measurement bound for an RRD file
//   - TypeSchema: names each of a sample's value slots and its kind
package types
