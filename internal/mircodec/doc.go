// Package mircodec implements the binary encoding of MIR bodies.
//
// Two channels share one format. The incremental cache keeps every field;
// cross-crate metadata is written with ClearCrossCrate set, which drops
// crate-local payloads wrapped in mir.ClearCrossCrate. A decoder must use the
// same setting as the encoder that produced its input.
//
// Values are appended to a byte slice, integers as varints, following the
// append-style marshaling used throughout the storage layer.
package mircodec
