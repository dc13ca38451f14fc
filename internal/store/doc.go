// Package store provides a SQLite-backed cache of encoded MIR bodies.
//
// Each row holds one body, keyed by item, promoted index, channel and
// phase. Two channels exist:
//   - incremental: the same-crate cache, every field kept
//   - metadata: cross-crate metadata, crate-local payloads cleared
//
// Payloads are the mircodec encoding compressed with snappy. The
// fingerprint is the xxhash64 of the uncompressed encoding and is checked
// on every read; writes whose fingerprint already matches are skipped.
//
// # Ordering
//
// seq is a logical clock bumped on every changed write, never a
// timestamp. List returns rows ORDER BY seq ASC, name COLLATE BINARY ASC.
//
// # Schema
//
// The bodies table lives in schema.sql. Later additions are applied on
// Open according to PRAGMA user_version. A cache already past the known
// version is opened as is.
package store
