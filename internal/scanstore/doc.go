// Package scanstore persists synthesized scans in SQLite.
//
// The schema is managed by golang-migrate from migrations embedded in the
// binary. Range arrays are stored as little-endian float64 blobs.
package scanstore
