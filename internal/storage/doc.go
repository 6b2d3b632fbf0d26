// Package storage defines the persistence interfaces for the Loreweave engine.
//
// It provides a high-level abstraction for storing world aggregates and
// timeline events. Implementations of these interfaces (SQLite, in-memory)
// live in subpackages.
//
// # Error Types
//
// The package defines common error types used across storage implementations:
//   - ErrNotFound: Indicates a requested record is missing.
package storage
