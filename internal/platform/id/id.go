// Package id provides utilities for generating URL-safe identifiers.
//
// World identifiers are generated using UUIDv4 bytes encoded as base32
// (RFC 4648) with no padding. The resulting strings are 26 characters long,
// lowercase, and safe for use in URLs and file paths. Event and checkpoint
// identifiers are ULIDs, which sort lexicographically by creation time.
package id

import (
	"encoding/base32"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a 26-character lowercase base32 identifier derived from a
// random UUIDv4.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// NewEventID returns a ULID string for timeline events. ULIDs embed a
// millisecond timestamp so ids from one process sort in creation order.
func NewEventID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), ulid.DefaultEntropy()).String()
}

// NewCheckpointID returns a ULID string for checkpoints.
func NewCheckpointID() string {
	return NewEventID()
}
