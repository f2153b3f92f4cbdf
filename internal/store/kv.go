// Package store provides the shared key-value stores the runner persists
// into: a persistent store that survives restarts (attempt state, deadlines)
// and a session-scoped store for submitted results. Every write is a
// full-value overwrite of a single key; there are no partial writes and no
// locking across writers (last writer wins).
package store

import (
	"context"
	"fmt"
)

// KV is the minimal key-value contract both stores satisfy.
type KV interface {
	// Get returns the raw value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the full value under key.
	Set(ctx context.Context, key, value string) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key derivation per paper id. The prefixes are part of the wire contract:
// restored state written by older builds keeps working.
const (
	sessionKeyPrefix  = "cbe-"
	deadlineKeyPrefix = "cbe-deadline-"
	resultKeyPrefix   = "cbe-result-"
	notesKeyPrefix    = "cbe-notes-"
)

// SessionKey is the persistent-store key holding attempt state for a paper.
func SessionKey(paperID string) string {
	return sessionKeyPrefix + paperID
}

// DeadlineKey is the persistent-store key holding the shared deadline for a
// paper, as epoch milliseconds.
func DeadlineKey(paperID string) string {
	return deadlineKeyPrefix + paperID
}

// ResultKey is the session-store key holding the submitted result for a
// paper.
func ResultKey(paperID string) string {
	return resultKeyPrefix + paperID
}

// NotesKey is the persistent-store key holding the scratchpad text for a
// paper.
func NotesKey(paperID string) string {
	return notesKeyPrefix + paperID
}

// Backend names accepted by configuration.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// ErrUnknownBackend is returned for an unrecognized STORE_BACKEND value.
type ErrUnknownBackend struct {
	Backend string
}

func (e *ErrUnknownBackend) Error() string {
	return fmt.Sprintf("unknown store backend %q (expected %s, %s or %s)",
		e.Backend, BackendMemory, BackendRedis, BackendSQLite)
}
