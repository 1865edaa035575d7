// Package store is the agent's local key-value area, the counterpart of the
// web cookie store. It holds the agent's replica of the session under two
// well-known keys.
package store

import (
	"context"
	"errors"
)

// Keys the agent uses. Nothing else writes into the store.
const (
	KeyToken       = "token"
	KeyUserProfile = "userProfile"
)

// ErrNotFound is returned for absent keys so callers can tell "no session"
// apart from a storage failure.
var ErrNotFound = errors.New("key not found")

// Repo is a local, agent-scoped key-value area. Values are JSON documents.
// Operations are idempotent overwrites with no side effects beyond the key
// they touch, so callers may retry freely.
type Repo interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
