// Package store persists conversation sessions in local key-value style
// storage: one JSON collection per module kind, sorted most-recent-first.
package store

import (
	"context"
	"errors"

	"github.com/deleyapp/lawcopilot/internal/model/chat"
	"github.com/deleyapp/lawcopilot/internal/model/module"
)

// ErrNotFound is returned when a session id is absent from its module
// kind's collection.
var ErrNotFound = errors.New("session not found")

// Store is the session persistence adapter. Save is an idempotent upsert
// keyed by session id within the module kind's collection; every write
// re-sorts the collection by last activity, newest first. Operations fail
// only when the underlying storage is unavailable, and failures are always
// reported to the caller.
type Store interface {
	Save(ctx context.Context, session chat.Session) error
	LoadAll(ctx context.Context, kind module.Kind) ([]chat.Session, error)
	LoadOne(ctx context.Context, kind module.Kind, id string) (chat.Session, error)
	Delete(ctx context.Context, kind module.Kind, id string) error
}
