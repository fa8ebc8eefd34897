package records

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// Repo persists Records keyed by Record.Key. Upsert overwrites every field except CreatedAt.
type Repo interface {
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, key string) (Record, error)
	Upsert(ctx context.Context, rec Record) error
}

// Pinger is implemented by repos backed by a remote store.
type Pinger interface {
	Ping(ctx context.Context) error
}
