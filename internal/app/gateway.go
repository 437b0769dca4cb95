package app

import "context"

// Record is the raw stored form of an entity: the collection key, an
// optimistic-concurrency version, and the JSON body.
type Record struct {
	ID      string
	Version int64
	Data    []byte
}

// Key addresses one record for batch operations.
type Key struct {
	Collection string
	ID         string
}

// Gateway abstracts CRUD access to the backing store (in-memory, Redis,
// Postgres). Implementations live under internal/infra.
//
// Update is compare-and-swap: it replaces the whole record only when the
// stored version equals the caller's, otherwise it fails with
// domain.ErrVersionConflict. DeleteBatch removes all keys atomically where
// the backend supports it (a transaction or pipeline), best-effort otherwise.
type Gateway interface {
	ReadAll(ctx context.Context, collection string) ([]Record, error)
	ReadOne(ctx context.Context, collection, id string) (Record, error)
	Create(ctx context.Context, collection string, data []byte) (string, error)
	Update(ctx context.Context, collection, id string, version int64, data []byte) error
	Delete(ctx context.Context, collection, id string) error
	DeleteBatch(ctx context.Context, keys []Key) error
}
