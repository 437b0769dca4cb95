package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
)

// Gateway persists records as JSONB rows in a single table keyed by
// (collection, id), with a sequence column so ReadAll preserves insertion
// order. Updates are guarded by the version column.
type Gateway struct {
	pool *pgxpool.Pool
}

func NewGateway(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

func (g *Gateway) ReadAll(ctx context.Context, collection string) ([]app.Record, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT id, version, data FROM records WHERE collection=$1 ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("read all %s: %w", collection, err)
	}
	defer rows.Close()

	var records []app.Record
	for rows.Next() {
		var rec app.Record
		if err := rows.Scan(&rec.ID, &rec.Version, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan record %s: %w", collection, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read all %s: %w", collection, err)
	}
	return records, nil
}

func (g *Gateway) ReadOne(ctx context.Context, collection, id string) (app.Record, error) {
	rec := app.Record{ID: id}
	err := g.pool.QueryRow(ctx,
		`SELECT version, data FROM records WHERE collection=$1 AND id=$2`, collection, id).
		Scan(&rec.Version, &rec.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return app.Record{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return app.Record{}, fmt.Errorf("read record %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

func (g *Gateway) Create(ctx context.Context, collection string, data []byte) (string, error) {
	id := uuid.NewString()
	_, err := g.pool.Exec(ctx,
		`INSERT INTO records (collection, id, version, data) VALUES ($1, $2, 1, $3)`,
		collection, id, data)
	if err != nil {
		return "", fmt.Errorf("create record %s: %w", collection, err)
	}
	return id, nil
}

func (g *Gateway) Update(ctx context.Context, collection, id string, version int64, data []byte) error {
	tag, err := g.pool.Exec(ctx,
		`UPDATE records SET version=version+1, data=$4 WHERE collection=$1 AND id=$2 AND version=$3`,
		collection, id, version, data)
	if err != nil {
		return fmt.Errorf("update record %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	// No row matched: either the record is gone or the version is stale.
	var exists bool
	err = g.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM records WHERE collection=$1 AND id=$2)`, collection, id).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("update record %s/%s: %w", collection, id, err)
	}
	if !exists {
		return domain.ErrRecordNotFound
	}
	return domain.ErrVersionConflict
}

func (g *Gateway) Delete(ctx context.Context, collection, id string) error {
	tag, err := g.pool.Exec(ctx,
		`DELETE FROM records WHERE collection=$1 AND id=$2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// DeleteBatch runs all deletes in a single transaction.
func (g *Gateway) DeleteBatch(ctx context.Context, keys []app.Key) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, key := range keys {
		if _, err := tx.Exec(ctx,
			`DELETE FROM records WHERE collection=$1 AND id=$2`, key.Collection, key.ID); err != nil {
			return fmt.Errorf("delete batch %s/%s: %w", key.Collection, key.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}
