package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
)

// Gateway stores each record at its own key ("qb:{collection}:{id}") wrapped
// in a small version envelope, and keeps a per-collection id list so ReadAll
// preserves insertion order. Compare-and-swap updates ride on WATCH/MULTI.
type Gateway struct {
	client *redis.Client
}

type envelope struct {
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data"`
}

func NewGateway(client *redis.Client) *Gateway {
	return &Gateway{client: client}
}

func (g *Gateway) ReadAll(ctx context.Context, collection string) ([]app.Record, error) {
	ids, err := g.client.LRange(ctx, listKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read ids %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(collection, id)
	}
	values, err := g.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read records %s: %w", collection, err)
	}

	records := make([]app.Record, 0, len(ids))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue // id list entry without a record, skip
		}
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, fmt.Errorf("unwrap record %s/%s: %w", collection, ids[i], err)
		}
		records = append(records, app.Record{ID: ids[i], Version: env.Version, Data: env.Data})
	}
	return records, nil
}

func (g *Gateway) ReadOne(ctx context.Context, collection, id string) (app.Record, error) {
	raw, err := g.client.Get(ctx, recordKey(collection, id)).Result()
	if errors.Is(err, redis.Nil) {
		return app.Record{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return app.Record{}, fmt.Errorf("read record %s/%s: %w", collection, id, err)
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return app.Record{}, fmt.Errorf("unwrap record %s/%s: %w", collection, id, err)
	}
	return app.Record{ID: id, Version: env.Version, Data: env.Data}, nil
}

func (g *Gateway) Create(ctx context.Context, collection string, data []byte) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(envelope{Version: 1, Data: data})
	if err != nil {
		return "", err
	}
	_, err = g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(collection, id), payload, 0)
		pipe.RPush(ctx, listKey(collection), id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create record %s: %w", collection, err)
	}
	return id, nil
}

func (g *Gateway) Update(ctx context.Context, collection, id string, version int64, data []byte) error {
	key := recordKey(collection, id)
	err := g.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return err
		}
		if env.Version != version {
			return domain.ErrVersionConflict
		}
		payload, err := json.Marshal(envelope{Version: version + 1, Data: data})
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// another writer touched the record between GET and EXEC
		return domain.ErrVersionConflict
	}
	if errors.Is(err, domain.ErrRecordNotFound) || errors.Is(err, domain.ErrVersionConflict) {
		return err
	}
	if err != nil {
		return fmt.Errorf("update record %s/%s: %w", collection, id, err)
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, collection, id string) error {
	exists, err := g.client.Exists(ctx, recordKey(collection, id)).Result()
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", collection, id, err)
	}
	if exists == 0 {
		return domain.ErrRecordNotFound
	}
	_, err = g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKey(collection, id))
		pipe.LRem(ctx, listKey(collection), 0, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", collection, id, err)
	}
	return nil
}

// DeleteBatch issues all deletes in one MULTI/EXEC, so the cascade lands (or
// fails) as a unit. Missing keys are ignored.
func (g *Gateway) DeleteBatch(ctx context.Context, keys []app.Key) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, recordKey(key.Collection, key.ID))
			pipe.LRem(ctx, listKey(key.Collection), 0, key.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}

func recordKey(collection, id string) string {
	return "qb:" + collection + ":" + id
}

func listKey(collection string) string {
	return "qb:" + collection + ":ids"
}
