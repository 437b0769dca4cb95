package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
)

// Gateway is an in-memory implementation of app.Gateway, used in tests and
// when no backend is configured. ReadAll preserves insertion order.
type Gateway struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	order   []string
	records map[string]record
}

type record struct {
	version int64
	data    []byte
}

func NewGateway() *Gateway {
	return &Gateway{collections: make(map[string]*collection)}
}

func (g *Gateway) ReadAll(_ context.Context, name string) ([]app.Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	col, ok := g.collections[name]
	if !ok {
		return nil, nil
	}
	out := make([]app.Record, 0, len(col.order))
	for _, id := range col.order {
		rec := col.records[id]
		out = append(out, app.Record{ID: id, Version: rec.version, Data: cloneBytes(rec.data)})
	}
	return out, nil
}

func (g *Gateway) ReadOne(_ context.Context, name, id string) (app.Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	col, ok := g.collections[name]
	if !ok {
		return app.Record{}, domain.ErrRecordNotFound
	}
	rec, ok := col.records[id]
	if !ok {
		return app.Record{}, domain.ErrRecordNotFound
	}
	return app.Record{ID: id, Version: rec.version, Data: cloneBytes(rec.data)}, nil
}

func (g *Gateway) Create(_ context.Context, name string, data []byte) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	col, ok := g.collections[name]
	if !ok {
		col = &collection{records: make(map[string]record)}
		g.collections[name] = col
	}
	id := uuid.NewString()
	col.records[id] = record{version: 1, data: cloneBytes(data)}
	col.order = append(col.order, id)
	return id, nil
}

func (g *Gateway) Update(_ context.Context, name, id string, version int64, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	col, ok := g.collections[name]
	if !ok {
		return domain.ErrRecordNotFound
	}
	rec, ok := col.records[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if rec.version != version {
		return domain.ErrVersionConflict
	}
	col.records[id] = record{version: version + 1, data: cloneBytes(data)}
	return nil
}

func (g *Gateway) Delete(_ context.Context, name, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deleteLocked(name, id)
}

// DeleteBatch removes all keys under one lock; missing keys are ignored so a
// retried cascade stays idempotent.
func (g *Gateway) DeleteBatch(_ context.Context, keys []app.Key) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range keys {
		_ = g.deleteLocked(key.Collection, key.ID)
	}
	return nil
}

func (g *Gateway) deleteLocked(name, id string) error {
	col, ok := g.collections[name]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if _, ok := col.records[id]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(col.records, id)
	for i, existing := range col.order {
		if existing == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
