package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entity is a single catalog row. ParentID links a concepto to its categoría
// de gasto, and an income categoría to its negocio; it is nil for top-level
// kinds.
type Entity struct {
	ID             uuid.UUID
	Kind           Kind
	RawName        string
	NormalizedName string
	ParentID       *uuid.UUID
	Active         bool
	CreatedAt      time.Time
}

// Store is the backing catalog storage consumed by the resolver and the
// template generator.
type Store interface {
	// ListByKind returns every entity of the given kind.
	ListByKind(ctx context.Context, kind Kind) ([]Entity, error)
	// Create inserts a new entity, filling in its ID. Implementations may
	// provide create-or-fetch semantics on (kind, normalized name).
	Create(ctx context.Context, e *Entity) error
}

// SessionCache holds the catalog entities visible to one import session.
// It is loaded once from the store when the session starts and mutated
// in-memory as entities are created mid-batch; for the remainder of the batch
// the cache is the source of truth for "does this name already exist",
// superseding any re-query. The cache is scoped to a single session and must
// never be shared between sessions.
type SessionCache struct {
	byKind map[Kind]map[string]Entity
}

// LoadCache reads every kind's active entities from the store into a fresh
// session cache.
func LoadCache(ctx context.Context, store Store, kinds []Kind) (*SessionCache, error) {
	c := &SessionCache{byKind: make(map[Kind]map[string]Entity, len(kinds))}
	for _, kind := range kinds {
		entities, err := store.ListByKind(ctx, kind)
		if err != nil {
			return nil, err
		}
		m := make(map[string]Entity, len(entities))
		for _, e := range entities {
			m[e.NormalizedName] = e
		}
		c.byKind[kind] = m
	}
	return c, nil
}

// NewSessionCache returns an empty cache covering the given kinds. Used by
// tests and by sessions that load lazily.
func NewSessionCache(kinds []Kind) *SessionCache {
	c := &SessionCache{byKind: make(map[Kind]map[string]Entity, len(kinds))}
	for _, kind := range kinds {
		c.byKind[kind] = make(map[string]Entity)
	}
	return c
}

// Get looks up an entity by kind and normalized name.
func (c *SessionCache) Get(kind Kind, normalizedName string) (Entity, bool) {
	m, ok := c.byKind[kind]
	if !ok {
		return Entity{}, false
	}
	e, ok := m[normalizedName]
	return e, ok
}

// Put records an entity in the cache, making it visible to every later row of
// the same session.
func (c *SessionCache) Put(e Entity) {
	m, ok := c.byKind[e.Kind]
	if !ok {
		m = make(map[string]Entity)
		c.byKind[e.Kind] = m
	}
	m[e.NormalizedName] = e
}

// Names returns the raw names cached for a kind. Used for fuzzy suggestions.
func (c *SessionCache) Names(kind Kind) []string {
	m := c.byKind[kind]
	names := make([]string, 0, len(m))
	for _, e := range m {
		names = append(names, e.RawName)
	}
	return names
}

// Len reports how many entities are cached for a kind.
func (c *SessionCache) Len(kind Kind) int { return len(c.byKind[kind]) }
