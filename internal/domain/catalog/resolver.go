package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MissError reports a reference to a closed catalog that has no match.
// Suggestion carries the nearest existing name when one is close enough.
type MissError struct {
	Kind       Kind
	Name       string
	Suggestion string
}

func (e *MissError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s %q no existe. ¿Quiso decir %q?", e.Kind.Label(), e.Name, e.Suggestion)
	}
	return fmt.Sprintf("%s %q no existe", e.Kind.Label(), e.Name)
}

// CreateError reports a failed auto-creation against the backing store.
type CreateError struct {
	Kind Kind
	Name string
	Err  error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("no se pudo crear %s %q: %v", e.Kind.Label(), e.Name, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// Resolver turns free-text catalog references into entity IDs, creating open
// kind entities at most once per distinct normalized name per session.
//
// Resolution order for (kind, rawName): pre-loaded session cache, in-batch
// pending-creation list, then store create. Created entities are appended to
// both the pending list and the cache, so every later row of the batch sees
// them. The check-then-create sequence is race-free only within one session;
// two concurrent sessions may still create duplicates (see DESIGN.md).
type Resolver struct {
	cache   *SessionCache
	store   Store
	pending map[Kind][]Entity
	created []Entity
}

// NewResolver builds a resolver over a session cache and the backing store.
func NewResolver(cache *SessionCache, store Store) *Resolver {
	return &Resolver{
		cache:   cache,
		store:   store,
		pending: make(map[Kind][]Entity),
	}
}

// Resolve maps (kind, rawName) to an entity ID. The boolean reports whether a
// new entity was created by this call. parentID is attached to auto-created
// entities of hierarchical kinds (concepto under categoría, income categoría
// under negocio) and ignored on hits.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, rawName string, parentID *uuid.UUID) (uuid.UUID, bool, error) {
	normalized := Normalize(rawName)

	if e, ok := r.cache.Get(kind, normalized); ok {
		return e.ID, false, nil
	}

	// The pending list is updated together with the cache, but it is checked
	// independently so a cache wipe can never cause a duplicate create within
	// the batch.
	for _, e := range r.pending[kind] {
		if e.NormalizedName == normalized {
			return e.ID, false, nil
		}
	}

	if kind.Closed() {
		return uuid.Nil, false, &MissError{
			Kind:       kind,
			Name:       rawName,
			Suggestion: r.suggest(kind, rawName),
		}
	}

	entity := Entity{
		Kind:           kind,
		RawName:        strings.TrimSpace(rawName),
		NormalizedName: normalized,
		ParentID:       parentID,
		Active:         true,
	}
	if err := r.store.Create(ctx, &entity); err != nil {
		return uuid.Nil, false, &CreateError{Kind: kind, Name: rawName, Err: err}
	}

	r.pending[kind] = append(r.pending[kind], entity)
	r.cache.Put(entity)
	r.created = append(r.created, entity)

	return entity.ID, true, nil
}

// Created returns every entity auto-created through this resolver, in creation
// order.
func (r *Resolver) Created() []Entity { return r.created }

// CreatedCount returns how many entities were auto-created.
func (r *Resolver) CreatedCount() int { return len(r.created) }

// DiscardPending drops the in-memory pending-creation bookkeeping. Entities
// already written to the store are not rolled back.
func (r *Resolver) DiscardPending() {
	r.pending = make(map[Kind][]Entity)
	r.created = nil
}

// suggest returns the closest existing catalog name for a missed reference,
// or "" when nothing is near enough to be useful.
func (r *Resolver) suggest(kind Kind, rawName string) string {
	target := Normalize(rawName)
	best := ""
	bestDist := -1
	for _, name := range r.cache.Names(kind) {
		d := fuzzy.LevenshteinDistance(target, Normalize(name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = name, d
		}
	}
	// A suggestion further than a third of the typed name away is noise.
	if bestDist < 0 || bestDist > max(2, len(target)/3) {
		return ""
	}
	return best
}
