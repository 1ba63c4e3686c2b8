package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements Store in memory and counts create calls.
type fakeStore struct {
	entities    map[Kind][]Entity
	createCalls int
	createErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entities: make(map[Kind][]Entity)}
}

func (f *fakeStore) seed(kind Kind, names ...string) {
	for _, name := range names {
		f.entities[kind] = append(f.entities[kind], Entity{
			ID:             uuid.New(),
			Kind:           kind,
			RawName:        name,
			NormalizedName: Normalize(name),
			Active:         true,
		})
	}
}

func (f *fakeStore) ListByKind(_ context.Context, kind Kind) ([]Entity, error) {
	return f.entities[kind], nil
}

func (f *fakeStore) Create(_ context.Context, e *Entity) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = uuid.New()
	f.entities[e.Kind] = append(f.entities[e.Kind], *e)
	return nil
}

func newResolverOver(t *testing.T, store *fakeStore) *Resolver {
	t.Helper()
	cache, err := LoadCache(context.Background(), store, Kinds)
	require.NoError(t, err)
	return NewResolver(cache, store)
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("matches case-insensitively", func(t *testing.T) {
		store := newFakeStore()
		store.seed(KindProveedor, "Fungicida Ridomil")
		r := newResolverOver(t, store)

		id1, created, err := r.Resolve(ctx, KindProveedor, "Fungicida Ridomil", nil)
		require.NoError(t, err)
		assert.False(t, created)

		id2, created, err := r.Resolve(ctx, KindProveedor, "fungicida ridomil", nil)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, id1, id2)
		assert.Zero(t, store.createCalls)
	})

	t.Run("creates an open-kind miss exactly once per batch", func(t *testing.T) {
		store := newFakeStore()
		r := newResolverOver(t, store)

		first, created, err := r.Resolve(ctx, KindConceptoGasto, "Poda de árboles", nil)
		require.NoError(t, err)
		assert.True(t, created)

		// Same name referenced by later rows, with different casing and
		// whitespace, must reuse the batch-created entity.
		for _, name := range []string{"Poda de árboles", "PODA DE ÁRBOLES", "  poda de árboles "} {
			id, created, err := r.Resolve(ctx, KindConceptoGasto, name, nil)
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, first, id)
		}

		assert.Equal(t, 1, store.createCalls)
		assert.Equal(t, 1, r.CreatedCount())
	})

	t.Run("rejects a closed-kind miss", func(t *testing.T) {
		store := newFakeStore()
		store.seed(KindNegocio, "Aguacates", "Ganadería")
		r := newResolverOver(t, store)

		_, _, err := r.Resolve(ctx, KindNegocio, "Aguacatess", nil)
		require.Error(t, err)

		var miss *MissError
		require.ErrorAs(t, err, &miss)
		assert.Equal(t, KindNegocio, miss.Kind)
		assert.Equal(t, "Aguacates", miss.Suggestion)
		assert.Zero(t, store.createCalls)
	})

	t.Run("closed-kind miss without near match has no suggestion", func(t *testing.T) {
		store := newFakeStore()
		store.seed(KindRegion, "Norte")
		r := newResolverOver(t, store)

		_, _, err := r.Resolve(ctx, KindRegion, "Zzzzqqq", nil)
		var miss *MissError
		require.ErrorAs(t, err, &miss)
		assert.Empty(t, miss.Suggestion)
	})

	t.Run("surfaces a failed create", func(t *testing.T) {
		store := newFakeStore()
		store.createErr = errors.New("connection reset")
		r := newResolverOver(t, store)

		_, _, err := r.Resolve(ctx, KindComprador, "Exportadora Sur", nil)
		var createErr *CreateError
		require.ErrorAs(t, err, &createErr)
		assert.Equal(t, KindComprador, createErr.Kind)
	})

	t.Run("attaches parent to created entities", func(t *testing.T) {
		store := newFakeStore()
		r := newResolverOver(t, store)
		parent := uuid.New()

		_, created, err := r.Resolve(ctx, KindCategoriaIngreso, "Venta de fruta", &parent)
		require.NoError(t, err)
		require.True(t, created)

		require.Len(t, r.Created(), 1)
		require.NotNil(t, r.Created()[0].ParentID)
		assert.Equal(t, parent, *r.Created()[0].ParentID)
	})
}

func TestKind_Closed(t *testing.T) {
	closed := []Kind{KindNegocio, KindRegion, KindCategoriaGasto, KindMedioPago}
	open := []Kind{KindConceptoGasto, KindProveedor, KindComprador, KindCategoriaIngreso}

	for _, k := range closed {
		assert.True(t, k.Closed(), "kind %s", k)
	}
	for _, k := range open {
		assert.True(t, k.Open(), "kind %s", k)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "urea", Normalize("  Urea "))
	assert.Equal(t, Normalize("Urea"), Normalize("urea"))
}

func TestSessionCache_PutSupersedesStore(t *testing.T) {
	cache := NewSessionCache(Kinds)
	e := Entity{ID: uuid.New(), Kind: KindProveedor, RawName: "Agroinsumos", NormalizedName: "agroinsumos"}
	cache.Put(e)

	got, ok := cache.Get(KindProveedor, "agroinsumos")
	require.True(t, ok)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, []string{"Agroinsumos"}, cache.Names(KindProveedor))
}
