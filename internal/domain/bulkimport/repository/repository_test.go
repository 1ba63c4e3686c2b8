package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/extractor"
	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/session"
	"github.com/agrocampo/farm-ops/internal/domain/catalog"
)

func TestPostgresCatalogRepository_ListByKind(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	id1, id2 := uuid.New(), uuid.New()
	parentID := uuid.New()

	mock.ExpectQuery(`SELECT id, kind, name, normalized_name, parent_id, active, created_at`).
		WithArgs(catalog.KindConceptoGasto).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "kind", "name", "normalized_name", "parent_id", "active", "created_at",
		}).AddRow(
			id1, catalog.KindConceptoGasto, "Fertilizante", "fertilizante", &parentID, true, now,
		).AddRow(
			id2, catalog.KindConceptoGasto, "Poda de árboles", "poda de árboles", nil, false, now,
		))

	repo := NewPostgresCatalogRepository(mock)
	entities, err := repo.ListByKind(context.Background(), catalog.KindConceptoGasto)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	assert.Equal(t, id1, entities[0].ID)
	assert.Equal(t, "Fertilizante", entities[0].RawName)
	require.NotNil(t, entities[0].ParentID)
	assert.Equal(t, parentID, *entities[0].ParentID)
	assert.False(t, entities[1].Active)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalogRepository_Create(t *testing.T) {
	t.Run("inserts and fills id and created_at", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Now()
		e := &catalog.Entity{
			Kind:           catalog.KindProveedor,
			RawName:        "Agroservicios SA",
			NormalizedName: "agroservicios sa",
		}

		mock.ExpectQuery(`INSERT INTO catalogs`).
			WithArgs(pgxmock.AnyArg(), catalog.KindProveedor, "Agroservicios SA", "agroservicios sa", (*uuid.UUID)(nil)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), now))

		repo := NewPostgresCatalogRepository(mock)
		require.NoError(t, repo.Create(context.Background(), e))
		assert.NotEqual(t, uuid.Nil, e.ID)
		assert.True(t, e.Active)
		assert.Equal(t, now, e.CreatedAt)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict returns the existing row's id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		existingID := uuid.New()
		e := &catalog.Entity{
			Kind:           catalog.KindConceptoGasto,
			RawName:        "Fertilizante",
			NormalizedName: "fertilizante",
		}

		mock.ExpectQuery(`INSERT INTO catalogs`).
			WithArgs(pgxmock.AnyArg(), catalog.KindConceptoGasto, "Fertilizante", "fertilizante", (*uuid.UUID)(nil)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(existingID, time.Now()))

		repo := NewPostgresCatalogRepository(mock)
		require.NoError(t, repo.Create(context.Background(), e))
		assert.Equal(t, existingID, e.ID, "must adopt the id the conflict resolved to")

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

// anyArgs yields one AnyArg matcher per placeholder; a chunk of n records
// binds n times the column count.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func chunkOf(n int) []session.ValidatedRecord {
	records := make([]session.ValidatedRecord, n)
	for i := range records {
		records[i] = session.ValidatedRecord{
			Fecha:       "2025-01-15",
			NegocioID:   uuid.New(),
			RegionID:    uuid.New(),
			MedioPagoID: uuid.New(),
			Nombre:      "registro",
			Valor:       decimal.NewFromInt(1000),
		}
	}
	return records
}

func TestPostgresRecordRepository_WriteChunk(t *testing.T) {
	t.Run("expense chunk is one multi-row insert", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO gastos \(id, fecha, negocio_id`).
			WithArgs(anyArgs(3 * 12)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 3))

		repo := NewPostgresRecordRepository(mock)
		err = repo.WriteChunk(context.Background(), extractor.RecordTypeExpense, chunkOf(3))
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("income chunk targets the ingresos table", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO ingresos \(id, fecha, negocio_id`).
			WithArgs(anyArgs(2 * 10)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))

		repo := NewPostgresRecordRepository(mock)
		err = repo.WriteChunk(context.Background(), extractor.RecordTypeIncome, chunkOf(2))
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty chunk is a no-op", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPostgresRecordRepository(mock)
		require.NoError(t, repo.WriteChunk(context.Background(), extractor.RecordTypeExpense, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec failure is wrapped with the chunk size", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		boom := errors.New("connection reset")
		mock.ExpectExec(`INSERT INTO gastos`).
			WithArgs(anyArgs(50 * 12)...).
			WillReturnError(boom)

		repo := NewPostgresRecordRepository(mock)
		err = repo.WriteChunk(context.Background(), extractor.RecordTypeExpense, chunkOf(50))
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "chunk of 50")
	})
}
