package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/agrocampo/farm-ops/internal/domain/catalog"
)

// PostgresCatalogRepository implements catalog.Store using PostgreSQL.
type PostgresCatalogRepository struct {
	db DB
}

// NewPostgresCatalogRepository creates a new PostgreSQL catalog repository.
func NewPostgresCatalogRepository(db DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

// ListByKind returns every catalog entity of the given kind, active or not.
// Callers that only want active entries filter on Entity.Active.
func (r *PostgresCatalogRepository) ListByKind(ctx context.Context, kind catalog.Kind) ([]catalog.Entity, error) {
	query := `
		SELECT id, kind, name, normalized_name, parent_id, active, created_at
		FROM catalogs
		WHERE kind = $1
		ORDER BY normalized_name`

	rows, err := r.db.Query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s catalog: %w", kind, err)
	}
	defer rows.Close()

	var entities []catalog.Entity
	for rows.Next() {
		var e catalog.Entity
		if err := rows.Scan(&e.ID, &e.Kind, &e.RawName, &e.NormalizedName, &e.ParentID, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s catalog row: %w", kind, err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s catalog: %w", kind, err)
	}
	return entities, nil
}

// Create inserts a catalog entity, or fetches the existing one when another
// session created the same (kind, normalized name) first. Either way the
// entity's ID is filled with the row that ends up in the table, so concurrent
// imports converge on a single entity instead of failing.
func (r *PostgresCatalogRepository) Create(ctx context.Context, e *catalog.Entity) error {
	query := `
		INSERT INTO catalogs (id, kind, name, normalized_name, parent_id, active)
		VALUES ($1, $2, $3, $4, $5, true)
		ON CONFLICT (kind, normalized_name) DO UPDATE SET active = true
		RETURNING id, created_at`

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		e.ID,
		e.Kind,
		e.RawName,
		e.NormalizedName,
		e.ParentID,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s %q: %w", e.Kind, e.RawName, err)
	}

	e.Active = true
	return nil
}
