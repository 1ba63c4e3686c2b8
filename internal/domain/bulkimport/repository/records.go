package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/extractor"
	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/session"
)

var (
	expenseColumns = []string{
		"id", "fecha", "negocio_id", "region_id", "categoria_id", "concepto_id",
		"proveedor_id", "medio_pago_id", "nombre", "valor", "observaciones", "estado",
	}
	incomeColumns = []string{
		"id", "fecha", "negocio_id", "region_id", "categoria_id", "comprador_id",
		"medio_pago_id", "nombre", "valor", "observaciones",
	}
)

// PostgresRecordRepository writes validated import records. It implements
// session.ChunkWriter: each chunk is one multi-row INSERT, so a chunk either
// lands completely or not at all.
type PostgresRecordRepository struct {
	db DB
}

// NewPostgresRecordRepository creates a new PostgreSQL record repository.
func NewPostgresRecordRepository(db DB) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: db}
}

// WriteChunk inserts one chunk of records into the record type's table.
func (r *PostgresRecordRepository) WriteChunk(ctx context.Context, rt extractor.RecordType, records []session.ValidatedRecord) error {
	if len(records) == 0 {
		return nil
	}

	table := "gastos"
	columns := expenseColumns
	if rt == extractor.RecordTypeIncome {
		table = "ingresos"
		columns = incomeColumns
	}

	var (
		placeholders strings.Builder
		args         = make([]any, 0, len(records)*len(columns))
	)
	for i, rec := range records {
		if i > 0 {
			placeholders.WriteString(", ")
		}
		placeholders.WriteString("(")
		for j := range columns {
			if j > 0 {
				placeholders.WriteString(", ")
			}
			fmt.Fprintf(&placeholders, "$%d", i*len(columns)+j+1)
		}
		placeholders.WriteString(")")

		if rt == extractor.RecordTypeIncome {
			args = append(args, uuid.New(), rec.Fecha, rec.NegocioID, rec.RegionID,
				rec.CategoriaID, rec.CompradorID, rec.MedioPagoID,
				rec.Nombre, rec.Valor.String(), rec.Observaciones)
		} else {
			args = append(args, uuid.New(), rec.Fecha, rec.NegocioID, rec.RegionID,
				rec.CategoriaID, rec.ConceptoID, rec.ProveedorID, rec.MedioPagoID,
				rec.Nombre, rec.Valor.String(), rec.Observaciones, rec.Estado)
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(columns, ", "), placeholders.String())

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %s chunk of %d: %w", table, len(records), err)
	}
	return nil
}
