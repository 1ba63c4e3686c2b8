package session

import (
	"context"

	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/extractor"
	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/normalizer"
	"github.com/agrocampo/farm-ops/internal/domain/catalog"
)

const (
	estadoConfirmado = "Confirmado"
	estadoPendiente  = "Pendiente"

	msgRequired = "campo requerido"
)

// Run drives the session through Parsing and Validating over the uploaded
// file bytes. Every row is attempted; a row stops at its first failing field
// but never stops the batch. If any error accumulates the whole batch is
// rejected (ValidationFailed) — partially valid subsets are never imported.
func (s *Session) Run(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.beginParsing()

	rows, err := extractor.Extract(data, extractor.LayoutFor(s.RecordType))
	if err != nil {
		s.state = StateIdle
		s.touch()
		return err
	}

	s.state = StateValidating
	s.touch()

	for _, row := range rows {
		if rec, ok := s.validateRow(ctx, row); ok {
			s.records = append(s.records, rec)
		}
	}

	if len(s.errors) > 0 {
		s.records = nil
		s.state = StateValidationFailed
	} else {
		s.state = StateAwaitingConfirmation
	}
	s.touch()
	return nil
}

// validateRow checks the row's fields in the fixed column order and resolves
// its catalog references as it goes. The first failing field emits exactly
// one ValidationError and abandons the row; later problems in the same row
// are never reported.
func (s *Session) validateRow(ctx context.Context, row extractor.RawRow) (ValidatedRecord, bool) {
	fail := func(field, message string) (ValidatedRecord, bool) {
		s.errors = append(s.errors, ValidationError{Row: row.Line, Field: field, Message: message})
		return ValidatedRecord{}, false
	}

	createdBefore := s.resolver.CreatedCount()
	rec := ValidatedRecord{Line: row.Line}

	if row.Fecha == "" {
		return fail(extractor.ColFecha, msgRequired)
	}
	fecha, err := normalizer.NormalizeDate(row.Fecha)
	if err != nil {
		return fail(extractor.ColFecha, err.Error())
	}
	rec.Fecha = fecha

	if row.Negocio == "" {
		return fail(extractor.ColNegocio, msgRequired)
	}
	negocioID, _, err := s.resolver.Resolve(ctx, catalog.KindNegocio, row.Negocio, nil)
	if err != nil {
		return fail(extractor.ColNegocio, err.Error())
	}
	rec.NegocioID = negocioID

	if row.Region == "" {
		return fail(extractor.ColRegion, msgRequired)
	}
	regionID, _, err := s.resolver.Resolve(ctx, catalog.KindRegion, row.Region, nil)
	if err != nil {
		return fail(extractor.ColRegion, err.Error())
	}
	rec.RegionID = regionID

	if s.RecordType == extractor.RecordTypeExpense {
		if ok := s.validateExpenseFields(ctx, row, &rec, fail); !ok {
			return ValidatedRecord{}, false
		}
	} else {
		if ok := s.validateIncomeFields(ctx, row, &rec, fail); !ok {
			return ValidatedRecord{}, false
		}
	}

	if row.MedioPago == "" {
		return fail(extractor.ColMedioPago, msgRequired)
	}
	medioPagoID, _, err := s.resolver.Resolve(ctx, catalog.KindMedioPago, row.MedioPago, nil)
	if err != nil {
		return fail(extractor.ColMedioPago, err.Error())
	}
	rec.MedioPagoID = medioPagoID

	nameCol := extractor.LayoutFor(s.RecordType).NameColumn()
	if row.Nombre == "" {
		return fail(nameCol, msgRequired)
	}
	rec.Nombre = row.Nombre

	valor, err := normalizer.ParseValor(row.Valor)
	if err != nil {
		return fail(extractor.ColValor, err.Error())
	}
	rec.Valor = valor

	if row.Observaciones != "" {
		obs := row.Observaciones
		rec.Observaciones = &obs
	}

	if s.RecordType == extractor.RecordTypeExpense {
		estado := estadoPendiente
		if row.Estado == estadoConfirmado {
			estado = estadoConfirmado
		}
		rec.Estado = &estado
	}

	rec.CreatedEntities = append([]catalog.Entity(nil), s.resolver.Created()[createdBefore:]...)
	return rec, true
}

// validateExpenseFields covers the columns only expense rows carry: a
// required categoría and concepto, and an optional proveedor.
func (s *Session) validateExpenseFields(ctx context.Context, row extractor.RawRow, rec *ValidatedRecord, fail func(string, string) (ValidatedRecord, bool)) bool {
	if row.Categoria == "" {
		fail(extractor.ColCategoria, msgRequired)
		return false
	}
	categoriaID, _, err := s.resolver.Resolve(ctx, catalog.KindCategoriaGasto, row.Categoria, nil)
	if err != nil {
		fail(extractor.ColCategoria, err.Error())
		return false
	}
	rec.CategoriaID = &categoriaID

	if row.Concepto == "" {
		fail(extractor.ColConcepto, msgRequired)
		return false
	}
	conceptoID, _, err := s.resolver.Resolve(ctx, catalog.KindConceptoGasto, row.Concepto, &categoriaID)
	if err != nil {
		fail(extractor.ColConcepto, err.Error())
		return false
	}
	rec.ConceptoID = &conceptoID

	if row.Proveedor != "" {
		proveedorID, _, err := s.resolver.Resolve(ctx, catalog.KindProveedor, row.Proveedor, nil)
		if err != nil {
			fail(extractor.ColProveedor, err.Error())
			return false
		}
		rec.ProveedorID = &proveedorID
	}
	return true
}

// validateIncomeFields covers the income-only columns: an optional categoría
// (auto-created under the row's negocio) and an optional comprador.
func (s *Session) validateIncomeFields(ctx context.Context, row extractor.RawRow, rec *ValidatedRecord, fail func(string, string) (ValidatedRecord, bool)) bool {
	if row.Categoria != "" {
		negocioID := rec.NegocioID
		categoriaID, _, err := s.resolver.Resolve(ctx, catalog.KindCategoriaIngreso, row.Categoria, &negocioID)
		if err != nil {
			fail(extractor.ColCategoria, err.Error())
			return false
		}
		rec.CategoriaID = &categoriaID
	}

	if row.Comprador != "" {
		compradorID, _, err := s.resolver.Resolve(ctx, catalog.KindComprador, row.Comprador, nil)
		if err != nil {
			fail(extractor.ColComprador, err.Error())
			return false
		}
		rec.CompradorID = &compradorID
	}
	return true
}
