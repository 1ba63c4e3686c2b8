// Package template builds the downloadable import workbooks. Each workbook
// carries the header row the extractor expects, a human instruction row, one
// worked example row, and a second sheet listing the currently active catalog
// values so users type names that resolve.
package template

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/extractor"
	"github.com/agrocampo/farm-ops/internal/domain/catalog"
)

const catalogSheet = "Catálogos"

// Filename returns the download name for the record type's template.
func Filename(rt extractor.RecordType) string {
	return fmt.Sprintf("plantilla_%s.xlsx", rt)
}

func sheetName(rt extractor.RecordType) string {
	if rt == extractor.RecordTypeIncome {
		return "Ingresos"
	}
	return "Gastos"
}

var expenseInstructions = []string{
	"Fecha del gasto (AAAA-MM-DD)",
	"Debe existir en la hoja Catálogos",
	"Debe existir en la hoja Catálogos",
	"Debe existir en la hoja Catálogos",
	"Se crea si no existe",
	"Opcional, se crea si no existe",
	"Debe existir en la hoja Catálogos",
	"Descripción corta del gasto",
	"Número sin símbolos ni separadores",
	"Opcional",
	"Confirmado o Pendiente",
}

var incomeInstructions = []string{
	"Fecha del ingreso (AAAA-MM-DD)",
	"Debe existir en la hoja Catálogos",
	"Debe existir en la hoja Catálogos",
	"Opcional, se crea si no existe",
	"Opcional, se crea si no existe",
	"Debe existir en la hoja Catálogos",
	"Descripción corta del ingreso",
	"Número sin símbolos ni separadores",
	"Opcional",
}

var expenseExample = []string{
	"2025-01-15", "Aguacates", "Norte", "Insumos", "Fertilizante",
	"Agroinsumos SA", "Efectivo", "Urea bulto 50kg", "125000",
	"compra mensual", "Confirmado",
}

var incomeExample = []string{
	"2025-01-15", "Aguacates", "Norte", "Venta de fruta",
	"Exportadora Andina", "Transferencia", "Venta lote 4", "2400000", "",
}

// Build renders the template workbook for rt from live catalog data. The
// catalog sheet is regenerated on every call, never cached.
func Build(ctx context.Context, store catalog.Store, rt extractor.RecordType) ([]byte, error) {
	layout := extractor.LayoutFor(rt)

	f := excelize.NewFile()
	defer f.Close()

	main := sheetName(rt)
	f.SetSheetName("Sheet1", main)

	header := make([]interface{}, len(layout.Columns))
	for i, col := range layout.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(main, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	instructions := expenseInstructions
	example := expenseExample
	if rt == extractor.RecordTypeIncome {
		instructions = incomeInstructions
		example = incomeExample
	}
	if err := setStringRow(f, main, 2, instructions); err != nil {
		return nil, fmt.Errorf("write instruction row: %w", err)
	}
	if err := setStringRow(f, main, 3, example); err != nil {
		return nil, fmt.Errorf("write example row: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(layout.Columns))
	if err := f.SetCellStyle(main, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("style header row: %w", err)
	}
	if err := f.SetColWidth(main, "A", lastCol, 22); err != nil {
		return nil, fmt.Errorf("set column widths: %w", err)
	}

	if err := writeCatalogSheet(ctx, f, store, rt, bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize template: %w", err)
	}
	return buf.Bytes(), nil
}

// catalogColumn is one column of the appendix: a kind label and its active
// values, child entries rendered under their parent's name.
type catalogColumn struct {
	label  string
	values []string
}

// writeCatalogSheet appends the live catalog listing. Conceptos appear
// grouped under their categoría, and income categorías under their negocio,
// so users can see which free text will match without leaving the file.
func writeCatalogSheet(ctx context.Context, f *excelize.File, store catalog.Store, rt extractor.RecordType, headerStyle int) error {
	var columns []catalogColumn

	appendFlat := func(kind catalog.Kind) error {
		entities, err := store.ListByKind(ctx, kind)
		if err != nil {
			return fmt.Errorf("list %s: %w", kind, err)
		}
		columns = append(columns, catalogColumn{label: kind.Label(), values: activeNames(entities)})
		return nil
	}
	appendGrouped := func(kind, parentKind catalog.Kind) error {
		entities, err := store.ListByKind(ctx, kind)
		if err != nil {
			return fmt.Errorf("list %s: %w", kind, err)
		}
		parents, err := store.ListByKind(ctx, parentKind)
		if err != nil {
			return fmt.Errorf("list %s: %w", parentKind, err)
		}
		columns = append(columns, catalogColumn{
			label:  fmt.Sprintf("%s (%s)", kind.Label(), parentKind.Label()),
			values: groupedNames(entities, parents),
		})
		return nil
	}

	plan := []func() error{
		func() error { return appendFlat(catalog.KindNegocio) },
		func() error { return appendFlat(catalog.KindRegion) },
	}
	if rt == extractor.RecordTypeIncome {
		plan = append(plan,
			func() error { return appendGrouped(catalog.KindCategoriaIngreso, catalog.KindNegocio) },
			func() error { return appendFlat(catalog.KindComprador) },
		)
	} else {
		plan = append(plan,
			func() error { return appendFlat(catalog.KindCategoriaGasto) },
			func() error { return appendGrouped(catalog.KindConceptoGasto, catalog.KindCategoriaGasto) },
			func() error { return appendFlat(catalog.KindProveedor) },
		)
	}
	plan = append(plan, func() error { return appendFlat(catalog.KindMedioPago) })

	for _, step := range plan {
		if err := step(); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(catalogSheet); err != nil {
		return fmt.Errorf("create catalog sheet: %w", err)
	}
	for i, col := range columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetCellStr(catalogSheet, name+"1", col.label); err != nil {
			return fmt.Errorf("write catalog header: %w", err)
		}
		for j, value := range col.values {
			cell := fmt.Sprintf("%s%d", name, j+2)
			if err := f.SetCellStr(catalogSheet, cell, value); err != nil {
				return fmt.Errorf("write catalog value: %w", err)
			}
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(catalogSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style catalog header: %w", err)
	}
	if err := f.SetColWidth(catalogSheet, "A", lastCol, 30); err != nil {
		return fmt.Errorf("set catalog column widths: %w", err)
	}
	return nil
}

func activeNames(entities []catalog.Entity) []string {
	var names []string
	for _, e := range entities {
		if e.Active {
			names = append(names, e.RawName)
		}
	}
	sort.Strings(names)
	return names
}

// groupedNames renders each active child as "Parent / Child", sorted by
// parent then child. Children with a missing or inactive parent list their
// own name alone rather than disappearing.
func groupedNames(entities, parents []catalog.Entity) []string {
	parentName := make(map[uuid.UUID]string, len(parents))
	for _, p := range parents {
		if p.Active {
			parentName[p.ID] = p.RawName
		}
	}

	var names []string
	for _, e := range entities {
		if !e.Active {
			continue
		}
		if e.ParentID != nil {
			if pn, ok := parentName[*e.ParentID]; ok {
				names = append(names, pn+" / "+e.RawName)
				continue
			}
		}
		names = append(names, e.RawName)
	}
	sort.Strings(names)
	return names
}

func setStringRow(f *excelize.File, sheet string, row int, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &cells)
}
