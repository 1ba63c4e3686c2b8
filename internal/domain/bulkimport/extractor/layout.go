// Package extractor decodes uploaded spreadsheets (xlsx, legacy xls, csv)
// into ordered raw rows using the fixed carga-masiva column layouts.
package extractor

import "strings"

// RecordType selects which import layout applies.
type RecordType string

const (
	RecordTypeExpense RecordType = "gastos"
	RecordTypeIncome  RecordType = "ingresos"
)

// Valid reports whether rt is a known record type.
func (rt RecordType) Valid() bool {
	return rt == RecordTypeExpense || rt == RecordTypeIncome
}

// Column labels as they appear in the template header row.
const (
	ColFecha         = "Fecha"
	ColNegocio       = "Negocio"
	ColRegion        = "Región"
	ColCategoria     = "Categoría"
	ColConcepto      = "Concepto"
	ColProveedor     = "Proveedor"
	ColComprador     = "Comprador"
	ColMedioPago     = "Medio de Pago"
	ColNombreGasto   = "Nombre del Gasto"
	ColNombreIngreso = "Nombre del Ingreso"
	ColValor         = "Valor"
	ColObservaciones = "Observaciones"
	ColEstado        = "Estado"
)

// Layout fixes the column order and leading-row offset for one record type.
// Data starts below the header row and the human-instruction row.
type Layout struct {
	RecordType RecordType
	Columns    []string
	SkipRows   int
}

// ExpenseLayout is the fixed column mapping for expense uploads.
var ExpenseLayout = Layout{
	RecordType: RecordTypeExpense,
	Columns: []string{
		ColFecha, ColNegocio, ColRegion, ColCategoria, ColConcepto,
		ColProveedor, ColMedioPago, ColNombreGasto, ColValor,
		ColObservaciones, ColEstado,
	},
	SkipRows: 2,
}

// IncomeLayout is the fixed column mapping for income uploads.
var IncomeLayout = Layout{
	RecordType: RecordTypeIncome,
	Columns: []string{
		ColFecha, ColNegocio, ColRegion, ColCategoria, ColComprador,
		ColMedioPago, ColNombreIngreso, ColValor, ColObservaciones,
	},
	SkipRows: 2,
}

// LayoutFor returns the layout for a record type.
func LayoutFor(rt RecordType) Layout {
	if rt == RecordTypeIncome {
		return IncomeLayout
	}
	return ExpenseLayout
}

// NameColumn returns the display-name column label for the layout's type.
func (l Layout) NameColumn() string {
	if l.RecordType == RecordTypeIncome {
		return ColNombreIngreso
	}
	return ColNombreGasto
}

// RawRow is one spreadsheet line mapped onto the fixed columns. All cell
// values are kept as raw strings (date cells arrive as spreadsheet serial
// numbers); normalization happens downstream. Columns beyond the fixed layout
// land in Extras.
type RawRow struct {
	Line          int // 1-based spreadsheet line, for error reporting
	Fecha         string
	Negocio       string
	Region        string
	Categoria     string
	Concepto      string
	Proveedor     string
	Comprador     string
	MedioPago     string
	Nombre        string
	Valor         string
	Observaciones string
	Estado        string
	Extras        map[string]string
}

// blankAnchors reports whether the three anchor fields (date, business unit,
// display name) are all empty. Such rows are trailing filler and are skipped.
func (r RawRow) blankAnchors() bool {
	return strings.TrimSpace(r.Fecha) == "" &&
		strings.TrimSpace(r.Negocio) == "" &&
		strings.TrimSpace(r.Nombre) == ""
}

// mapRow assigns positional cell values onto a RawRow per the layout order.
func (l Layout) mapRow(cells []string, line int) RawRow {
	row := RawRow{Line: line}
	for i, value := range cells {
		value = strings.TrimSpace(value)
		if i >= len(l.Columns) {
			if value != "" {
				if row.Extras == nil {
					row.Extras = make(map[string]string)
				}
				row.Extras[extraKey(i)] = value
			}
			continue
		}
		row.set(l.Columns[i], value)
	}
	return row
}

func (r *RawRow) set(label, value string) {
	switch label {
	case ColFecha:
		r.Fecha = value
	case ColNegocio:
		r.Negocio = value
	case ColRegion:
		r.Region = value
	case ColCategoria:
		r.Categoria = value
	case ColConcepto:
		r.Concepto = value
	case ColProveedor:
		r.Proveedor = value
	case ColComprador:
		r.Comprador = value
	case ColMedioPago:
		r.MedioPago = value
	case ColNombreGasto, ColNombreIngreso:
		r.Nombre = value
	case ColValor:
		r.Valor = value
	case ColObservaciones:
		r.Observaciones = value
	case ColEstado:
		r.Estado = value
	}
}

func extraKey(i int) string {
	// Spreadsheet-style column letters: 11 -> "L", 26 -> "AA".
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}
