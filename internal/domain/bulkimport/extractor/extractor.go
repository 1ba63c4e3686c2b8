package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// ParseError means the file could not be decoded as tabular data at all.
// It is fatal to the whole import session, unlike per-row validation errors.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot read file as %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extract sniffs the file format from its magic bytes and decodes it into the
// layout's raw rows. The leading header and instruction rows are skipped, and
// rows whose anchor fields are all blank are dropped.
func Extract(data []byte, layout Layout) ([]RawRow, error) {
	switch {
	case len(data) >= 2 && data[0] == 0x50 && data[1] == 0x4B: // zip container
		return ExtractXLSX(data, layout)
	case len(data) >= 4 && data[0] == 0xD0 && data[1] == 0xCF && data[2] == 0x11 && data[3] == 0xE0: // OLE2 container
		return ExtractXLS(data, layout)
	default:
		return ExtractCSV(data, layout)
	}
}

// ExtractXLSX decodes a modern Excel workbook. Cells are read raw, so date
// cells surface as spreadsheet serial numbers and numbers keep their full
// precision.
func ExtractXLSX(data []byte, layout Layout) ([]RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Format: "xlsx", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Format: "xlsx", Err: fmt.Errorf("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Format: "xlsx", Err: err}
	}

	return collectRows(rows, layout), nil
}

// ExtractXLS decodes a legacy BIFF workbook, still common on farm office
// machines.
func ExtractXLS(data []byte, layout Layout) ([]RawRow, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Format: "xls", Err: err}
	}

	sheet, err := wb.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, &ParseError{Format: "xls", Err: fmt.Errorf("workbook has no sheets")}
	}

	var grid [][]string
	for _, xlsRow := range sheet.GetRows() {
		var cells []string
		for _, col := range xlsRow.GetCols() {
			cells = append(cells, col.GetString())
		}
		grid = append(grid, cells)
	}

	return collectRows(grid, layout), nil
}

// csvRow carries every column label either layout can produce; gocsv matches
// by header name, so unknown layouts simply leave fields empty.
type csvRow struct {
	Fecha         string `csv:"Fecha"`
	Negocio       string `csv:"Negocio"`
	Region        string `csv:"Región"`
	Categoria     string `csv:"Categoría"`
	Concepto      string `csv:"Concepto"`
	Proveedor     string `csv:"Proveedor"`
	Comprador     string `csv:"Comprador"`
	MedioPago     string `csv:"Medio de Pago"`
	NombreGasto   string `csv:"Nombre del Gasto"`
	NombreIngreso string `csv:"Nombre del Ingreso"`
	Valor         string `csv:"Valor"`
	Observaciones string `csv:"Observaciones"`
	Estado        string `csv:"Estado"`
}

// ExtractCSV decodes a comma-separated export of the template. The header row
// is consumed by gocsv; the instruction row below it is dropped by position.
func ExtractCSV(data []byte, layout Layout) ([]RawRow, error) {
	data = stripUTF8BOM(data)

	var parsed []csvRow
	if err := gocsv.UnmarshalBytes(data, &parsed); err != nil {
		return nil, &ParseError{Format: "csv", Err: err}
	}

	// gocsv already consumed the header; skip the remaining leading rows
	// (the instruction row).
	skip := layout.SkipRows - 1
	if skip < 0 {
		skip = 0
	}

	var rows []RawRow
	for i, r := range parsed {
		if i < skip {
			continue
		}
		row := RawRow{
			Line:          i + 2, // header occupies line 1
			Fecha:         strings.TrimSpace(r.Fecha),
			Negocio:       strings.TrimSpace(r.Negocio),
			Region:        strings.TrimSpace(r.Region),
			Categoria:     strings.TrimSpace(r.Categoria),
			Concepto:      strings.TrimSpace(r.Concepto),
			Proveedor:     strings.TrimSpace(r.Proveedor),
			Comprador:     strings.TrimSpace(r.Comprador),
			MedioPago:     strings.TrimSpace(r.MedioPago),
			Valor:         strings.TrimSpace(r.Valor),
			Observaciones: strings.TrimSpace(r.Observaciones),
			Estado:        strings.TrimSpace(r.Estado),
		}
		if layout.RecordType == RecordTypeIncome {
			row.Nombre = strings.TrimSpace(r.NombreIngreso)
		} else {
			row.Nombre = strings.TrimSpace(r.NombreGasto)
		}
		if row.blankAnchors() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// collectRows applies the skip offset and blank-anchor filtering to a
// positional cell grid.
func collectRows(grid [][]string, layout Layout) []RawRow {
	var rows []RawRow
	for i := layout.SkipRows; i < len(grid); i++ {
		row := layout.mapRow(grid[i], i+1)
		if row.blankAnchors() {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func stripUTF8BOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
