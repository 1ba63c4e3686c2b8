package extractor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes a minimal upload workbook: header row, instruction
// row, then the given data rows.
func buildWorkbook(t *testing.T, layout Layout, dataRows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]any, len(layout.Columns))
	for i, col := range layout.Columns {
		header[i] = col
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))

	instruction := []any{"Complete una fila por registro. No borre esta fila."}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &instruction))

	for i, row := range dataRows {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestExtract_XLSX(t *testing.T) {
	t.Run("maps data rows positionally below the instruction row", func(t *testing.T) {
		data := buildWorkbook(t, ExpenseLayout, [][]any{
			{45672, "Aguacates", "Norte", "Insumos", "Fertilizante", "Agroinsumos SA", "Efectivo", "Urea bulto", 125000, "compra mensual", "Confirmado"},
			{"2025-02-01", "Ganadería", "Sur", "Nómina", "Jornal", "", "Transferencia", "Jornal semana 5", "890000.50", "", ""},
		})

		rows, err := Extract(data, ExpenseLayout)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		first := rows[0]
		assert.Equal(t, 3, first.Line)
		assert.Equal(t, "45672", first.Fecha)
		assert.Equal(t, "Aguacates", first.Negocio)
		assert.Equal(t, "Norte", first.Region)
		assert.Equal(t, "Insumos", first.Categoria)
		assert.Equal(t, "Fertilizante", first.Concepto)
		assert.Equal(t, "Agroinsumos SA", first.Proveedor)
		assert.Equal(t, "Efectivo", first.MedioPago)
		assert.Equal(t, "Urea bulto", first.Nombre)
		assert.Equal(t, "125000", first.Valor)
		assert.Equal(t, "compra mensual", first.Observaciones)
		assert.Equal(t, "Confirmado", first.Estado)

		second := rows[1]
		assert.Equal(t, 4, second.Line)
		assert.Equal(t, "2025-02-01", second.Fecha)
		assert.Empty(t, second.Proveedor)
		assert.Empty(t, second.Estado)
	})

	t.Run("skips rows with all anchor fields blank", func(t *testing.T) {
		data := buildWorkbook(t, ExpenseLayout, [][]any{
			{"45672", "Aguacates", "Norte", "Insumos", "Fertilizante", "", "Efectivo", "Urea", "125000", "", ""},
			{"", "", "", "", "", "", "", "", "", "", ""},
			{"", "", "Norte", "", "", "", "", "", "", "", ""}, // anchors blank, region filled
			{"45673", "Aguacates", "Norte", "Insumos", "Cal", "", "Efectivo", "Cal agrícola", "80000", "", ""},
		})

		rows, err := Extract(data, ExpenseLayout)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Urea", rows[0].Nombre)
		assert.Equal(t, "Cal agrícola", rows[1].Nombre)
		assert.Equal(t, 6, rows[1].Line)
	})

	t.Run("keeps unmapped trailing columns in Extras", func(t *testing.T) {
		data := buildWorkbook(t, ExpenseLayout, [][]any{
			{"45672", "Aguacates", "Norte", "Insumos", "Fertilizante", "", "Efectivo", "Urea", "125000", "", "", "nota extra"},
		})

		rows, err := Extract(data, ExpenseLayout)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "nota extra", rows[0].Extras["L"])
	})

	t.Run("income layout maps comprador and nombre del ingreso", func(t *testing.T) {
		data := buildWorkbook(t, IncomeLayout, [][]any{
			{"45672", "Aguacates", "Norte", "Venta de fruta", "Exportadora Sur", "Transferencia", "Venta lote 4", "2400000", "exportación"},
		})

		rows, err := Extract(data, IncomeLayout)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Exportadora Sur", rows[0].Comprador)
		assert.Equal(t, "Venta lote 4", rows[0].Nombre)
		assert.Empty(t, rows[0].Concepto)
	})
}

func TestExtract_CSV(t *testing.T) {
	t.Run("drops the instruction row below the header", func(t *testing.T) {
		csv := "Fecha,Negocio,Región,Categoría,Concepto,Proveedor,Medio de Pago,Nombre del Gasto,Valor,Observaciones,Estado\n" +
			"Complete una fila por registro,,,,,,,,,,\n" +
			"2025-01-15,Aguacates,Norte,Insumos,Fertilizante,Agroinsumos SA,Efectivo,Urea bulto,125000,,Confirmado\n"

		rows, err := Extract([]byte(csv), ExpenseLayout)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Urea bulto", rows[0].Nombre)
		assert.Equal(t, "Confirmado", rows[0].Estado)
		assert.Equal(t, 3, rows[0].Line)
	})

	t.Run("tolerates a UTF-8 BOM", func(t *testing.T) {
		csv := "\xEF\xBB\xBFFecha,Negocio,Región,Categoría,Comprador,Medio de Pago,Nombre del Ingreso,Valor,Observaciones\n" +
			"instrucciones,,,,,,,,\n" +
			"2025-01-15,Aguacates,Norte,Venta de fruta,Exportadora Sur,Efectivo,Venta lote 4,2400000,\n"

		rows, err := Extract([]byte(csv), IncomeLayout)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "2025-01-15", rows[0].Fecha)
	})
}

func TestExtract_ParseError(t *testing.T) {
	t.Run("corrupt zip container", func(t *testing.T) {
		_, err := Extract([]byte("PK\x03\x04 this is not a workbook"), ExpenseLayout)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "xlsx", parseErr.Format)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := Extract(nil, ExpenseLayout)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "csv", parseErr.Format)
	})
}
