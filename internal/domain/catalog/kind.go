// Package catalog implements free-text reconciliation against the farm's
// normalized catalogs (negocios, regiones, categorías, conceptos, proveedores,
// compradores, medios de pago). Lookups are case-insensitive and auto-creation
// is limited to the open kinds.
package catalog

import "strings"

// Kind identifies a catalog table.
type Kind string

const (
	KindNegocio          Kind = "negocio"
	KindRegion           Kind = "region"
	KindCategoriaGasto   Kind = "categoria_gasto"
	KindConceptoGasto    Kind = "concepto_gasto"
	KindProveedor        Kind = "proveedor"
	KindCategoriaIngreso Kind = "categoria_ingreso"
	KindComprador        Kind = "comprador"
	KindMedioPago        Kind = "medio_pago"
)

// Kinds lists every catalog kind, in display order.
var Kinds = []Kind{
	KindNegocio,
	KindRegion,
	KindCategoriaGasto,
	KindConceptoGasto,
	KindProveedor,
	KindCategoriaIngreso,
	KindComprador,
	KindMedioPago,
}

// Closed reports whether an unknown reference to this kind is a hard
// validation error. A wrongly auto-created business unit or region is far more
// expensive to clean up than a rejected row, so those kinds never auto-create.
func (k Kind) Closed() bool {
	switch k {
	case KindNegocio, KindRegion, KindCategoriaGasto, KindMedioPago:
		return true
	}
	return false
}

// Open reports whether a miss on this kind triggers auto-creation.
func (k Kind) Open() bool { return !k.Closed() }

// Label returns the user-facing Spanish label for the kind, matching the
// template column headers.
func (k Kind) Label() string {
	switch k {
	case KindNegocio:
		return "Negocio"
	case KindRegion:
		return "Región"
	case KindCategoriaGasto:
		return "Categoría"
	case KindConceptoGasto:
		return "Concepto"
	case KindProveedor:
		return "Proveedor"
	case KindCategoriaIngreso:
		return "Categoría"
	case KindComprador:
		return "Comprador"
	case KindMedioPago:
		return "Medio de Pago"
	}
	return string(k)
}

// Normalize converts a free-text catalog reference to its canonical matching
// form: surrounding whitespace trimmed, case folded. "Urea" and " urea "
// normalize to the same key.
func Normalize(rawName string) string {
	return strings.ToLower(strings.TrimSpace(rawName))
}
