package normalize

import (
	"sort"
	"strings"
)

// Spreadsheet columns the importer understands. More specific fields come
// first so "precio con iva" is claimed before "precio" in the contains pass.
var headerAliases = []fieldAlias{
	{FieldCodigo, []string{"codigo", "code", "sku"}},
	{FieldPrecioConIva, []string{"precio con iva", "precio con iv", "precioconiva"}},
	{FieldPVenta, []string{"p. venta", "p venta", "pventa", "precio venta", "precio de venta"}},
	{FieldCostoSubtotal, []string{"costo subt", "costo subtotal"}},
	{FieldIVA, []string{"iva (16%)", "iva"}},
	{FieldTipo, []string{"tipo"}},
	{FieldColor, []string{"color"}},
	{FieldTalla, []string{"talla"}},
	{FieldDescripcion, []string{"descripcion", "detalles"}},
	{FieldStatus, []string{"status", "estatus", "estado"}},
	{FieldDisponibilidad, []string{"disponibilidad"}},
	{FieldProveedor, []string{"proveedor"}},
	{FieldFechaAlta, []string{"fecha", "fecha alta", "fecha de alta"}},
	{FieldCosto, []string{"costo", "costo unitario"}},
	{FieldCantidad, []string{"cantidad"}},
	{FieldMargen, []string{"margen"}},
	{FieldPrecio, []string{"precio"}},
}

// NormalizeHeader folds a header cell for alias comparison.
func NormalizeHeader(h string) string {
	return strings.Join(strings.Fields(NormalizeText(h)), " ")
}

// IsHeaderField reports whether field is a column the importer understands.
func IsHeaderField(field string) bool {
	for _, a := range headerAliases {
		if a.field == field {
			return true
		}
	}
	return false
}

// withExtraAliases puts caller aliases ahead of the defaults of each field.
// Fields outside the default table are ignored.
func withExtraAliases(extra map[string][]string) []fieldAlias {
	if len(extra) == 0 {
		return headerAliases
	}
	out := make([]fieldAlias, len(headerAliases))
	for i, a := range headerAliases {
		keys := make([]string, 0, len(extra[a.field])+len(a.keys))
		for _, k := range extra[a.field] {
			if k = NormalizeHeader(k); k != "" {
				keys = append(keys, k)
			}
		}
		out[i] = fieldAlias{field: a.field, keys: append(keys, a.keys...)}
	}
	return out
}

// UnknownHeaderFields lists the keys of extra that are not importer fields.
func UnknownHeaderFields(extra map[string][]string) []string {
	var unknown []string
	for field := range extra {
		if !IsHeaderField(field) {
			unknown = append(unknown, field)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// ResolveHeaders maps canonical fields to column indexes. Exact alias matches
// are resolved first; remaining fields then claim the first unclaimed column
// whose header contains one of their aliases.
func ResolveHeaders(row []string) map[string]int {
	return ResolveHeadersWith(row, nil)
}

// ResolveHeadersWith is ResolveHeaders with extra per-field aliases.
func ResolveHeadersWith(row []string, extra map[string][]string) map[string]int {
	aliases := withExtraAliases(extra)
	headers := make([]string, len(row))
	for i, cell := range row {
		headers[i] = NormalizeHeader(cell)
	}

	cols := make(map[string]int)
	claimed := make(map[int]bool)

	for _, a := range aliases {
		for i, h := range headers {
			if h == "" || claimed[i] {
				continue
			}
			if containsString(a.keys, h) {
				cols[a.field] = i
				claimed[i] = true
				break
			}
		}
	}

	for _, a := range aliases {
		if _, done := cols[a.field]; done {
			continue
		}
	columns:
		for i, h := range headers {
			if h == "" || claimed[i] {
				continue
			}
			for _, k := range a.keys {
				if strings.Contains(h, k) {
					cols[a.field] = i
					claimed[i] = true
					break columns
				}
			}
		}
	}
	return cols
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
