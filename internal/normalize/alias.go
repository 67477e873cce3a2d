package normalize

// Canonical catalog field names.
const (
	FieldCodigo              = "codigo"
	FieldDescripcion         = "descripcion"
	FieldTipo                = "tipo"
	FieldColor               = "color"
	FieldTalla               = "talla"
	FieldProveedor           = "proveedor"
	FieldStatus              = "status"
	FieldStatusCanon         = "statusCanon"
	FieldDisponibilidad      = "disponibilidad"
	FieldDisponibilidadCanon = "disponibilidadCanon"
	FieldCosto               = "costo"
	FieldPrecio              = "precio"
	FieldIVA                 = "iva"
	FieldPrecioConIva        = "precioConIva"
	FieldPVenta              = "pVenta"
	FieldUtilidad            = "utilidad"
	FieldMargen              = "margen"
	FieldOrden               = "orden"
	FieldSeqNumber           = "seqNumber"
	FieldProviderCode        = "providerCode"
	FieldTypeCode            = "typeCode"
	FieldFecha               = "fecha"
	FieldFechaTexto          = "fechaTexto"
	FieldFechaAlta           = "fechaAlta"
	FieldFechaAltaTexto      = "fechaAltaTexto"
	FieldCantidad            = "cantidad"
	FieldCostoSubtotal       = "costoSubtotal"
	FieldSource              = "source"
	FieldCreatedAt           = "createdAt"
	FieldUpdatedAt           = "updatedAt"
)

// fieldAlias lists, in precedence order, every historical spelling of a
// canonical field. The first key present with a non-empty value wins.
type fieldAlias struct {
	field string
	keys  []string
}

var aliasTable = []fieldAlias{
	{FieldCodigo, []string{"codigo", "Codigo", "CODIGO", "code", "Code", "sku", "SKU"}},
	{FieldDescripcion, []string{"descripcion", "Descripcion", "DESCRIPCION", "detalles", "Detalles", "description"}},
	{FieldTipo, []string{"tipo", "Tipo", "type"}},
	{FieldColor, []string{"color", "Color"}},
	{FieldTalla, []string{"talla", "Talla", "size"}},
	{FieldProveedor, []string{"proveedor", "Proveedor", "provider"}},
	{FieldStatus, []string{"status", "Status", "statusCanon"}},
	{FieldDisponibilidad, []string{"disponibilidad", "Disponibilidad", "disponibilidadCanon"}},
	{FieldCosto, []string{"costo", "Costo", "costoUnitario", "costo_unitario", "cost"}},
	{FieldPrecio, []string{"precio", "Precio", "price"}},
	{FieldPrecioConIva, []string{"precioConIva", "precioConIVA", "PrecioConIva"}},
	{FieldPVenta, []string{"pVenta", "PVenta", "p_venta", "precioVenta"}},
	{FieldIVA, []string{"iva", "IVA", "Iva"}},
	{FieldOrden, []string{"orden", "Orden"}},
	{FieldSeqNumber, []string{"seqNumber", "seq", "secuencia"}},
	{FieldFechaAlta, []string{"fechaAlta", "fecha", "Fecha"}},
	{FieldFechaAltaTexto, []string{"fechaAltaTexto", "fechaTexto", "FechaTexto"}},
	{FieldCantidad, []string{"cantidad", "Cantidad"}},
	{FieldCostoSubtotal, []string{"costoSubtotal", "costoSubt"}},
	{FieldProviderCode, []string{"providerCode"}},
	{FieldTypeCode, []string{"typeCode"}},
	{FieldSource, []string{"source"}},
	{FieldCreatedAt, []string{"createdAt"}},
}

var aliasIndex = func() map[string][]string {
	idx := make(map[string][]string, len(aliasTable))
	for _, a := range aliasTable {
		idx[a.field] = a.keys
	}
	return idx
}()

// Resolve returns the value of a canonical field looked up through its
// aliases. Fields outside the table resolve by their own name.
func Resolve(rec map[string]any, field string) (any, bool) {
	keys, ok := aliasIndex[field]
	if !ok {
		keys = []string{field}
	}
	for _, k := range keys {
		v, present := rec[k]
		if present && !isEmpty(v) {
			return v, true
		}
	}
	return nil, false
}

// ResolveString is Resolve rendered through Stringify.
func ResolveString(rec map[string]any, field string) string {
	v, _ := Resolve(rec, field)
	return Stringify(v)
}

// Canonicalize returns a new map holding only canonical keys for every
// aliased field present in rec. Unknown keys are dropped.
func Canonicalize(rec map[string]any) map[string]any {
	out := make(map[string]any, len(aliasTable))
	for _, a := range aliasTable {
		if v, ok := Resolve(rec, a.field); ok {
			out[a.field] = v
		}
	}
	return out
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return Stringify(x) == ""
	}
	return false
}
