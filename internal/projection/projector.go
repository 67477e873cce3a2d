// Package projection derives the customer-safe public view and the full
// admin view of a garment from its master record.
package projection

import (
	"errors"
	"fmt"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/search"

	"github.com/shopspring/decimal"
)

// LegacyTaxRate is applied to a bare "precio" when no tax-inclusive price exists.
var LegacyTaxRate = decimal.NewFromFloat(1.16)

// FieldProjectedAt is the server-assigned write timestamp on admin views.
const FieldProjectedAt = "projectedAt"

// ErrInvalidRecord wraps every record-level projection failure.
var ErrInvalidRecord = errors.New("registro inválido")

// adminOnly never appears in a public view.
var adminOnly = []string{
	normalize.FieldCosto,
	normalize.FieldUtilidad,
	normalize.FieldMargen,
	normalize.FieldProviderCode,
	normalize.FieldTypeCode,
	normalize.FieldSeqNumber,
	normalize.FieldIVA,
	normalize.FieldCantidad,
	normalize.FieldCostoSubtotal,
	normalize.FieldSource,
	FieldProjectedAt,
}

// Views is the pair of payloads derived from one master record.
type Views struct {
	Public map[string]any
	Admin  map[string]any
}

// Projector is pure apart from the injected clock used for projectedAt.
type Projector struct {
	now func() time.Time
}

func New(now func() time.Time) *Projector {
	if now == nil {
		now = time.Now
	}
	return &Projector{now: now}
}

// Project derives both views. docID is the master key; it stands in for the
// code when the record carries none. Extra fields in master are ignored.
func (p *Projector) Project(docID string, master map[string]any) (Views, error) {
	codigo := normalize.NormalizeCodigo(normalize.ResolveString(master, normalize.FieldCodigo))
	if codigo == "" {
		codigo = normalize.NormalizeCodigo(normalize.FromSafeDocID(docID))
	}
	if codigo == "" {
		return Views{}, fmt.Errorf("%w: sin código", ErrInvalidRecord)
	}

	price, hasPrice := SalePrice(master)
	costo, hasCosto := normalize.Currency(resolved(master, normalize.FieldCosto))
	if hasPrice && price < 0 {
		return Views{}, fmt.Errorf("%w: precio negativo (%v)", ErrInvalidRecord, price)
	}
	if hasCosto && costo < 0 {
		return Views{}, fmt.Errorf("%w: costo negativo (%v)", ErrInvalidRecord, costo)
	}

	pub := map[string]any{normalize.FieldCodigo: codigo}
	for _, f := range []string{
		normalize.FieldDescripcion, normalize.FieldTipo, normalize.FieldColor,
		normalize.FieldTalla, normalize.FieldProveedor,
	} {
		if s := normalize.ResolveString(master, f); s != "" {
			pub[f] = s
		}
	}

	statusRaw := normalize.ResolveString(master, normalize.FieldStatus)
	statusCanon := normalize.NormalizeStatus(statusRaw)
	dispRaw := normalize.ResolveString(master, normalize.FieldDisponibilidad)
	dispCanon := normalize.NormalizeDisponibilidad(dispRaw, statusCanon)
	pub[normalize.FieldStatus] = statusRaw
	pub[normalize.FieldStatusCanon] = statusCanon
	pub[normalize.FieldDisponibilidad] = dispRaw
	pub[normalize.FieldDisponibilidadCanon] = dispCanon

	if fecha, ok, _ := normalize.ParseFecha(resolved(master, normalize.FieldFechaAlta)); ok {
		pub[normalize.FieldFechaAlta] = fecha.Date
		pub[normalize.FieldFechaAltaTexto] = fecha.Text
		pub[normalize.FieldFecha] = fecha.Date
		pub[normalize.FieldFechaTexto] = fecha.Text
	} else if text := normalize.ResolveString(master, normalize.FieldFechaAltaTexto); text != "" {
		pub[normalize.FieldFechaAltaTexto] = text
		pub[normalize.FieldFechaTexto] = text
	}

	if hasPrice {
		pub[normalize.FieldPrecioConIva] = price
		pub[normalize.FieldPVenta] = price
	} else {
		pub[normalize.FieldPrecioConIva] = nil
		pub[normalize.FieldPVenta] = nil
	}

	parts, codeErr := normalize.ParseCodigo(codigo)
	if orden, ok := resolveOrden(master, parts, codeErr == nil); ok {
		pub[normalize.FieldOrden] = orden
	}

	if tokens := search.StoredTokens(master); len(tokens) > 0 {
		pub[search.FieldTokens] = tokens
	}
	if created, ok := master[normalize.FieldCreatedAt]; ok && created != nil {
		pub[normalize.FieldCreatedAt] = created
	}

	adm := make(map[string]any, len(pub)+len(adminOnly))
	for k, v := range pub {
		adm[k] = v
	}
	adm[normalize.FieldCosto] = nil
	if hasCosto {
		adm[normalize.FieldCosto] = costo
	}
	utilidad, margen := Margin(price, hasPrice, costo, hasCosto)
	adm[normalize.FieldUtilidad] = utilidad
	adm[normalize.FieldMargen] = margen

	if codeErr == nil {
		adm[normalize.FieldProviderCode] = parts.ProviderCode
		adm[normalize.FieldTypeCode] = parts.TypeCode
		adm[normalize.FieldSeqNumber] = parts.SeqNumber
	}
	if iva, ok := normalize.ToFixedNumber(resolved(master, normalize.FieldIVA), normalize.RateDigits); ok {
		adm[normalize.FieldIVA] = iva
	}
	if n, ok := normalize.ToNumber(resolved(master, normalize.FieldCantidad)); ok {
		adm[normalize.FieldCantidad] = n
	}
	if n, ok := normalize.Currency(resolved(master, normalize.FieldCostoSubtotal)); ok {
		adm[normalize.FieldCostoSubtotal] = n
	}
	if src := normalize.ResolveString(master, normalize.FieldSource); src != "" {
		adm[normalize.FieldSource] = src
	}
	adm[FieldProjectedAt] = p.now().UTC()

	return Views{Public: pub, Admin: adm}, nil
}

// SalePrice resolves pVenta -> precioConIva -> precio x 1.16. The first
// finite value wins; each step is rounded to 2 places.
func SalePrice(master map[string]any) (float64, bool) {
	if v, ok := normalize.Currency(resolved(master, normalize.FieldPVenta)); ok {
		return v, true
	}
	if v, ok := normalize.Currency(resolved(master, normalize.FieldPrecioConIva)); ok {
		return v, true
	}
	if v, ok := normalize.ToNumber(resolved(master, normalize.FieldPrecio)); ok {
		f, _ := decimal.NewFromFloat(v).Mul(LegacyTaxRate).Round(normalize.CurrencyDigits).Float64()
		return f, true
	}
	return 0, false
}

// Margin returns utilidad (price - cost, 2 places) and margen (utilidad over
// cost as a percentage, 1 place). Either is nil when undefined; margen is
// only defined for a strictly positive cost.
func Margin(price float64, hasPrice bool, costo float64, hasCosto bool) (utilidad, margen any) {
	if !hasPrice || !hasCosto {
		return nil, nil
	}
	u := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(costo)).Round(normalize.CurrencyDigits)
	uf, _ := u.Float64()
	if costo <= 0 {
		return uf, nil
	}
	m, _ := u.Div(decimal.NewFromFloat(costo)).Mul(decimal.NewFromInt(100)).Round(normalize.PercentDigits).Float64()
	return uf, m
}

func resolveOrden(master map[string]any, parts normalize.CodigoParts, parsed bool) (int, bool) {
	if n, ok := normalize.ToInt(resolved(master, normalize.FieldOrden)); ok {
		return n, true
	}
	if n, ok := normalize.ToInt(resolved(master, normalize.FieldSeqNumber)); ok {
		return n, true
	}
	if parsed {
		return parts.SeqNumber, true
	}
	return 0, false
}

func resolved(rec map[string]any, field string) any {
	v, _ := normalize.Resolve(rec, field)
	return v
}

// AdminOnlyFields lists the keys that must never reach a public view.
func AdminOnlyFields() []string {
	out := make([]string, len(adminOnly))
	copy(out, adminOnly)
	return out
}
