package normalize

// Canonical lifecycle values. The set is closed.
const (
	StatusDisponible = "Disponible"
	StatusVendido    = "Vendido"

	DisponibilidadSi = "Disponible"
	DisponibilidadNo = "No disponible"
)

var statusSynonyms = map[string]string{
	"vendido":    StatusVendido,
	"existente":  StatusDisponible,
	"en stock":   StatusDisponible,
	"disponible": StatusDisponible,
	"activo":     StatusDisponible,
}

var disponibilidadSynonyms = map[string]string{
	"no disponible": DisponibilidadNo,
	"agotado":       DisponibilidadNo,
	"sin stock":     DisponibilidadNo,
	"0":             DisponibilidadNo,
	"disponible":    DisponibilidadSi,
	"en stock":      DisponibilidadSi,
	"1":             DisponibilidadSi,
	"si":            DisponibilidadSi,
}

// NormalizeStatus maps free-text status synonyms to the canonical enum.
// Unknown or empty input yields "".
func NormalizeStatus(raw string) string {
	return statusSynonyms[NormalizeText(raw)]
}

// NormalizeDisponibilidad maps availability synonyms to the canonical enum.
// A sold garment is never available, whatever the raw value says.
func NormalizeDisponibilidad(raw, statusCanon string) string {
	if statusCanon == StatusVendido {
		return DisponibilidadNo
	}
	if canon, ok := disponibilidadSynonyms[NormalizeText(raw)]; ok {
		return canon
	}
	return DisponibilidadSi
}
