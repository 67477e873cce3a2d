package normalize

import (
	"errors"
	"strconv"
	"strings"
)

// ErrCodigoInvalido marks a code that does not follow HA{provider}{type}{seq}/{suffix}.
var ErrCodigoInvalido = errors.New("código con formato inválido")

// CodigoParts are the components encoded in a garment SKU.
type CodigoParts struct {
	ProviderCode string
	TypeCode     string
	SeqNumber    int
}

// ParseCodigo decodes "HA{provider}{type}{seq3}/{color}-{talla}".
// The provider may be one or more characters, the type is the single
// character before the three-digit sequence. Example: HA4A027/BG-M.
func ParseCodigo(raw string) (CodigoParts, error) {
	s := NormalizeCodigo(raw)
	slash := strings.Index(s, PathSeparator)
	if !strings.HasPrefix(s, "HA") || slash == -1 {
		return CodigoParts{}, ErrCodigoInvalido
	}
	body := s[2:slash]
	if len(body) < 5 {
		return CodigoParts{}, ErrCodigoInvalido
	}
	seqStr := body[len(body)-3:]
	for _, r := range seqStr {
		if r < '0' || r > '9' {
			return CodigoParts{}, ErrCodigoInvalido
		}
	}
	seq, err := strconv.Atoi(seqStr)
	if err != nil {
		return CodigoParts{}, ErrCodigoInvalido
	}
	return CodigoParts{
		ProviderCode: body[:len(body)-4],
		TypeCode:     body[len(body)-4 : len(body)-3],
		SeqNumber:    seq,
	}, nil
}
