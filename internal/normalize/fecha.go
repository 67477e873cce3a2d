package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateTextLayout is the display format stored next to every date (DD/MM/YYYY).
const DateTextLayout = "02/01/2006"

var (
	ErrFechaInvalida = errors.New("fecha inválida")

	dayMonthYear = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
)

// Fecha is a calendar date (midnight UTC) plus its display text.
type Fecha struct {
	Date time.Time
	Text string
}

// ParseFecha reads a date from a time value, an Excel serial number, a
// dd/mm/yyyy or dd-mm-yyyy string, or an RFC 3339 / yyyy-mm-dd string.
// ok is false for empty input; err is set for non-empty unparseable input.
func ParseFecha(v any) (f Fecha, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return Fecha{}, false, nil
	case time.Time:
		if x.IsZero() {
			return Fecha{}, false, nil
		}
		return dateOnly(x), true, nil
	case float64, float32, int, int64, int32:
		n, _ := ToNumber(x)
		return fromSerial(n)
	}

	raw := Stringify(v)
	if raw == "" {
		return Fecha{}, false, nil
	}
	if m := dayMonthYear.FindStringSubmatch(raw); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Day() != day || int(t.Month()) != month {
			return Fecha{}, false, fmt.Errorf("%w (%s)", ErrFechaInvalida, raw)
		}
		return dateOnly(t), true, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, perr := time.Parse(layout, raw); perr == nil {
			return dateOnly(t), true, nil
		}
	}
	if n, isNum := ToNumber(raw); isNum && !strings.ContainsAny(raw, "/-") {
		return fromSerial(n)
	}
	return Fecha{}, false, fmt.Errorf("%w (%s)", ErrFechaInvalida, raw)
}

func fromSerial(serial float64) (Fecha, bool, error) {
	if serial <= 0 {
		return Fecha{}, false, fmt.Errorf("%w (%v)", ErrFechaInvalida, serial)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return Fecha{}, false, fmt.Errorf("%w (%v)", ErrFechaInvalida, serial)
	}
	return dateOnly(t), true, nil
}

func dateOnly(t time.Time) Fecha {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Fecha{Date: d, Text: d.Format(DateTextLayout)}
}
