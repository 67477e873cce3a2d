package infra

import (
	"fmt"
	"strings"
)

// ZPLLabel renders a 2" × 1" (406 × 200 dots at 203 dpi) shelf label with the
// price, the SKU in text and a QR code of the SKU.
func ZPLLabel(sku string, price float64) string {
	sku = zplEscape(sku)
	var b strings.Builder
	b.WriteString("^XA\n")
	b.WriteString("^PW406\n")
	b.WriteString("^LL200\n")
	b.WriteString("^CI28\n")
	fmt.Fprintf(&b, "^FO20,20^A0N,50,50^FD$%.2f^FS\n", price)
	fmt.Fprintf(&b, "^FO20,90^A0N,28,28^FD%s^FS\n", sku)
	fmt.Fprintf(&b, "^FO260,30^BQN,2,5^FDLA,%s^FS\n", sku)
	b.WriteString("^XZ\n")
	return b.String()
}

// zplEscape drops the characters that start ZPL commands.
func zplEscape(s string) string {
	return strings.NewReplacer("^", "", "~", "").Replace(s)
}
