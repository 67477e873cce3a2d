package infra

// pdf.go: printable loyalty card (go-pdf/fpdf).
// Two CR80-size pages (85.6mm × 54mm):
//   - front: store name, member name, client id, level, points, card link
//   - back:  reward catalog, available tiers marked with "*"

import (
	"bytes"
	"fmt"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"

	"github.com/go-pdf/fpdf"
)

const (
	cardW = 85.6
	cardH = 54.0
)

// GenerateLoyaltyCardPDF renders the card of c and returns the PDF bytes.
func GenerateLoyaltyCardPDF(c *model.LoyaltyClient, rewardLines []string) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: cardW, Ht: cardH},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	contentW := cardW - 8

	// ── Front ─────────────────────────────────────────────────────────────────
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 6, "HARUJA", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, tr("Tarjeta de lealtad"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 5, tr(truncate(c.Name, 34)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 4, c.ClientID, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW/2, 5, tr("Nivel: "+c.Level), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 5, fmt.Sprintf("%d pts", c.Points), "", 1, "R", false, 0, "")

	pdf.SetY(cardH - 9)
	pdf.SetFont("Helvetica", "", 5)
	pdf.MultiCell(contentW, 2.5, c.QRLink, "", "L", false)

	// ── Back ──────────────────────────────────────────────────────────────────
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW, 5, "Recompensas", "B", 1, "L", false, 0, "")
	pdf.Ln(1)
	pdf.SetFont("Helvetica", "", 7)
	for _, line := range rewardLines {
		pdf.CellFormat(contentW, 4, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.SetY(cardH - 8)
	pdf.SetFont("Helvetica", "I", 6)
	pdf.CellFormat(contentW, 3, tr(fmt.Sprintf("Visitas: %d · Compras: $%s", c.Visits, c.TotalPurchases.StringFixed(2))), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render card: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
