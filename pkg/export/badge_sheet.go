package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	badgeColumns = 2
	badgeRows    = 4
	badgeGap     = 4.0

	// BadgesPerPage is the number of badges laid out on one A4 sheet.
	BadgesPerPage = badgeColumns * badgeRows
)

// Badge is the printable content of one name badge.
type Badge struct {
	FullName    string
	SaintName   string
	Role        string
	Team        string
	Diocese     string
	InvoiceCode string
}

// BadgeSheet renders badges onto A4 sheets in a fixed 2x4 grid.
type BadgeSheet struct {
	fontPath string
}

// NewBadgeSheet constructs a badge renderer. fontPath is optional.
func NewBadgeSheet(fontPath ...string) *BadgeSheet {
	b := &BadgeSheet{}
	if len(fontPath) > 0 {
		b.fontPath = fontPath[0]
	}
	return b
}

// Render draws every badge. before is called ahead of each badge with its index;
// a non-nil error aborts rendering and is returned unchanged.
func (b *BadgeSheet) Render(badges []Badge, before func(i int) error) ([]byte, error) {
	if len(badges) == 0 {
		return nil, fmt.Errorf("badge sheet requires at least one badge")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	family, tr := setupFont(pdf, b.fontPath)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load pdf font: %w", err)
	}

	width := (a4WidthMM - marginLeft - marginRight - badgeGap*(badgeColumns-1)) / badgeColumns
	height := (a4HeightMM - marginTop - marginBottom - badgeGap*(badgeRows-1)) / badgeRows

	for i, badge := range badges {
		if before != nil {
			if err := before(i); err != nil {
				return nil, err
			}
		}
		slot := i % BadgesPerPage
		if slot == 0 {
			pdf.AddPage()
		}
		x := marginLeft + float64(slot%badgeColumns)*(width+badgeGap)
		y := marginTop + float64(slot/badgeColumns)*(height+badgeGap)
		drawBadge(pdf, family, tr, x, y, width, height, badge)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout badges: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render badges: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBadge(pdf *gofpdf.Fpdf, family string, tr func(string) string, x, y, w, h float64, badge Badge) {
	pdf.SetDrawColor(120, 120, 120)
	pdf.SetDashPattern([]float64{1, 1}, 0)
	pdf.Rect(x, y, w, h, "D")
	pdf.SetDashPattern([]float64{}, 0)

	inner := w - 8
	pdf.SetXY(x+4, y+8)
	if badge.SaintName != "" {
		pdf.SetFont(family, "", 11)
		pdf.CellFormat(inner, 6, tr(badge.SaintName), "", 2, "C", false, 0, "")
	}
	pdf.SetFont(family, "B", 16)
	for _, line := range pdf.SplitLines([]byte(tr(badge.FullName)), inner) {
		pdf.CellFormat(inner, 8, string(line), "", 2, "C", false, 0, "")
	}

	role := badge.Role
	if badge.Team != "" {
		role = badge.Team + " / " + badge.Role
	}
	pdf.Ln(2)
	pdf.SetX(x + 4)
	pdf.SetFont(family, "B", 10)
	pdf.CellFormat(inner, 6, tr(strings.ToUpper(role)), "", 2, "C", false, 0, "")
	pdf.SetFont(family, "", 9)
	pdf.CellFormat(inner, 5, tr(badge.Diocese), "", 2, "C", false, 0, "")

	pdf.SetXY(x+4, y+h-8)
	pdf.SetFont(family, "", 8)
	pdf.CellFormat(inner, 4, tr(badge.InvoiceCode), "", 0, "R", false, 0, "")
}
