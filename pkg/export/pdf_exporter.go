package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	a4WidthMM  = 210.0
	a4HeightMM = 297.0

	marginLeft   = 10.0
	marginTop    = 15.0
	marginRight  = 10.0
	marginBottom = 15.0

	lineHeight  = 5.0
	cellPadding = 1.0
)

// SummaryLine is a label/value pair printed above the table.
type SummaryLine struct {
	Label string
	Value string
}

// PDFLayout tunes how a dataset is laid out on the page.
type PDFLayout struct {
	// Landscape switches the A4 page to landscape orientation.
	Landscape bool
	// ColumnWidths pins header widths in millimetres. Headers not listed share
	// the remaining width evenly.
	ColumnWidths map[string]float64
	Summary      []SummaryLine
	// FontPath points at a UTF-8 TrueType font. When empty the core Arial font
	// is used and text is transliterated to cp1252.
	FontPath string
}

// PDFExporter renders datasets into a paginated tabular PDF.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter. fontPath is optional.
func NewPDFExporter(fontPath ...string) *PDFExporter {
	e := &PDFExporter{}
	if len(fontPath) > 0 {
		e.fontPath = fontPath[0]
	}
	return e
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	return e.RenderWithLayout(data, title, PDFLayout{})
}

// RenderWithLayout renders title, summary block and a bordered table.
func (e *PDFExporter) RenderWithLayout(data Dataset, title string, layout PDFLayout) ([]byte, error) {
	pdf, err := e.build(data, title, layout)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) build(data Dataset, title string, layout PDFLayout) (*gofpdf.Fpdf, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}

	orientation, pageWidth, pageHeight := "P", a4WidthMM, a4HeightMM
	if layout.Landscape {
		orientation, pageWidth, pageHeight = "L", a4HeightMM, a4WidthMM
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)

	fontPath := layout.FontPath
	if fontPath == "" {
		fontPath = e.fontPath
	}
	family, tr := setupFont(pdf, fontPath)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load pdf font: %w", err)
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont(family, "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")

	widths := columnWidths(data.Headers, layout.ColumnWidths, pageWidth-marginLeft-marginRight)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(2)
	}

	if len(layout.Summary) > 0 {
		pdf.SetFont(family, "", 10)
		for _, line := range layout.Summary {
			pdf.SetFont(family, "B", 10)
			pdf.CellFormat(50, 6, tr(line.Label), "", 0, "L", false, 0, "")
			pdf.SetFont(family, "", 10)
			pdf.CellFormat(0, 6, tr(line.Value), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	drawHeader := func() {
		pdf.SetFont(family, "B", 9)
		pdf.SetFillColor(230, 230, 230)
		x, y := marginLeft, pdf.GetY()
		height := rowHeight(pdf, data.Headers, widths, tr)
		for i, header := range data.Headers {
			drawCell(pdf, x, y, widths[i], height, header, true, tr)
			x += widths[i]
		}
		pdf.SetXY(marginLeft, y+height)
		pdf.SetFont(family, "", 8)
	}

	drawHeader()
	limit := pageHeight - marginBottom
	for _, row := range data.Rows {
		values := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			values[i] = row[header]
		}
		height := rowHeight(pdf, values, widths, tr)
		if pdf.GetY()+height > limit {
			pdf.AddPage()
			drawHeader()
		}
		x, y := marginLeft, pdf.GetY()
		for i, value := range values {
			drawCell(pdf, x, y, widths[i], height, value, false, tr)
			x += widths[i]
		}
		pdf.SetXY(marginLeft, y+height)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	return pdf, nil
}

func setupFont(pdf *gofpdf.Fpdf, fontPath string) (string, func(string) string) {
	if fontPath != "" {
		pdf.AddUTF8Font("body", "", fontPath)
		pdf.AddUTF8Font("body", "B", fontPath)
		return "body", func(s string) string { return s }
	}
	return "Arial", pdf.UnicodeTranslatorFromDescriptor("")
}

func columnWidths(headers []string, pinned map[string]float64, usable float64) []float64 {
	widths := make([]float64, len(headers))
	remaining := usable
	free := 0
	for i, header := range headers {
		if w, ok := pinned[header]; ok && w > 0 {
			widths[i] = w
			remaining -= w
			continue
		}
		free++
	}
	if free == 0 {
		return widths
	}
	share := remaining / float64(free)
	if share < 10 {
		share = 10
	}
	for i := range widths {
		if widths[i] == 0 {
			widths[i] = share
		}
	}
	return widths
}

func wrap(pdf *gofpdf.Fpdf, text string, width float64, tr func(string) string) []string {
	lines := pdf.SplitLines([]byte(tr(text)), width-2*cellPadding)
	if len(lines) == 0 {
		return []string{""}
	}
	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = string(line)
	}
	return result
}

func rowHeight(pdf *gofpdf.Fpdf, values []string, widths []float64, tr func(string) string) float64 {
	maxLines := 1
	for i, value := range values {
		if n := len(wrap(pdf, value, widths[i], tr)); n > maxLines {
			maxLines = n
		}
	}
	return float64(maxLines)*lineHeight + 2*cellPadding
}

func drawCell(pdf *gofpdf.Fpdf, x, y, w, h float64, text string, fill bool, tr func(string) string) {
	style := "D"
	if fill {
		style = "FD"
	}
	pdf.Rect(x, y, w, h, style)
	for i, line := range wrap(pdf, text, w, tr) {
		pdf.SetXY(x+cellPadding, y+cellPadding+float64(i)*lineHeight)
		pdf.CellFormat(w-2*cellPadding, lineHeight, line, "", 0, "L", false, 0, "")
	}
}
