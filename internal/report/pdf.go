package report

import (
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const pdfPageBreakY = 270

// writePDF renders the document with the core Arial font. Markdown markup in
// the analysis text is reduced to plain lines; headings keep their weight.
func (d *document) writePDF(path string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.MultiCell(0, 8, tr(d.title), "", "", false)
	pdf.Ln(4)

	if d.preamble != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(plain(d.preamble)), "", "", false)
		pdf.Ln(4)
	}

	for _, s := range d.sections {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, tr(s.heading))
		pdf.Ln(9)

		for _, line := range strings.Split(s.body, "\n") {
			writePDFLine(pdf, tr, line)
		}
		if s.code != "" {
			pdf.SetFont("Courier", "", 7)
			pdf.MultiCell(0, 3.5, tr(s.code), "", "", false)
		}
		pdf.Ln(4)

		if pdf.GetY() > pdfPageBreakY {
			pdf.AddPage()
		}
	}

	if d.footer != "" {
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 4, tr(plain(d.footer)), "", "", false)
	}

	return pdf.OutputFileAndClose(path)
}

func writePDFLine(pdf *gofpdf.Fpdf, tr func(string) string, line string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		pdf.Ln(2)
	case strings.HasPrefix(trimmed, "#"):
		pdf.SetFont("Arial", "B", 11)
		pdf.MultiCell(0, 6, tr(plain(strings.TrimLeft(trimmed, "# "))), "", "", false)
	default:
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(plain(line)), "", "", false)
	}
}

// plain strips inline emphasis markers.
func plain(s string) string {
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}
