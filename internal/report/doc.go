// Package report renders incident case reports and AI analysis results as
// paginated A4 PDF documents.
package report

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/go-pdf/fpdf"
)

// Page geometry in millimetres.
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginLeft   = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - 2*marginLeft
	lineHeight   = 5.0
)

// doc wraps an fpdf document with the manual vertical-cursor layout used by
// both generators. All pagination goes through checkPageBreak: a block that
// would cross the bottom margin starts on a fresh page instead.
type doc struct {
	pdf    *fpdf.Fpdf
	y      float64
	imgSeq int
}

func newDoc(brand string, generated time.Time) *doc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(130, 130, 130)
		footer := fmt.Sprintf("Page %d of {nb} | Generated by %s | %s",
			pdf.PageNo(), brand, generated.Format("Jan 2, 2006"))
		pdf.SetXY(marginLeft, pageHeight-12)
		pdf.CellFormat(contentWidth, 5, footer, "", 0, "C", false, 0, "")
	})

	d := &doc{pdf: pdf}
	d.newPage()
	return d
}

func (d *doc) newPage() {
	d.pdf.AddPage()
	d.y = marginTop
}

// checkPageBreak starts a new page when the next block of the given height
// would overflow the writable area.
func (d *doc) checkPageBreak(needed float64) {
	if d.y+needed > pageHeight-marginBottom {
		d.newPage()
	}
}

func (d *doc) setFont(style string, size float64) {
	d.pdf.SetFont("Helvetica", style, size)
}

func (d *doc) setMonoFont(size float64) {
	d.pdf.SetFont("Courier", "", size)
}

// wrap splits text into lines that fit the given width under the current font.
func (d *doc) wrap(text string, width float64) []string {
	if text == "" {
		return nil
	}
	return d.pdf.SplitText(text, width)
}

// writeLine writes one line at the cursor and advances it.
func (d *doc) writeLine(x float64, line string) {
	d.pdf.SetXY(x, d.y)
	d.pdf.CellFormat(pageWidth-x-marginLeft, lineHeight, line, "", 0, "L", false, 0, "")
	d.y += lineHeight
}

// writeParagraph wraps text to the content width and writes it as one atomic
// block: if the whole paragraph does not fit on the remaining page it moves
// entirely to the next one. Paragraphs taller than a full page degrade to
// line-by-line breaking.
func (d *doc) writeParagraph(text string, x float64) {
	width := pageWidth - x - marginLeft
	lines := d.wrap(text, width)
	if len(lines) == 0 {
		return
	}
	blockH := float64(len(lines)) * lineHeight
	if blockH <= pageHeight-marginTop-marginBottom {
		d.checkPageBreak(blockH)
		for _, line := range lines {
			d.writeLine(x, line)
		}
		return
	}
	for _, line := range lines {
		d.checkPageBreak(lineHeight)
		d.writeLine(x, line)
	}
}

// pill draws a small rounded badge with centered white text at the cursor and
// advances past it.
func (d *doc) pill(label string, r, g, b int) {
	d.setFont("B", 7.5)
	w := d.pdf.GetStringWidth(label) + 6
	h := 5.5
	d.checkPageBreak(h + 1)
	d.pdf.SetFillColor(r, g, b)
	d.pdf.RoundedRect(marginLeft, d.y, w, h, 1.5, "1234", "F")
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.SetXY(marginLeft, d.y)
	d.pdf.CellFormat(w, h, label, "", 0, "C", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.y += h + 1.5
}

// truncateToWidth shortens s so it fits within width under the current font,
// appending ".." when anything was cut.
func (d *doc) truncateToWidth(s string, width float64) string {
	if d.pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if d.pdf.GetStringWidth(string(runes)+"..") <= width {
			return string(runes) + ".."
		}
	}
	return ".."
}

// embedImage places the image bytes in a fixed box at the cursor. It reports
// false (and draws nothing) when the data cannot be decoded, so a corrupt
// download never poisons the document.
func (d *doc) embedImage(data []byte, w, h float64) bool {
	cfgFormat, err := sniffImageFormat(data)
	if err != nil {
		return false
	}
	d.checkPageBreak(h + 3)
	d.imgSeq++
	name := fmt.Sprintf("embed-%d", d.imgSeq)
	opts := fpdf.ImageOptions{ImageType: cfgFormat, ReadDpi: false}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if d.pdf.Err() {
		return false
	}
	d.pdf.ImageOptions(name, marginLeft, d.y, w, h, false, opts, 0, "")
	d.y += h + 3
	return true
}

// sniffImageFormat validates the bytes decode as an image fpdf understands
// and returns the fpdf image-type tag.
func sniffImageFormat(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	switch format {
	case "jpeg":
		return "JPG", nil
	case "png":
		return "PNG", nil
	case "gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image format %q", format)
	}
}

func (d *doc) output(w io.Writer) error {
	return d.pdf.Output(w)
}
