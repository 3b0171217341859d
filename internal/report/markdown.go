package report

import (
	"regexp"
	"strings"
)

var (
	boldRun      = regexp.MustCompile(`\*\*`)
	boldLabelRe  = regexp.MustCompile(`^\*\*([^*]+)\*\*:\s*(.*)$`)
	numberedRe   = regexp.MustCompile(`^\d+[.)]\s+`)
	maxTableCols = 4
)

// renderMarkdown writes an assistant message to the document with the small
// markdown dialect the chat produces: code fences, pipe tables, headings up
// to level three, bullet and numbered lines, bold runs and plain paragraphs.
// Everything outside code fences passes through cleanText first.
func (d *doc) renderMarkdown(text string) {
	lines := strings.Split(text, "\n")
	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])

		if strings.HasPrefix(trimmed, "```") {
			var code []string
			i++
			for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
				code = append(code, lines[i])
				i++
			}
			if i < len(lines) {
				i++ // closing fence
			}
			d.renderCodeBlock(code)
			continue
		}

		if strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") >= 2 {
			var table []string
			for i < len(lines) {
				t := strings.TrimSpace(lines[i])
				if !strings.HasPrefix(t, "|") {
					break
				}
				table = append(table, t)
				i++
			}
			d.renderTable(table)
			continue
		}

		line := cleanText(trimmed)
		switch {
		case line == "":
			d.y += 2

		case strings.HasPrefix(line, "### "):
			d.renderHeading(strings.TrimPrefix(line, "### "), 11.5)
		case strings.HasPrefix(line, "## "):
			d.renderHeading(strings.TrimPrefix(line, "## "), 12.5)
		case strings.HasPrefix(line, "# "):
			d.renderHeading(strings.TrimPrefix(line, "# "), 14)

		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			d.renderBullet("•", stripBold(line[2:]))
		case numberedRe.MatchString(line):
			marker := strings.TrimSpace(numberedRe.FindString(line))
			d.renderBullet(marker, stripBold(numberedRe.ReplaceAllString(line, "")))

		default:
			if m := boldLabelRe.FindStringSubmatch(line); m != nil {
				d.renderLabeledLine(m[1]+":", m[2])
				break
			}
			d.setFont("", 9.5)
			d.writeParagraph(stripBold(line), marginLeft)
		}
		i++
	}
}

func stripBold(s string) string {
	return boldRun.ReplaceAllString(s, "")
}

func (d *doc) renderHeading(text string, size float64) {
	d.setFont("B", size)
	d.checkPageBreak(lineHeight + 3)
	d.y += 1.5
	d.writeLine(marginLeft, stripBold(text))
	d.y += 1.5
}

func (d *doc) renderBullet(marker, text string) {
	d.setFont("", 9.5)
	indent := marginLeft + 5
	width := pageWidth - indent - marginLeft
	lines := d.wrap(text, width)
	if len(lines) == 0 {
		return
	}
	d.checkPageBreak(float64(len(lines)) * lineHeight)
	d.pdf.SetXY(marginLeft+1, d.y)
	d.pdf.CellFormat(4, lineHeight, marker, "", 0, "L", false, 0, "")
	for _, line := range lines {
		d.writeLine(indent, line)
	}
}

// renderLabeledLine draws a "**Label:** rest" line with a true bold label.
func (d *doc) renderLabeledLine(label, rest string) {
	d.checkPageBreak(lineHeight)
	d.setFont("B", 9.5)
	d.pdf.SetXY(marginLeft, d.y)
	d.pdf.CellFormat(d.pdf.GetStringWidth(label)+1, lineHeight, label, "", 0, "L", false, 0, "")
	labelW := d.pdf.GetStringWidth(label) + 2
	d.setFont("", 9.5)
	rest = stripBold(rest)
	lines := d.wrap(rest, contentWidth-labelW)
	if len(lines) == 0 {
		d.y += lineHeight
		return
	}
	d.pdf.SetXY(marginLeft+labelW, d.y)
	d.pdf.CellFormat(contentWidth-labelW, lineHeight, lines[0], "", 0, "L", false, 0, "")
	d.y += lineHeight
	for _, line := range lines[1:] {
		d.checkPageBreak(lineHeight)
		d.writeLine(marginLeft, line)
	}
}

func (d *doc) renderCodeBlock(code []string) {
	const codeLineH = 4.2
	d.setMonoFont(8.5)
	d.pdf.SetFillColor(241, 241, 241)
	d.y += 1
	for _, raw := range code {
		for _, line := range d.wrapCode(raw) {
			d.checkPageBreak(codeLineH)
			d.pdf.Rect(marginLeft, d.y, contentWidth, codeLineH, "F")
			d.pdf.SetXY(marginLeft+2, d.y)
			d.pdf.CellFormat(contentWidth-4, codeLineH, line, "", 0, "L", false, 0, "")
			d.y += codeLineH
		}
	}
	d.y += 2
	d.setFont("", 9.5)
}

func (d *doc) wrapCode(line string) []string {
	if strings.TrimSpace(line) == "" {
		return []string{""}
	}
	return d.wrap(line, contentWidth-4)
}

// renderTable draws a naively parsed pipe table: row 0 is the header, row 1
// is assumed to be the separator and skipped, at most four columns are kept
// and cell text is truncated to its fixed column width.
func (d *doc) renderTable(rows []string) {
	if len(rows) == 0 {
		return
	}
	parse := func(row string) []string {
		cells := strings.Split(strings.Trim(row, "|"), "|")
		out := make([]string, 0, len(cells))
		for _, c := range cells {
			out = append(out, cleanText(stripBold(strings.TrimSpace(c))))
			if len(out) == maxTableCols {
				break
			}
		}
		return out
	}

	header := parse(rows[0])
	if len(header) == 0 {
		return
	}
	colW := contentWidth / float64(len(header))
	const rowH = 6.0

	d.y += 1
	d.setFont("B", 8.5)
	d.checkPageBreak(rowH)
	d.pdf.SetFillColor(229, 231, 235)
	d.pdf.SetXY(marginLeft, d.y)
	for _, cell := range header {
		d.pdf.CellFormat(colW, rowH, d.truncateToWidth(cell, colW-2), "1", 0, "L", true, 0, "")
	}
	d.y += rowH

	d.setFont("", 8.5)
	for idx := 1; idx < len(rows); idx++ {
		if idx == 1 {
			continue // separator row
		}
		cells := parse(rows[idx])
		d.checkPageBreak(rowH)
		d.pdf.SetXY(marginLeft, d.y)
		for c := 0; c < len(header); c++ {
			cell := ""
			if c < len(cells) {
				cell = cells[c]
			}
			d.pdf.CellFormat(colW, rowH, d.truncateToWidth(cell, colW-2), "1", 0, "L", false, 0, "")
		}
		d.y += rowH
	}
	d.y += 2
}
