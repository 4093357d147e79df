package export

import (
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pageWidth    = 190.0 // A4 width minus margins
	lineHeight   = 5.0
	bodyFontSize = 10.0
)

// markdownRenderer walks a goldmark document and writes it to a pdf
type markdownRenderer struct {
	pdf       *fpdf.Fpdf
	tr        func(string) string
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	listLevel int
	ordered   []int // next number per open list, 0 for bullets
}

func newMarkdownRenderer(pdf *fpdf.Fpdf, source []byte) *markdownRenderer {
	return &markdownRenderer{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		source: source,
		font:   "Arial",
		size:   bodyFontSize,
	}
}

func (r *markdownRenderer) render(node ast.Node) error {
	return ast.Walk(node, r.walk)
}

func (r *markdownRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *markdownRenderer) write(s string) {
	r.pdf.Write(lineHeight, r.tr(s))
}

func (r *markdownRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		r.heading(node, entering)
	case *ast.Paragraph:
		if !entering && r.listLevel == 0 {
			r.pdf.Ln(lineHeight + 2)
		}
	case *ast.TextBlock:
		// tight list items
	case *ast.Text:
		if entering {
			r.write(string(node.Segment.Value(r.source)))
			if node.SoftLineBreak() {
				r.write(" ")
			}
			if node.HardLineBreak() {
				r.pdf.Ln(lineHeight)
			}
		}
	case *ast.String:
		if entering {
			r.write(string(node.Value))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case *ast.CodeSpan:
		if entering {
			r.write(string(node.Text(r.source)))
		}
		return ast.WalkSkipChildren, nil
	case *ast.AutoLink:
		if entering {
			url := string(node.URL(r.source))
			r.pdf.SetTextColor(30, 90, 160)
			r.pdf.WriteLinkString(lineHeight, r.tr(url), url)
			r.pdf.SetTextColor(0, 0, 0)
		}
	case *ast.FencedCodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		r.list(node, entering)
	case *ast.ListItem:
		if entering {
			r.listItem()
		}
	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			y := r.pdf.GetY()
			r.pdf.SetDrawColor(200, 200, 200)
			r.pdf.Line(10, y, 10+pageWidth, y)
			r.pdf.SetDrawColor(0, 0, 0)
			r.pdf.Ln(3)
		}
	case *extast.Table:
		if entering {
			renderTable(r.pdf, r.tr, tableRows(node, r.source))
			r.updateFont()
		}
		return ast.WalkSkipChildren, nil
	case *extast.Strikethrough:
		// rendered as plain text
	}
	return ast.WalkContinue, nil
}

func (r *markdownRenderer) heading(n *ast.Heading, entering bool) {
	if !entering {
		r.pdf.Ln(lineHeight + 2)
		r.pdf.SetTextColor(0, 0, 0)
		r.updateFont()
		return
	}

	r.pdf.Ln(3)
	size := 11.0
	switch n.Level {
	case 1:
		size = 16
	case 2:
		size = 14
	case 3:
		size = 12
	}
	// day headings stand out from the activities under them
	if n.Level <= 3 {
		r.pdf.SetTextColor(25, 80, 120)
	}
	r.pdf.SetFont(r.font, "B", size)
}

func (r *markdownRenderer) list(n *ast.List, entering bool) {
	if entering {
		r.listLevel++
		start := 0
		if n.IsOrdered() {
			start = n.Start
			if start == 0 {
				start = 1
			}
		}
		r.ordered = append(r.ordered, start)
		return
	}

	r.listLevel--
	r.ordered = r.ordered[:len(r.ordered)-1]
	if r.listLevel == 0 {
		r.pdf.Ln(lineHeight + 2)
	}
}

func (r *markdownRenderer) listItem() {
	if r.pdf.GetX() > 11 {
		r.pdf.Ln(lineHeight)
	}
	r.pdf.SetX(10 + float64(r.listLevel)*5)

	marker := "- "
	if idx := len(r.ordered) - 1; idx >= 0 && r.ordered[idx] > 0 {
		marker = strconv.Itoa(r.ordered[idx]) + ". "
		r.ordered[idx]++
	}
	r.write(marker)
}

func (r *markdownRenderer) codeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", 9)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		r.pdf.MultiCell(0, lineHeight, r.tr(strings.TrimRight(string(line.Value(r.source)), "\n")), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf.Ln(2)
}

func tableRows(n *extast.Table, source []byte) [][]string {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *extast.TableHeader, *extast.TableRow:
				var row []string
				for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
					row = append(row, string(cell.Text(source)))
				}
				rows = append(rows, row)
			}
		}
	}
	collect(n)
	return rows
}

// renderTable draws rows with the first row as header, wrapping cell text
func renderTable(pdf *fpdf.Fpdf, tr func(string) string, rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	const (
		fontSize   = 8.0
		cellLine   = 4.0
		maxLines   = 6
		pageBottom = 297.0 - 15.0
	)
	numCols := len(rows[0])
	widths := columnWidths(pdf, rows, numCols, fontSize)

	pdf.Ln(2)
	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		pdf.SetFont("Arial", style, fontSize)

		wrapped := make([][]string, numCols)
		lines := 1
		for j := 0; j < numCols && j < len(row); j++ {
			wrapped[j] = pdf.SplitText(tr(row[j]), widths[j]-2)
			if len(wrapped[j]) > maxLines {
				wrapped[j] = wrapped[j][:maxLines]
			}
			if len(wrapped[j]) > lines {
				lines = len(wrapped[j])
			}
		}

		height := float64(lines)*cellLine + 2
		x, y := pdf.GetX(), pdf.GetY()
		if y+height > pageBottom {
			pdf.AddPage()
			y = pdf.GetY()
		}

		for j := 0; j < numCols; j++ {
			if i == 0 {
				pdf.SetFillColor(230, 230, 230)
				pdf.Rect(x, y, widths[j], height, "FD")
			} else {
				pdf.Rect(x, y, widths[j], height, "D")
			}
			for k, line := range wrapped[j] {
				pdf.SetXY(x+1, y+1+float64(k)*cellLine)
				pdf.CellFormat(widths[j]-2, cellLine, line, "", 0, "L", false, 0, "")
			}
			x += widths[j]
		}
		pdf.SetXY(10, y+height)
	}
	pdf.SetFillColor(255, 255, 255)
	pdf.Ln(3)
}

// columnWidths sizes columns to their widest cell, scaled to the page
func columnWidths(pdf *fpdf.Fpdf, rows [][]string, numCols int, fontSize float64) []float64 {
	const minWidth = 14.0
	widths := make([]float64, numCols)

	pdf.SetFont("Arial", "B", fontSize)
	for _, row := range rows {
		for j := 0; j < numCols && j < len(row); j++ {
			if w := pdf.GetStringWidth(row[j]) + 4; w > widths[j] {
				widths[j] = w
			}
		}
	}

	total := 0.0
	for j := range widths {
		if widths[j] < minWidth {
			widths[j] = minWidth
		}
		if widths[j] > pageWidth/2 {
			widths[j] = pageWidth / 2
		}
		total += widths[j]
	}

	scale := pageWidth / total
	for j := range widths {
		widths[j] *= scale
	}
	return widths
}
