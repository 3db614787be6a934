package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Transformer replaces table-shaped top-level paragraphs with goldmark table
// nodes. It runs after block parsing and before rendering.
type Transformer struct{}

var _ parser.ASTTransformer = (*Transformer)(nil)

func (t *Transformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()

	var replace []*ast.Paragraph
	var tables []*east.Table
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		p, ok := n.(*ast.Paragraph)
		if !ok || !plainText(p) {
			continue
		}
		lines := paragraphLines(p, source)
		if !looksLikeTable(lines) {
			continue
		}
		tbl, ok := RecognizeTable(lines)
		if !ok {
			continue
		}
		replace = append(replace, p)
		tables = append(tables, tableNode(tbl))
	}

	for i, p := range replace {
		doc.ReplaceChild(doc, p, tables[i])
	}
}

// plainText reports whether every inline child is a text node. Emphasis,
// links, code spans or raw HTML disqualify the paragraph.
func plainText(p *ast.Paragraph) bool {
	if !p.HasChildren() {
		return false
	}
	for c := p.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Kind() != ast.KindText {
			return false
		}
	}
	return true
}

func paragraphLines(p *ast.Paragraph, source []byte) []string {
	segs := p.Lines()
	out := make([]string, 0, segs.Len())
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		out = append(out, strings.TrimRight(string(seg.Value(source)), "\r\n"))
	}
	return out
}

// looksLikeTable is the cheap pre-check: a header starting with '|' and a
// second line with at least one dash. Prose that merely contains pipes
// stays a paragraph.
func looksLikeTable(lines []string) bool {
	return len(lines) >= 2 &&
		strings.HasPrefix(strings.TrimSpace(lines[0]), "|") &&
		strings.Contains(lines[1], "-")
}

func tableNode(t Table) *east.Table {
	node := east.NewTable()
	node.Alignments = make([]east.Alignment, len(t.Align))
	for i, a := range t.Align {
		node.Alignments[i] = a.goldmark()
	}

	node.AppendChild(node, east.NewTableHeader(tableRow(t.Header, node.Alignments)))
	for _, r := range t.Rows {
		node.AppendChild(node, tableRow(r, node.Alignments))
	}
	return node
}

// tableRow builds one row at the header's width: missing cells render
// empty and extra cells are dropped.
func tableRow(cells []string, align []east.Alignment) *east.TableRow {
	row := east.NewTableRow(align)
	for i, a := range align {
		cell := east.NewTableCell()
		cell.Alignment = a
		if i < len(cells) && cells[i] != "" {
			cell.AppendChild(cell, ast.NewString([]byte(cells[i])))
		}
		row.AppendChild(row, cell)
	}
	return row
}

func (a Alignment) goldmark() east.Alignment {
	switch a {
	case AlignLeft:
		return east.AlignLeft
	case AlignRight:
		return east.AlignRight
	case AlignCenter:
		return east.AlignCenter
	default:
		return east.AlignNone
	}
}

type tableExtension struct{}

// Tables is a goldmark extension that installs the Transformer and the
// table HTML renderer.
var Tables goldmark.Extender = &tableExtension{}

func (e *tableExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&Transformer{}, 100),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(extension.NewTableHTMLRenderer(), 500),
	))
}
