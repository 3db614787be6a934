// Package markdown renders species care notes. It adds a lenient
// pipe-table recognizer on top of goldmark's CommonMark parser: plain
// paragraphs that look like GFM tables become table nodes, everything else
// renders as ordinary Markdown.
package markdown

import (
	"regexp"
	"strings"
)

// Alignment of a table column.
type Alignment int

const (
	AlignNone Alignment = iota
	AlignLeft
	AlignRight
	AlignCenter
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	default:
		return "none"
	}
}

// Table is a recognized pipe table. Body rows keep whatever cell count their
// line produced; they are not padded or truncated here.
type Table struct {
	Header []string
	Align  []Alignment
	Rows   [][]string
}

var separatorCell = regexp.MustCompile(`^:?-+:?$`)

// RecognizeTable tries to read lines as a header row, a separator row and
// body rows. It returns false, never an error, when the lines are not a
// table; callers keep the original text in that case.
func RecognizeTable(lines []string) (Table, bool) {
	lines = trimBlankEdges(lines)
	if len(lines) < 2 {
		return Table{}, false
	}

	header := splitRow(lines[0])
	align, ok := parseSeparator(lines[1])
	if !ok || len(align) != len(header) {
		return Table{}, false
	}

	t := Table{Header: header, Align: align}
	for _, line := range lines[2:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		t.Rows = append(t.Rows, splitRow(line))
	}
	return t, true
}

// splitRow splits on '|' after dropping one leading and one trailing pipe.
// An escaped pipe (\|) is a literal '|' inside its cell.
func splitRow(line string) []string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	if !strings.HasSuffix(s, `\|`) {
		s = strings.TrimSuffix(s, "|")
	}

	var (
		cells []string
		cell  strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '|':
			cell.WriteByte('|')
			i++
		case s[i] == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteByte(s[i])
		}
	}
	return append(cells, strings.TrimSpace(cell.String()))
}

func parseSeparator(line string) ([]Alignment, bool) {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")
	if strings.TrimSpace(s) == "" {
		return nil, false
	}

	cells := splitRow(line)
	out := make([]Alignment, len(cells))
	for i, c := range cells {
		if !separatorCell.MatchString(c) {
			return nil, false
		}
		out[i] = cellAlignment(c)
	}
	return out, true
}

func cellAlignment(cell string) Alignment {
	left := strings.HasPrefix(cell, ":")
	right := strings.HasSuffix(cell, ":")
	switch {
	case left && right:
		return AlignCenter
	case left:
		return AlignLeft
	case right:
		return AlignRight
	default:
		return AlignNone
	}
}

func trimBlankEdges(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
