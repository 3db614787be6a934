package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CareTemplate seeds the care instructions of a new species.
const CareTemplate = `## Light
- Preferred conditions:

## Watering
- Preferred moisture level:

## Temperature
- Cold tolerance:

## Fertilization
- Notes:

## Pruning & Training
- Notes:

## Soil
- Preferred Composition:

## Repotting
- Frequency:

## Pests & Diseases
- Common issues and treatments:

## Seasonal Care Summary Table
| Season | Care Focus | Notes |
| --- | --- | --- |
| Spring |  |  |
| Summer |  |  |
| Autumn |  |  |
| Winter |  |  |
`

// Renderer converts Markdown to HTML with pipe tables enabled. Raw HTML in
// the source is not passed through. A Renderer is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(goldmark.WithExtensions(Tables)),
	}
}

// Render returns the HTML for src.
func (r *Renderer) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown: render: %w", err)
	}
	return buf.String(), nil
}

// Parse returns the transformed document tree for src.
func (r *Renderer) Parse(src string) ast.Node {
	return r.md.Parser().Parse(text.NewReader([]byte(src)))
}
