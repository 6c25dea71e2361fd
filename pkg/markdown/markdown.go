// Package markdown converts the markdown used in email bodies and generated
// insights into HTML fragments.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Renderer converts markdown to HTML
type Renderer struct {
	markdown goldmark.Markdown
}

// NewRenderer creates a renderer supporting headings, emphasis, nested lists,
// code fences and GitHub-style tables
func NewRenderer() *Renderer {
	return &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithXHTML()),
		),
	}
}

// Render returns the HTML fragment for source
func (r *Renderer) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// ExtractTitle returns the text of the first heading of any level, or an
// empty string when the document has none
func (r *Renderer) ExtractTitle(source string) string {
	content := []byte(source)
	doc := r.markdown.Parser().Parse(text.NewReader(content))

	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			title = strings.TrimSpace(string(nodeText(n, content)))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

func nodeText(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
			continue
		}
		buf.Write(nodeText(child, source))
	}
	return buf.Bytes()
}
