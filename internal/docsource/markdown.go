package docsource

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownBlocks parses markdown with goldmark and flattens the AST
// into an ordered block list: headings keep their level, everything
// else becomes body paragraphs.
func markdownBlocks(src []byte) ([]Block, error) {
	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	var blocks []Block
	var current bytes.Buffer

	flush := func() {
		t := strings.TrimSpace(current.String())
		if t != "" {
			blocks = append(blocks, Block{Text: t})
		}
		current.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			flush()
			title := string(node.Text(src))
			if title != "" {
				blocks = append(blocks, Block{Level: node.Level, Text: title})
			}
		default:
			t := mdText(n, src)
			if t != "" {
				if current.Len() > 0 {
					current.WriteString("\n\n")
				}
				current.WriteString(t)
			}
		}
	}
	flush()

	return blocks, nil
}

// mdText gets the text content of a goldmark AST node.
func mdText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(mdText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
