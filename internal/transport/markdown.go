package transport

import (
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New()
	})
	return markdownParserInstance
}

// StripMarkdown renders Markdown source as plain text: emphasis markers,
// heading hashes and link syntax are dropped, line structure and list
// bullets are kept.
func StripMarkdown(input string) string {
	if input == "" {
		return ""
	}
	source := []byte(input)
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	p := &plainWriter{source: source}
	_ = ast.Walk(document, p.walk)
	return strings.TrimRight(p.out.String(), "\n")
}

type plainWriter struct {
	source []byte
	out    strings.Builder
}

func (p *plainWriter) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock, ast.KindHeading:
		if !entering {
			p.ensureNewline()
			if node.Kind() != ast.KindTextBlock {
				p.out.WriteString("\n")
			}
		}
	case ast.KindListItem:
		if entering {
			p.out.WriteString("- ")
		}
	case ast.KindList:
		if !entering {
			p.out.WriteString("\n")
		}
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		if entering {
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				p.out.Write(seg.Value(p.source))
			}
			p.ensureNewline()
			p.out.WriteString("\n")
		}
		return ast.WalkSkipChildren, nil
	case ast.KindText:
		if entering {
			t := node.(*ast.Text)
			p.out.Write(t.Segment.Value(p.source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				p.out.WriteString("\n")
			}
		}
	case ast.KindString:
		if entering {
			p.out.Write(node.(*ast.String).Value)
		}
	case ast.KindLink:
		if !entering {
			if dest := string(node.(*ast.Link).Destination); dest != "" {
				p.out.WriteString(" (" + dest + ")")
			}
		}
	case ast.KindAutoLink:
		if entering {
			p.out.Write(node.(*ast.AutoLink).URL(p.source))
		}
	}
	return ast.WalkContinue, nil
}

func (p *plainWriter) ensureNewline() {
	s := p.out.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		p.out.WriteString("\n")
	}
}
