package extract

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor renders markdown to plain text by walking the goldmark AST.
// Headings, paragraphs, list items and table rows each end up on their own line.
type MarkdownExtractor struct {
	parser goldmark.Markdown
}

// NewMarkdownExtractor creates a markdown extractor with table support.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Extract returns the document title and its plain text.
func (m *MarkdownExtractor) Extract(content []byte, filename string) (title string, plain string) {
	if len(content) == 0 {
		return titleFromFilename(filename), ""
	}

	doc := m.parser.Parser().Parse(text.NewReader(content))
	title = extractTitle(doc, content, filename)
	return title, renderPlain(doc, content)
}

// renderPlain walks the AST collecting text, one block per line.
func renderPlain(doc ast.Node, content []byte) string {
	var b strings.Builder

	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			newline()
			b.WriteString(extractTextFromNode(node, content))
			b.WriteString("\n")
			return ast.WalkSkipChildren, nil

		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.SoftLineBreak() {
				b.WriteString(" ")
			}
			return ast.WalkContinue, nil

		case *ast.String:
			b.Write(node.Value)
			return ast.WalkContinue, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			newline()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(content))
			}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.List, *ast.ListItem, *ast.TextBlock:
			newline()
			return ast.WalkContinue, nil

		default:
			kindName := n.Kind().String()
			if strings.Contains(kindName, "TableRow") || strings.Contains(kindName, "TableHeader") {
				newline()
				b.WriteString(extractTableRowText(n, content))
				b.WriteString("\n")
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		}
	})

	return strings.TrimSpace(b.String())
}

// extractTitle returns the first level-1 heading, else the first level-2
// heading, else a title derived from the filename.
func extractTitle(doc ast.Node, content []byte, filename string) string {
	var firstH1, firstH2 string

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if heading, ok := n.(*ast.Heading); ok {
			headingText := extractTextFromNode(heading, content)

			if heading.Level == 1 && firstH1 == "" {
				firstH1 = headingText
			} else if heading.Level == 2 && firstH2 == "" && firstH1 == "" {
				firstH2 = headingText
			}

			if firstH1 != "" {
				return ast.WalkStop, nil
			}
		}

		return ast.WalkContinue, nil
	})

	if firstH1 != "" {
		return firstH1
	}
	if firstH2 != "" {
		return firstH2
	}
	return titleFromFilename(filename)
}

// titleFromFilename removes the extension and capitalises each word.
func titleFromFilename(filename string) string {
	name := filepath.Base(filename)
	if ext := filepath.Ext(name); ext != "" {
		name = name[:len(name)-len(ext)]
	}
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)

	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}

// extractTextFromNode extracts text content from a node and its children.
func extractTextFromNode(n ast.Node, content []byte) string {
	var textBuilder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			textBuilder.Write(v.Segment.Value(content))
		case *ast.String:
			textBuilder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(textBuilder.String())
}

// extractTableRowText extracts text from a table row, formatting cells with pipe separators.
func extractTableRowText(row ast.Node, content []byte) string {
	var rowBuilder strings.Builder
	cellCount := 0

	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if strings.Contains(node.Kind().String(), "TableCell") {
			if cellCount > 0 {
				rowBuilder.WriteString(" | ")
			}
			rowBuilder.WriteString(extractTextFromNode(node, content))
			cellCount++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return rowBuilder.String()
}
