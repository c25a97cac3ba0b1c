package markdown

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Heading is a markdown heading and the character offset of the line it starts on.
type Heading struct {
	Level  int
	Text   string
	Offset int // Rune offset into the document text
}

// Outline is the structural summary of a markdown document.
type Outline struct {
	Title    string
	Headings []Heading // Ordered by Offset
}

var parser = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// Parse parses markdown text and returns its title and heading outline.
// The title is the first level 1 heading, else the first level 2 heading,
// else the filename without extension with each word capitalized.
func Parse(content, filename string) Outline {
	if content == "" {
		return Outline{Title: extractTitleFromFilename(filename)}
	}

	source := []byte(content)
	doc := parser.Parser().Parse(text.NewReader(source))

	outline := Outline{
		Title:    extractTitle(doc, source, filename),
		Headings: collectHeadings(doc, source),
	}
	return outline
}

// HeadingPathAt returns the heading hierarchy in effect at a rune offset,
// formatted as "# Heading1 > ## Heading2". Text before the first heading
// is attributed to the document title.
func (o Outline) HeadingPathAt(offset int) string {
	var stack []Heading
	for _, h := range o.Headings {
		if h.Offset > offset {
			break
		}
		for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, h)
	}

	if len(stack) == 0 {
		if o.Title == "" {
			return ""
		}
		return "# " + o.Title
	}
	return buildHeadingPath(stack)
}

// collectHeadings walks the AST and records every heading with its rune offset.
func collectHeadings(doc ast.Node, source []byte) []Heading {
	var headings []Heading

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		lines := heading.Lines()
		if lines.Len() == 0 {
			// Empty headings ("#") carry no text to attribute chunks to
			return ast.WalkSkipChildren, nil
		}
		byteOffset := lines.At(0).Start
		lineStart := bytes.LastIndexByte(source[:byteOffset], '\n') + 1

		headings = append(headings, Heading{
			Level:  heading.Level,
			Text:   extractTextFromNode(heading, source),
			Offset: utf8.RuneCount(source[:lineStart]),
		})
		return ast.WalkSkipChildren, nil
	})

	return headings
}

// extractTitle returns the first H1, else the first H2, else a title derived from filename.
func extractTitle(doc ast.Node, source []byte, filename string) string {
	var firstH1, firstH2 string

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if heading, ok := n.(*ast.Heading); ok {
			headingText := extractTextFromNode(heading, source)

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
	return extractTitleFromFilename(filename)
}

// extractTitleFromFilename removes the extension and capitalizes each word.
// Hyphens and underscores are treated as word separators.
func extractTitleFromFilename(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)

	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}

// buildHeadingPath joins a heading stack as "# Heading1 > ## Heading2 > ### Heading3".
func buildHeadingPath(stack []Heading) string {
	parts := make([]string, len(stack))
	for i, h := range stack {
		parts[i] = fmt.Sprintf("%s %s", strings.Repeat("#", h.Level), h.Text)
	}
	return strings.Join(parts, " > ")
}

// extractTextFromNode extracts the text content of a node and its children.
func extractTextFromNode(n ast.Node, source []byte) string {
	var textBuilder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			textBuilder.Write(v.Segment.Value(source))
		case *ast.String:
			textBuilder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(textBuilder.String())
}
