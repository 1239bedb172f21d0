package markdown

import (
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	// Fenced code blocks. Group 1 is the language, group 2 the code.
	codeBlockRegexp = regexp.MustCompile("(?sm)^```([a-zA-Z0-9_+-]*)[ \t]*\\n(.*?)^```")

	// Inline tags whose attributes all carry a value. Bare words such as in "a<b and c>d"
	// read as prose and are kept.
	inlineTagRegexp = regexp.MustCompile(`^(?s)(</[A-Za-z][A-Za-z0-9-]*\s*>|<[A-Za-z][A-Za-z0-9-]*(\s+[A-Za-z_:][A-Za-z0-9_.:-]*\s*=\s*("[^"]*"|'[^']*'|[^\s"'=<>\x60]+))*\s*/?>|<!--.*-->|<\?.*\?>|<![A-Za-z].*>)$`)

	htmlPolicy = bluemonday.StrictPolicy()
	parser     = goldmark.New().Parser()
)

// Block is a segment of a markdown document.
type Block interface {
	// Markdown returns the block as markdown source.
	Markdown() string
	// Content returns the raw content of the block.
	Content() string
}

// TextBlock is markdown prose.
type TextBlock struct {
	Text string
}

// Markdown implements the Block interface.
func (b *TextBlock) Markdown() string { return b.Text }

// Content implements the Block interface.
func (b *TextBlock) Content() string { return b.Text }

// CodeBlock is a fenced code block.
type CodeBlock struct {
	Language string
	Code     string
}

// Markdown implements the Block interface.
func (b *CodeBlock) Markdown() string {
	return "```" + b.Language + "\n" + b.Code + "\n```"
}

// Content implements the Block interface.
func (b *CodeBlock) Content() string { return b.Code }

// ParseBlocks splits markdown content into text and fenced code blocks.
func ParseBlocks(content string) []Block {
	var blocks []Block
	appendText := func(text string) {
		if strings.TrimSpace(text) != "" {
			blocks = append(blocks, &TextBlock{Text: text})
		}
	}

	lastEnd := 0
	for _, match := range codeBlockRegexp.FindAllStringSubmatchIndex(content, -1) {
		appendText(content[lastEnd:match[0]])
		language := content[match[2]:match[3]]
		code := content[match[4]:match[5]]
		blocks = append(blocks, &CodeBlock{
			Language: language,
			// Tabs break the glamour layout.
			Code: strings.ReplaceAll(strings.Trim(code, "\n"), "\t", "  "),
		})
		lastEnd = match[1]
	}
	appendText(content[lastEnd:])
	return blocks
}

// Sanitize removes raw HTML from the text blocks. Code spans, autolinks and text that only
// looks like a tag are kept. Code blocks are shown verbatim and are left untouched.
func Sanitize(blocks []Block) []Block {
	sanitized := make([]Block, 0, len(blocks))
	for _, block := range blocks {
		textBlock, ok := block.(*TextBlock)
		if !ok {
			sanitized = append(sanitized, block)
			continue
		}
		stripped := stripHTML(textBlock.Text)
		if strings.TrimSpace(stripped) == "" {
			continue
		}
		sanitized = append(sanitized, &TextBlock{Text: stripped})
	}
	return sanitized
}

type replacement struct {
	start, stop int
	text        string
}

// stripHTML replaces the raw HTML nodes of a markdown document with their text content.
func stripHTML(content string) string {
	source := []byte(content)
	var replacements []replacement
	ast.Walk(parser.Parse(text.NewReader(source)), func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var segments []text.Segment
		switch n := node.(type) {
		case *ast.RawHTML:
			for i := 0; i < n.Segments.Len(); i++ {
				segments = append(segments, n.Segments.At(i))
			}
			if !inlineTagRegexp.MatchString(string(spanOf(source, segments))) {
				return ast.WalkContinue, nil
			}
		case *ast.HTMLBlock:
			for i := 0; i < n.Lines().Len(); i++ {
				segments = append(segments, n.Lines().At(i))
			}
			if n.HasClosure() {
				segments = append(segments, n.ClosureLine)
			}
		default:
			return ast.WalkContinue, nil
		}
		if len(segments) == 0 {
			return ast.WalkSkipChildren, nil
		}
		raw := spanOf(source, segments)
		replacements = append(replacements, replacement{
			start: segments[0].Start,
			stop:  segments[len(segments)-1].Stop,
			// The policy escapes what it keeps; markdown needs the characters back.
			text: html.UnescapeString(htmlPolicy.Sanitize(string(raw))),
		})
		return ast.WalkSkipChildren, nil
	})
	if len(replacements) == 0 {
		return content
	}

	sort.Slice(replacements, func(i, j int) bool { return replacements[i].start < replacements[j].start })
	var sb strings.Builder
	last := 0
	for _, r := range replacements {
		if r.start < last {
			continue
		}
		sb.Write(source[last:r.start])
		sb.WriteString(r.text)
		last = r.stop
	}
	sb.Write(source[last:])
	return sb.String()
}

// spanOf returns the source between the first and last segment.
func spanOf(source []byte, segments []text.Segment) []byte {
	if len(segments) == 0 {
		return nil
	}
	return source[segments[0].Start:segments[len(segments)-1].Stop]
}
