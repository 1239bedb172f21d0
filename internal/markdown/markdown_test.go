package markdown

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
)

func TestParseBlocks(t *testing.T) {
	content := "Intro\n\n```go\nfunc main() {\n\tprintln(1)\n}\n```\nOutro\n"
	blocks := ParseBlocks(content)
	require.Len(t, blocks, 3)

	require.Equal(t, "Intro\n\n", blocks[0].Content())
	code, ok := blocks[1].(*CodeBlock)
	require.True(t, ok)
	require.Equal(t, "go", code.Language)
	require.Equal(t, "func main() {\n  println(1)\n}", code.Content())
	require.Equal(t, "```go\nfunc main() {\n  println(1)\n}\n```", code.Markdown())
	require.Equal(t, "\nOutro\n", blocks[2].Content())
}

func TestParseBlocksWithoutCode(t *testing.T) {
	require.Empty(t, ParseBlocks(""))
	blocks := ParseBlocks("# Title\n\nsome *text*")
	require.Len(t, blocks, 1)
	require.Equal(t, "# Title\n\nsome *text*", blocks[0].Markdown())
}

func TestSanitizeDropsRawHTML(t *testing.T) {
	blocks := Sanitize(ParseBlocks("Hello <b>world</b> & a > b<script>alert(1)</script>\n\n```html\n<b>kept</b>\n```"))
	require.Len(t, blocks, 2)
	require.Equal(t, "Hello world & a > balert(1)\n\n", blocks[0].Content())
	require.Equal(t, "<b>kept</b>", blocks[1].Content())
}

func TestSanitizeKeepsTextThatLooksLikeHTML(t *testing.T) {
	for _, content := range []string{
		"Wrap it in a `<div>` element.",
		"Use `Vec<String>` here.",
		"See <https://example.com> for docs.",
		"When a<b and c>d holds.",
	} {
		blocks := Sanitize(ParseBlocks(content))
		require.Len(t, blocks, 1, content)
		require.Equal(t, content, blocks[0].Content())
	}
}

func TestSanitizeHTMLBlockKeepsText(t *testing.T) {
	blocks := Sanitize(ParseBlocks("Intro\n\n<div class=\"note\">\nhello\n</div>\n\n<script>alert(1)</script>\n\nOutro"))
	require.Len(t, blocks, 1)
	content := blocks[0].Content()
	require.Contains(t, content, "Intro")
	require.Contains(t, content, "hello")
	require.Contains(t, content, "Outro")
	require.NotContains(t, content, "<div")
	require.NotContains(t, content, "alert")
}

func TestSanitizeDropsEmptyBlocks(t *testing.T) {
	blocks := Sanitize([]Block{&TextBlock{Text: "<div></div>"}})
	require.Empty(t, blocks)
}

func TestRender(t *testing.T) {
	renderer, err := NewRenderer(80)
	require.NoError(t, err)

	rendered := ansi.Strip(renderer.Render("m1", "# Heading\n\n- one\n- two\n\n**bold** and `code`\n\n> quoted"))
	for _, expected := range []string{"Heading", "one", "two", "bold", "code", "quoted"} {
		require.Contains(t, rendered, expected)
	}
}

func TestRenderCachesByID(t *testing.T) {
	renderer, err := NewRenderer(80)
	require.NoError(t, err)

	first := renderer.Render("m1", "first")
	require.True(t, renderer.Cached("m1"))
	require.Equal(t, first, renderer.Render("m1", "first"))

	// Changed content is rendered again.
	require.Contains(t, ansi.Strip(renderer.Render("m1", "second")), "second")

	renderer.Render("", "uncached")
	require.False(t, renderer.Cached(""))

	require.NoError(t, renderer.SetWidth(40))
	require.False(t, renderer.Cached("m1"))
}

func TestRenderStripsHTML(t *testing.T) {
	renderer, err := NewRenderer(80)
	require.NoError(t, err)
	rendered := ansi.Strip(renderer.Render("m1", "safe <img src=x onerror=alert(1)> text"))
	require.False(t, strings.Contains(rendered, "onerror"))
	require.Contains(t, rendered, "safe")
}

func TestRenderKeepsCodeAndLinks(t *testing.T) {
	renderer, err := NewRenderer(80)
	require.NoError(t, err)
	rendered := ansi.Strip(renderer.Render("m1", "Wrap it in a `<div>`, use `Vec<String>` and see <https://example.com>."))
	require.Contains(t, rendered, "<div>")
	require.Contains(t, rendered, "Vec<String>")
	require.Contains(t, rendered, "https://example.com")
}
