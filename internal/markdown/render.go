package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/pkg/errors"
)

type cacheEntry struct {
	content  string
	rendered string
}

// Renderer renders AI messages as terminal markdown. Rendered messages are cached by id.
type Renderer struct {
	mu      sync.Mutex
	glamour *glamour.TermRenderer
	width   int
	cache   map[string]cacheEntry
}

// NewRenderer creates a new markdown renderer wrapping at width.
func NewRenderer(width int) (*Renderer, error) {
	termRenderer, err := newTermRenderer(width)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		glamour: termRenderer,
		width:   width,
		cache:   map[string]cacheEntry{},
	}, nil
}

func newTermRenderer(width int) (*glamour.TermRenderer, error) {
	termRenderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(customStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating glamour renderer")
	}
	return termRenderer, nil
}

// Render renders the markdown content of a message. Raw HTML is dropped.
// An empty id disables caching.
func (r *Renderer) Render(id, content string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.cache[id]; ok && id != "" && entry.content == content {
		return entry.rendered
	}

	blocks := Sanitize(ParseBlocks(content))
	rendered := make([]string, 0, len(blocks))
	for _, block := range blocks {
		rendered = append(rendered, r.renderBlock(block.Markdown()))
	}
	result := strings.Join(rendered, "\n")
	if id != "" {
		r.cache[id] = cacheEntry{content: content, rendered: result}
	}
	return result
}

// Cached returns true if the message is cached.
func (r *Renderer) Cached(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cache[id]
	return ok
}

// SetWidth updates the wrap width. The cache is dropped when the width changes.
func (r *Renderer) SetWidth(width int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.width == width {
		return nil
	}
	termRenderer, err := newTermRenderer(width)
	if err != nil {
		return err
	}
	r.glamour = termRenderer
	r.width = width
	r.cache = map[string]cacheEntry{}
	return nil
}

// renderBlock renders a single block, falling back to the source on error.
func (r *Renderer) renderBlock(content string) string {
	rendered, err := r.glamour.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

// customStyle trims the margins of the dracula style.
func customStyle() ansi.StyleConfig {
	style := styles.DraculaStyleConfig
	zero := uint(0)
	style.Document.Margin = &zero
	style.CodeBlock.Margin = &zero
	style.CodeBlock.Indent = &zero
	style.CodeBlock.Prefix = ""
	style.CodeBlock.BlockPrefix = ""

	style.Code.Prefix = ""
	style.Code.Suffix = ""

	style.Paragraph.BlockPrefix = ""
	style.Paragraph.BlockSuffix = ""
	return style
}
