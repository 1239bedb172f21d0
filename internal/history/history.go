package history

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/malonaz/aichat/internal/file"
)

// DefaultSize is the number of entries kept when no size is given.
const DefaultSize = 1000

// History is the persisted list of messages sent from the composer, navigable with up/down.
type History struct {
	path    string
	size    int
	mu      sync.Mutex
	entries []string
	// Position while navigating, -1 when editing a new entry.
	index int
	// Draft being edited when navigation started.
	draft string
}

// New loads the history stored at path. A missing file yields an empty history.
func New(path string, size int) (*History, error) {
	if size <= 0 {
		size = DefaultSize
	}
	h := &History{path: path, size: size, index: -1}
	if err := h.load(); err != nil {
		return nil, errors.Wrapf(err, "loading history %s", path)
	}
	return h, nil
}

func (h *History) load() error {
	f, err := os.Open(h.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if entry := unescape(scanner.Text()); entry != "" {
			h.entries = append(h.entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	h.trim()
	return nil
}

func (h *History) save() error {
	if err := file.CreateParentDirectory(h.path); err != nil {
		return err
	}
	f, err := os.Create(h.path)
	if err != nil {
		return errors.Wrap(err, "creating history file")
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	for _, entry := range h.entries {
		if _, err := writer.WriteString(escape(entry) + "\n"); err != nil {
			return errors.Wrap(err, "writing history")
		}
	}
	return errors.Wrap(writer.Flush(), "flushing history")
}

func (h *History) trim() {
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
}

// Entries are stored one per line.
func escape(entry string) string {
	entry = strings.ReplaceAll(entry, `\`, `\\`)
	return strings.ReplaceAll(entry, "\n", `\n`)
}

func unescape(line string) string {
	var sb strings.Builder
	for i := 0; i < len(line); i++ {
		if line[i] == '\\' && i+1 < len(line) {
			switch line[i+1] {
			case 'n':
				sb.WriteByte('\n')
				i++
				continue
			case '\\':
				sb.WriteByte('\\')
				i++
				continue
			}
		}
		sb.WriteByte(line[i])
	}
	return sb.String()
}

// Add appends an entry and persists the history. Blank entries and repeats of the last
// entry are skipped.
func (h *History) Add(entry string) error {
	entry = strings.TrimSpace(entry)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.index = -1
	h.draft = ""
	if entry == "" || (len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry) {
		return nil
	}
	h.entries = append(h.entries, entry)
	h.trim()
	return h.save()
}

// Previous returns the entry before the current one. The draft is remembered when
// navigation starts. It returns false at the oldest entry.
func (h *History) Previous(draft string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case len(h.entries) == 0:
		return "", false
	case h.index == -1:
		h.draft = draft
		h.index = len(h.entries) - 1
	case h.index > 0:
		h.index--
	default:
		return h.entries[0], false
	}
	return h.entries[h.index], true
}

// Next returns the entry after the current one, and the remembered draft past the newest.
func (h *History) Next() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == -1 {
		return "", false
	}
	h.index++
	if h.index >= len(h.entries) {
		h.index = -1
		return h.draft, true
	}
	return h.entries[h.index], true
}

// Reset stops navigating.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.index = -1
	h.draft = ""
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
