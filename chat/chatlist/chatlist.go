package chatlist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/malonaz/aichat/chat"
)

// DefaultTitle is the placeholder title of a new chat.
const DefaultTitle = "New Chat"

// Backend is the set of operations used by the chat list.
type Backend interface {
	ListChats(ctx context.Context, userID string) ([]*chat.Chat, error)
	InsertChat(ctx context.Context, title, userID string) (*chat.Chat, error)
}

// Option configures a List.
type Option func(*List)

// WithDefaultTitle overrides DefaultTitle.
func WithDefaultTitle(title string) Option {
	return func(l *List) {
		if title != "" {
			l.defaultTitle = title
		}
	}
}

// List holds the chats of the signed in user and the selected chat.
type List struct {
	backend      Backend
	log          *slog.Logger
	defaultTitle string

	mu       sync.Mutex
	userID   string
	chats    []*chat.Chat
	selected string
	loading  bool
	creating bool
}

// New instantiates and returns a new chat list for a user.
func New(backend Backend, userID string, log *slog.Logger, opts ...Option) *List {
	if log == nil {
		log = slog.Default()
	}
	l := &List{backend: backend, userID: userID, log: log, defaultTitle: DefaultTitle}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the chats of the user, most recently updated first.
func (l *List) Load(ctx context.Context) error {
	l.mu.Lock()
	userID := l.userID
	l.loading = true
	l.mu.Unlock()

	chats, err := l.backend.ListChats(ctx, userID)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		l.log.Error("loading chats", "user_id", userID, "error", err)
		return errors.Wrap(err, "loading chats")
	}
	l.chats = chats
	return nil
}

// Create inserts a chat with the placeholder title, fetches the list again and selects the
// new chat. Its id is returned.
func (l *List) Create(ctx context.Context) (string, error) {
	l.mu.Lock()
	if l.creating {
		l.mu.Unlock()
		return "", errors.New("a chat is already being created")
	}
	l.creating = true
	userID := l.userID
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.creating = false
		l.mu.Unlock()
	}()

	created, err := l.backend.InsertChat(ctx, l.defaultTitle, userID)
	if err != nil {
		l.log.Error("creating chat", "user_id", userID, "error", err)
		return "", errors.Wrap(err, "creating chat")
	}
	if err := l.Load(ctx); err != nil {
		return "", err
	}
	l.Select(created.ID)
	return created.ID, nil
}

// Creating returns true while a chat is being created.
func (l *List) Creating() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.creating
}

// Loading returns true while the chats are being fetched.
func (l *List) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Chats returns the loaded chats.
func (l *List) Chats() []*chat.Chat {
	l.mu.Lock()
	defer l.mu.Unlock()
	chats := make([]*chat.Chat, len(l.chats))
	copy(chats, l.chats)
	return chats
}

// Select makes chatID the selected chat.
func (l *List) Select(chatID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = chatID
}

// Selected returns the selected chat id, or an empty string.
func (l *List) Selected() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selected
}

// SelectedChat returns the selected chat if it is loaded.
func (l *List) SelectedChat() (*chat.Chat, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.chats {
		if c.ID == l.selected {
			return c, true
		}
	}
	return nil, false
}

// Index returns the position of the selected chat, or -1.
func (l *List) Index() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.chats {
		if c.ID == l.selected {
			return i
		}
	}
	return -1
}

// Move selects the chat delta positions away from the selected one, clamped to the list.
// With no selection the first chat is selected. It returns the new selection.
func (l *List) Move(delta int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.chats) == 0 {
		return l.selected
	}
	index := -1
	for i, c := range l.chats {
		if c.ID == l.selected {
			index = i
		}
	}
	if index == -1 {
		index = 0
	} else {
		index = max(0, min(len(l.chats)-1, index+delta))
	}
	l.selected = l.chats[index].ID
	return l.selected
}
