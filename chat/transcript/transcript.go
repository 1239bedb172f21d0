package transcript

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"

	"github.com/malonaz/aichat/chat"
)

// LoadFailedMessage is shown in place of the transcript when the subscription fails.
const LoadFailedMessage = "Failed to load messages"

// ThinkingMessage is shown while an AI turn is in flight.
const ThinkingMessage = "AI is thinking"

// Backend opens message subscriptions.
type Backend interface {
	SubscribeMessages(ctx context.Context, chatID string) (chat.MessageStream, error)
}

// Update is a full result set delivered by the subscription of a chat.
type Update struct {
	ChatID string
	// Generation of the subscription that produced this update.
	Generation uint64
	Messages   []*chat.Message
	Err        error
	// Set on the last update of a subscription the server completed.
	Done bool
}

// Transcript keeps a live view of the messages of the active chat.
type Transcript struct {
	backend Backend
	log     *slog.Logger

	mu         sync.Mutex
	chatID     string
	generation uint64
	cancel     context.CancelFunc
	messages   []*chat.Message
	loaded     bool
	done       bool
	err        error
}

// New instantiates and returns a new transcript.
func New(backend Backend, log *slog.Logger) *Transcript {
	if log == nil {
		log = slog.Default()
	}
	return &Transcript{backend: backend, log: log, cancel: func() {}}
}

// Switch makes chatID the active chat: the previous subscription is cancelled, the messages
// are reset and a new subscription forwards every result set to notify. An empty chatID only
// cancels. notify is called from a separate goroutine; updates must be fed back through Apply.
func (t *Transcript) Switch(ctx context.Context, chatID string, notify func(Update)) {
	t.mu.Lock()
	t.cancel()
	t.generation++
	t.chatID = chatID
	t.messages = nil
	t.loaded = false
	t.done = false
	t.err = nil
	generation := t.generation
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	if chatID == "" {
		return
	}
	go t.subscribe(ctx, chatID, generation, notify)
}

func (t *Transcript) subscribe(ctx context.Context, chatID string, generation uint64, notify func(Update)) {
	stream, err := t.backend.SubscribeMessages(ctx, chatID)
	if err != nil {
		if ctx.Err() == nil {
			notify(Update{ChatID: chatID, Generation: generation, Err: err})
		}
		return
	}
	defer stream.Close()

	for {
		messages, err := stream.Recv(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.log.Debug("message stream ended", "chat_id", chatID)
				notify(Update{ChatID: chatID, Generation: generation, Done: true})
				return
			}
			notify(Update{ChatID: chatID, Generation: generation, Err: err})
			return
		}
		notify(Update{ChatID: chatID, Generation: generation, Messages: messages})
	}
}

// Apply installs an update. Updates of a previous chat or subscription are dropped and
// accepted is false. The message order is kept as received. newIDs lists the ids that were
// not in the previous result set.
func (t *Transcript) Apply(update Update) (newIDs []string, accepted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if update.ChatID != t.chatID || update.Generation != t.generation {
		return nil, false
	}
	if update.Err != nil {
		t.err = update.Err
		t.log.Error("loading messages", "chat_id", update.ChatID, "error", update.Err)
		return nil, true
	}
	if update.Done {
		t.done = true
		return nil, true
	}

	previous := strset.NewWithSize(len(t.messages))
	for _, message := range t.messages {
		previous.Add(message.ID)
	}
	for _, message := range update.Messages {
		if !previous.Has(message.ID) {
			newIDs = append(newIDs, message.ID)
		}
	}
	t.messages = update.Messages
	t.loaded = true
	t.err = nil
	return newIDs, true
}

// Done returns true once the server has completed the subscription of the active chat.
func (t *Transcript) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Close cancels the active subscription.
func (t *Transcript) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel()
}

// ChatID returns the active chat id.
func (t *Transcript) ChatID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chatID
}

// Messages returns the messages of the active chat in received order.
func (t *Transcript) Messages() []*chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	messages := make([]*chat.Message, len(t.messages))
	copy(messages, t.messages)
	return messages
}

// Count returns the number of messages of the active chat.
func (t *Transcript) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Loaded returns true once a result set was received for the active chat.
func (t *Transcript) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// Err returns the subscription error of the active chat, if any.
func (t *Transcript) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
