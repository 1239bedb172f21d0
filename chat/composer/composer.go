package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/malonaz/aichat/chat"
)

// Names of the submit steps, in order.
const (
	StepRenameChat    = "rename-chat"
	StepInsertMessage = "insert-message"
	StepRequestReply  = "request-reply"
)

// DefaultTitleLength is the number of characters of the first message kept in a chat title.
const DefaultTitleLength = 50

const ellipsis = "..."

// Backend is the set of operations issued by a submit.
type Backend interface {
	UpdateChatTitle(ctx context.Context, chatID, title string) (*chat.Chat, error)
	InsertMessage(ctx context.Context, chatID, text string) (*chat.Message, error)
	SendMessage(ctx context.Context, chatID, text string) (string, error)
}

// StepError is returned when a submit step fails.
type StepError struct {
	Step string
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Compensation undoes a completed step after a later step failed.
type Compensation func(ctx context.Context, submission *Submission) error

// Submission is a single validated submit.
type Submission struct {
	ChatID string
	UserID string
	// Trimmed text of the message.
	Text string
	// Snapshot of whether the chat had no messages when the submit started.
	FirstMessage bool
}

// Option configures a Composer.
type Option func(*Composer)

// WithCompensation registers the compensation run for a completed step when a later step fails.
func WithCompensation(step string, compensation Compensation) Option {
	return func(c *Composer) { c.compensations[step] = compensation }
}

// WithTitleLength overrides DefaultTitleLength.
func WithTitleLength(length int) Option {
	return func(c *Composer) {
		if length > 0 {
			c.titleLength = length
		}
	}
}

// WithOnSendingStart registers a hook fired when a submit starts.
func WithOnSendingStart(fn func()) Option {
	return func(c *Composer) { c.onSendingStart = fn }
}

// WithOnSendingEnd registers a hook fired when a submit ends, whatever its outcome.
func WithOnSendingEnd(fn func()) Option {
	return func(c *Composer) { c.onSendingEnd = fn }
}

// Composer holds the draft of a message and submits it.
type Composer struct {
	backend        Backend
	log            *slog.Logger
	titleLength    int
	compensations  map[string]Compensation
	onSendingStart func()
	onSendingEnd   func()

	mu         sync.Mutex
	draft      string
	submitting bool
}

// New instantiates and returns a new composer.
func New(backend Backend, log *slog.Logger, opts ...Option) *Composer {
	if log == nil {
		log = slog.Default()
	}
	c := &Composer{
		backend:        backend,
		log:            log,
		titleLength:    DefaultTitleLength,
		compensations:  map[string]Compensation{},
		onSendingStart: func() {},
		onSendingEnd:   func() {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Draft returns the current draft.
func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the draft.
func (c *Composer) SetDraft(draft string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = draft
}

// Submitting returns true while a submit is in flight.
func (c *Composer) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Prepare validates the draft and starts a submit: the draft is cleared and OnSendingStart fires.
// It returns false, leaving everything untouched, if the trimmed draft is empty, the user is
// unknown or a submit is already in flight. Every prepared submission must be finished.
func (c *Composer) Prepare(chatID, userID string, firstMessage bool) (*Submission, bool) {
	c.mu.Lock()
	text := strings.TrimSpace(c.draft)
	if text == "" || userID == "" || c.submitting {
		c.mu.Unlock()
		return nil, false
	}
	c.draft = ""
	c.submitting = true
	c.mu.Unlock()

	c.onSendingStart()
	return &Submission{ChatID: chatID, UserID: userID, Text: text, FirstMessage: firstMessage}, true
}

// Run executes the steps of a submission, each awaited before the next. When a step fails
// the compensations of the completed steps run in reverse order and a *StepError is returned.
func (c *Composer) Run(ctx context.Context, submission *Submission) error {
	type step struct {
		name string
		run  func(ctx context.Context) error
	}
	steps := make([]step, 0, 3)
	if submission.FirstMessage {
		steps = append(steps, step{StepRenameChat, func(ctx context.Context) error {
			_, err := c.backend.UpdateChatTitle(ctx, submission.ChatID, GenerateTitle(submission.Text, c.titleLength))
			return err
		}})
	}
	steps = append(steps,
		step{StepInsertMessage, func(ctx context.Context) error {
			_, err := c.backend.InsertMessage(ctx, submission.ChatID, submission.Text)
			return err
		}},
		step{StepRequestReply, func(ctx context.Context) error {
			_, err := c.backend.SendMessage(ctx, submission.ChatID, submission.Text)
			return err
		}},
	)

	completed := make([]string, 0, len(steps))
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			c.log.Error("submitting message", "step", s.name, "chat_id", submission.ChatID, "error", err)
			c.compensate(ctx, submission, completed)
			return &StepError{Step: s.name, Err: err}
		}
		completed = append(completed, s.name)
	}
	return nil
}

func (c *Composer) compensate(ctx context.Context, submission *Submission, completed []string) {
	for i := len(completed) - 1; i >= 0; i-- {
		compensation, ok := c.compensations[completed[i]]
		if !ok {
			continue
		}
		if err := compensation(ctx, submission); err != nil {
			c.log.Error("compensating step", "step", completed[i], "chat_id", submission.ChatID, "error", err)
		}
	}
}

// Finish ends a submit. On failure the submitted text is restored into the draft.
// OnSendingEnd always fires.
func (c *Composer) Finish(submission *Submission, err error) {
	c.mu.Lock()
	if err != nil {
		c.draft = submission.Text
	}
	c.submitting = false
	c.mu.Unlock()
	c.onSendingEnd()
}

// Submit prepares, runs and finishes a submit. It is a no-op returning nil when the
// preconditions are not met.
func (c *Composer) Submit(ctx context.Context, chatID, userID string, firstMessage bool) (err error) {
	submission, ok := c.Prepare(chatID, userID, firstMessage)
	if !ok {
		return nil
	}
	defer func() { c.Finish(submission, err) }()
	return c.Run(ctx, submission)
}

// GenerateTitle returns the first maxLength characters of the trimmed text, followed by an
// ellipsis when truncated.
func GenerateTitle(text string, maxLength int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength]) + ellipsis
}
