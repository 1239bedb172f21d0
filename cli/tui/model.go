package tui

import (
	"context"
	"log/slog"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.dalton.dog/bubbleup"

	"github.com/malonaz/aichat/chat/chatlist"
	"github.com/malonaz/aichat/chat/composer"
	"github.com/malonaz/aichat/chat/transcript"
	"github.com/malonaz/aichat/cli/tui/styles"
	"github.com/malonaz/aichat/internal/auth"
	"github.com/malonaz/aichat/internal/configuration"
	"github.com/malonaz/aichat/internal/history"
	"github.com/malonaz/aichat/internal/markdown"
	"github.com/malonaz/aichat/internal/router"
)

const (
	FocusComposer FocusedComponent = iota
	FocusSidebar
)

// FocusedComponent is the component of the chat screen receiving keys.
type FocusedComponent int

// Identity is the identity provider client driving the router.
type Identity interface {
	router.Identity
	Start(ctx context.Context) error
	Subscribe() (<-chan auth.Status, func())
	SignInEmailPassword(ctx context.Context, email, password string) (*auth.Session, error)
	SignUpEmailPassword(ctx context.Context, email, password, displayName string) (*auth.SignUpResult, error)
}

// Backend is the set of chat operations used by the chat screen.
type Backend interface {
	chatlist.Backend
	transcript.Backend
	composer.Backend
}

// chatScreen holds the components mounted while authenticated. It is rebuilt for every user.
type chatScreen struct {
	userID     string
	chats      *chatlist.List
	transcript *transcript.Transcript
	composer   *composer.Composer
	// Set while an AI turn is in flight for sendingChatID.
	thinking      bool
	sendingChatID string
}

// Model represents the Bubble Tea model for the whole application.
type Model struct {
	// Core dependencies
	ctx      context.Context
	config   *configuration.Config
	identity Identity
	backend  Backend
	router   *router.Router
	log      *slog.Logger

	// Auth screens
	signIn    *authForm
	signUp    *authForm
	authBusy  bool
	authError string

	// Chat screen, nil unless authenticated.
	screen *chatScreen

	// UI components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *markdown.Renderer
	alert    bubbleup.AlertModel

	// UI state
	width            int
	height           int
	ready            bool
	focusedComponent FocusedComponent
	confirmSignOut   bool

	// Program reference for sending messages from goroutines
	program   *tea.Program
	programMu sync.Mutex

	// Input history
	history *history.History

	stopStatus func()
}

// New creates the application model.
func New(
	ctx context.Context,
	config *configuration.Config,
	identity Identity,
	backend Backend,
	log *slog.Logger,
) (*Model, error) {
	ta := textarea.New()
	ta.Placeholder = "Type your message... (Ctrl+J to send, Alt+P/N for history, Tab to switch focus)"
	ta.CharLimit = 0
	ta.SetWidth(styles.DefaultTextareaWidth)
	ta.SetHeight(styles.MinTextareaHeight)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(true)
	ta.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	renderer, err := markdown.NewRenderer(styles.DefaultTextareaWidth)
	if err != nil {
		return nil, err
	}

	h, err := history.New(config.HistoryFile, 0)
	if err != nil {
		return nil, err
	}

	return &Model{
		ctx:      ctx,
		config:   config,
		identity: identity,
		backend:  backend,
		router:   router.New(identity),
		log:      log,
		signIn:   newSignInForm(),
		signUp:   newSignUpForm(),
		textarea: ta,
		spinner:  sp,
		renderer: renderer,
		alert:    *bubbleup.NewAlertModel(25, true, 1),
		history:  h,
	}, nil
}

// SetProgram sets the tea.Program reference for async message sending.
func (m *Model) SetProgram(p *tea.Program) {
	m.programMu.Lock()
	defer m.programMu.Unlock()
	m.program = p
}

// getProgram safely gets the program reference.
func (m *Model) getProgram() *tea.Program {
	m.programMu.Lock()
	defer m.programMu.Unlock()
	return m.program
}

// send delivers a message to the program. Messages sent before the program is set are dropped.
func (m *Model) send(msg tea.Msg) {
	if p := m.getProgram(); p != nil {
		p.Send(msg)
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	statuses, stop := m.identity.Subscribe()
	m.stopStatus = stop
	return tea.Batch(
		m.spinner.Tick,
		m.alert.Init(),
		m.signIn.focus(),
		waitForStatus(statuses),
		m.startIdentity(),
	)
}

// Close releases the subscriptions held by the model.
func (m *Model) Close() {
	if m.stopStatus != nil {
		m.stopStatus()
	}
	m.unmountChatScreen()
}

// mountChatScreen builds the chat components for the signed in user.
func (m *Model) mountChatScreen(userID string) tea.Cmd {
	if m.screen != nil && m.screen.userID == userID {
		return nil
	}
	m.unmountChatScreen()

	screen := &chatScreen{userID: userID}
	screen.chats = chatlist.New(m.backend, userID, m.log, chatlist.WithDefaultTitle(m.config.Chat.DefaultTitle))
	screen.transcript = transcript.New(m.backend, m.log)
	screen.composer = composer.New(
		m.backend, m.log,
		composer.WithTitleLength(m.config.Chat.TitleLength),
		composer.WithOnSendingStart(func() { screen.thinking = true }),
		composer.WithOnSendingEnd(func() { screen.thinking = false }),
	)
	m.screen = screen
	m.focusedComponent = FocusSidebar
	m.textarea.Reset()
	m.textarea.Blur()
	m.recalculateLayout()
	return m.loadChats()
}

// unmountChatScreen tears down the chat components and their subscription.
func (m *Model) unmountChatScreen() {
	if m.screen == nil {
		return
	}
	m.screen.transcript.Close()
	m.screen = nil
	m.confirmSignOut = false
}

// switchChat subscribes the transcript to a chat. Updates are pushed to the program.
func (m *Model) switchChat(chatID string) {
	if m.screen == nil || chatID == "" || chatID == m.screen.transcript.ChatID() {
		return
	}
	m.screen.chats.Select(chatID)
	m.screen.transcript.Switch(m.ctx, chatID, func(update transcript.Update) {
		m.send(TranscriptMsg{Update: update})
	})
	m.refreshViewport(true)
}

// latestAIMessage returns the text of the newest message not authored by the user.
func (m *Model) latestAIMessage() (string, bool) {
	if m.screen == nil {
		return "", false
	}
	rows := m.screen.transcript.Rows(m.screen.userID, false)
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Kind == transcript.RowAI {
			return rows[i].Message.Text, true
		}
	}
	return "", false
}
