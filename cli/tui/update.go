package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.dalton.dog/bubbleup"
	"golang.design/x/clipboard"

	"github.com/malonaz/aichat/internal/router"
)

type KeyMapGlobal struct {
	Quit    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

type KeyMapAuth struct {
	NextField     key.Binding
	PreviousField key.Binding
	Submit        key.Binding
	SwitchScreen  key.Binding
	ShowPassword  key.Binding
}

type KeyMapVerification struct {
	Refresh key.Binding
	SignOut key.Binding
}

type KeyMapChat struct {
	CycleFocus key.Binding
	NewChat    key.Binding
	SignOut    key.Binding
	Copy       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
}

type KeyMapSidebar struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
}

type InputKeyMap struct {
	Send                 key.Binding
	PreviousHistoryEntry key.Binding
	NextHistoryEntry     key.Binding
}

var keyMapGlobal = KeyMapGlobal{
	Quit:    key.NewBinding(key.WithKeys("ctrl+c")),
	Confirm: key.NewBinding(key.WithKeys("y", "Y", "enter")),
	Cancel:  key.NewBinding(key.WithKeys("n", "N", "esc")),
}

var keyMapAuth = KeyMapAuth{
	NextField:     key.NewBinding(key.WithKeys("tab", "down")),
	PreviousField: key.NewBinding(key.WithKeys("shift+tab", "up")),
	Submit:        key.NewBinding(key.WithKeys("enter")),
	SwitchScreen:  key.NewBinding(key.WithKeys("ctrl+s")),
	ShowPassword:  key.NewBinding(key.WithKeys("ctrl+t")),
}

var keyMapVerification = KeyMapVerification{
	Refresh: key.NewBinding(key.WithKeys("r", "enter")),
	SignOut: key.NewBinding(key.WithKeys("s")),
}

var keyMapChat = KeyMapChat{
	CycleFocus: key.NewBinding(key.WithKeys("tab")),
	NewChat:    key.NewBinding(key.WithKeys("ctrl+n")),
	SignOut:    key.NewBinding(key.WithKeys("ctrl+o")),
	Copy:       key.NewBinding(key.WithKeys("alt+w")),
	ScrollUp:   key.NewBinding(key.WithKeys("pgup")),
	ScrollDown: key.NewBinding(key.WithKeys("pgdown")),
}

var keyMapSidebar = KeyMapSidebar{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Select: key.NewBinding(key.WithKeys("enter")),
}

var inputKeyMap = InputKeyMap{
	Send:                 key.NewBinding(key.WithKeys("ctrl+j")),
	PreviousHistoryEntry: key.NewBinding(key.WithKeys("alt+p")),
	NextHistoryEntry:     key.NewBinding(key.WithKeys("alt+n")),
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Always update the alert model with every message
	outAlert, alertCmd := m.alert.Update(msg)
	m.alert = outAlert.(bubbleup.AlertModel)
	if alertCmd != nil {
		cmds = append(cmds, alertCmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.showThinking() {
			m.refreshViewport(false)
		}

	case StatusMsg:
		if msg.Closed {
			break
		}
		m.router.SetStatus(msg.Status)
		cmds = append(cmds, waitForStatus(msg.next), m.syncView())

	case IdentityStartedMsg:
		if msg.Err != nil {
			m.log.Error("restoring session", "error", msg.Err)
			cmds = append(cmds, m.alert.NewAlertCmd(bubbleup.WarnKey, "Could not restore session"))
		}
		m.router.SetStatus(m.identity.Status())
		cmds = append(cmds, m.syncView())

	case SignInDoneMsg:
		m.authBusy = false
		m.authError = ""
		if msg.Err != nil {
			m.authError = errorMessage(msg.Err)
		} else {
			cmds = append(cmds, m.signIn.reset())
		}
		m.router.SetStatus(m.identity.Status())
		cmds = append(cmds, m.syncView())

	case SignUpDoneMsg:
		m.authBusy = false
		m.authError = ""
		if msg.Err != nil {
			m.authError = errorMessage(msg.Err)
		} else if msg.Result != nil && msg.Result.IsSuccess {
			cmds = append(cmds, m.signUp.reset())
			m.router.SignUpSucceeded()
		}
		m.router.SetStatus(m.identity.Status())
		cmds = append(cmds, m.syncView())

	case RefreshDoneMsg:
		m.authBusy = false
		if msg.Err != nil {
			m.log.Error("refreshing session", "error", msg.Err)
		}
		cmds = append(cmds, m.signIn.focus(), m.syncView())

	case SignOutDoneMsg:
		m.authBusy = false
		if msg.Err != nil {
			m.log.Error("signing out", "error", msg.Err)
			cmds = append(cmds, m.alert.NewAlertCmd(bubbleup.WarnKey, "Signed out locally"))
		}
		cmds = append(cmds, m.signIn.reset(), m.syncView())

	case ChatsLoadedMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.alert.NewAlertCmd(bubbleup.ErrorKey, "Failed to load chats"))
		}

	case ChatCreatedMsg:
		if m.screen == nil {
			break
		}
		if msg.Err != nil {
			cmds = append(cmds, m.alert.NewAlertCmd(bubbleup.ErrorKey, "Failed to create chat"))
			break
		}
		m.switchChat(msg.ID)
		cmds = append(cmds, m.focusComposer())

	case TranscriptMsg:
		if m.screen == nil {
			break
		}
		if _, accepted := m.screen.transcript.Apply(msg.Update); accepted {
			m.refreshViewport(true)
		}

	case SubmitDoneMsg:
		msg.composer.Finish(msg.Submission, msg.Err)
		if m.screen == nil || m.screen.composer != msg.composer {
			break
		}
		if msg.Err != nil {
			m.textarea.SetValue(m.screen.composer.Draft())
			m.adjustTextareaHeight()
			cmds = append(cmds, m.alert.NewAlertCmd(bubbleup.ErrorKey, "Failed to send message"))
		}
		if msg.Submission.FirstMessage {
			cmds = append(cmds, m.loadChats())
		}
		m.refreshViewport(true)

	case tea.MouseMsg:
		if m.screen != nil && m.ready {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	default:
		// Cursor blinks.
		cmds = append(cmds, m.updateInputs(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	switch m.router.View() {
	case router.ViewSignIn:
		return m.signIn.update(msg)
	case router.ViewSignUp:
		return m.signUp.update(msg)
	case router.ViewAuthenticated:
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return cmd
	}
	return nil
}

// syncView mounts or unmounts the chat screen to match the router.
func (m *Model) syncView() tea.Cmd {
	if m.router.View() != router.ViewAuthenticated {
		m.unmountChatScreen()
		return nil
	}
	status := m.router.Status()
	return m.mountChatScreen(status.User.ID)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, keyMapGlobal.Quit) {
		return tea.Quit
	}

	switch m.router.View() {
	case router.ViewSignIn:
		return m.handleAuthKey(msg, m.signIn)
	case router.ViewSignUp:
		return m.handleAuthKey(msg, m.signUp)
	case router.ViewEmailVerification:
		return m.handleVerificationKey(msg)
	case router.ViewAuthenticated:
		return m.handleChatKey(msg)
	}
	return nil
}

func (m *Model) handleAuthKey(msg tea.KeyMsg, form *authForm) tea.Cmd {
	km := keyMapAuth
	switch {
	case key.Matches(msg, km.NextField):
		return form.move(1)
	case key.Matches(msg, km.PreviousField):
		return form.move(-1)
	case key.Matches(msg, km.ShowPassword):
		form.toggleShowPassword()
		return nil
	case key.Matches(msg, km.SwitchScreen):
		if m.authBusy {
			return nil
		}
		m.authError = ""
		if form == m.signIn {
			m.router.ShowSignUp()
			return m.signUp.focus()
		}
		m.router.ShowSignIn()
		return m.signIn.focus()
	case key.Matches(msg, km.Submit):
		if m.authBusy {
			return nil
		}
		if label, ok := form.missing(); ok {
			m.authError = label + " is required"
			return nil
		}
		m.authBusy = true
		m.authError = ""
		if form == m.signIn {
			return m.signInCmd(form.value(fieldEmail), form.value(fieldPassword))
		}
		return m.signUpCmd(form.value(fieldEmail), form.value(fieldPassword), form.value(fieldDisplayName))
	}
	if m.authBusy {
		return nil
	}
	return form.update(msg)
}

func (m *Model) handleVerificationKey(msg tea.KeyMsg) tea.Cmd {
	if m.authBusy {
		return nil
	}
	switch {
	case key.Matches(msg, keyMapVerification.Refresh):
		m.authBusy = true
		return m.refreshCmd()
	case key.Matches(msg, keyMapVerification.SignOut):
		m.authBusy = true
		return m.signOutCmd()
	}
	return nil
}

func (m *Model) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	if m.screen == nil {
		return nil
	}

	if m.confirmSignOut {
		switch {
		case key.Matches(msg, keyMapGlobal.Confirm):
			m.confirmSignOut = false
			return m.signOutCmd()
		case key.Matches(msg, keyMapGlobal.Cancel):
			m.confirmSignOut = false
		}
		return nil
	}

	km := keyMapChat
	switch {
	case key.Matches(msg, km.SignOut):
		m.confirmSignOut = true
		return nil

	case key.Matches(msg, km.NewChat):
		if m.screen.chats.Creating() {
			return nil
		}
		return m.createChat()

	case key.Matches(msg, km.CycleFocus):
		if m.focusedComponent == FocusComposer {
			m.focusedComponent = FocusSidebar
			m.textarea.Blur()
			return nil
		}
		return m.focusComposer()

	case key.Matches(msg, km.Copy):
		content, ok := m.latestAIMessage()
		if !ok {
			return nil
		}
		if err := clipboard.Init(); err != nil {
			m.log.Error("initializing clipboard", "error", err)
			return m.alert.NewAlertCmd(bubbleup.ErrorKey, "Clipboard unavailable")
		}
		clipboard.Write(clipboard.FmtText, []byte(content))
		return m.alert.NewAlertCmd(bubbleup.InfoKey, "Copied to clipboard!")

	case key.Matches(msg, km.ScrollUp):
		m.viewport.LineUp(max(1, m.viewport.Height/2))
		return nil

	case key.Matches(msg, km.ScrollDown):
		m.viewport.LineDown(max(1, m.viewport.Height/2))
		return nil
	}

	switch m.focusedComponent {
	case FocusSidebar:
		return m.handleSidebarKey(msg)
	case FocusComposer:
		return m.handleComposerKey(msg)
	}
	return nil
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	km := keyMapSidebar
	switch {
	case key.Matches(msg, km.Up):
		m.switchChat(m.screen.chats.Move(-1))
	case key.Matches(msg, km.Down):
		m.switchChat(m.screen.chats.Move(1))
	case key.Matches(msg, km.Select):
		if m.screen.chats.Selected() != "" {
			return m.focusComposer()
		}
	}
	return nil
}

func (m *Model) handleComposerKey(msg tea.KeyMsg) tea.Cmd {
	// The input is disabled while a message is being sent.
	if m.screen.composer.Submitting() {
		return nil
	}

	km := inputKeyMap
	switch {
	case key.Matches(msg, km.Send):
		return m.sendMessage()

	case key.Matches(msg, km.PreviousHistoryEntry):
		if entry, ok := m.history.Previous(m.textarea.Value()); ok {
			m.textarea.SetValue(entry)
			m.adjustTextareaHeight()
		}
		return nil

	case key.Matches(msg, km.NextHistoryEntry):
		if entry, ok := m.history.Next(); ok {
			m.textarea.SetValue(entry)
			m.adjustTextareaHeight()
		}
		return nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.adjustTextareaHeight()
	return cmd
}

// sendMessage hands the textarea content to the composer and runs the submission.
func (m *Model) sendMessage() tea.Cmd {
	screen := m.screen
	chatID := screen.chats.Selected()
	if chatID == "" {
		return nil
	}
	screen.composer.SetDraft(m.textarea.Value())
	submission, ok := screen.composer.Prepare(chatID, screen.userID, screen.transcript.Count() == 0)
	if !ok {
		return nil
	}
	screen.sendingChatID = chatID
	if err := m.history.Add(submission.Text); err != nil {
		m.log.Error("saving history", "error", err)
	}
	m.textarea.Reset()
	m.adjustTextareaHeight()
	m.refreshViewport(true)
	return m.submit(screen.composer, submission)
}

func (m *Model) focusComposer() tea.Cmd {
	if m.screen == nil || m.screen.chats.Selected() == "" {
		return nil
	}
	m.focusedComponent = FocusComposer
	return tea.Batch(m.textarea.Focus(), textarea.Blink)
}

// showThinking returns true if the thinking row is shown for the active chat.
func (m *Model) showThinking() bool {
	return m.screen != nil && m.screen.thinking && m.screen.sendingChatID == m.screen.transcript.ChatID()
}
