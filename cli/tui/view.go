package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/malonaz/aichat/chat/transcript"
	"github.com/malonaz/aichat/cli/tui/styles"
	"github.com/malonaz/aichat/internal/router"
)

const (
	signInHelp       = "Enter: sign in • Tab: next field • Ctrl+T: show password • Ctrl+S: create an account • Ctrl+C: quit"
	signUpHelp       = "Enter: create account • Tab: next field • Ctrl+T: show password • Ctrl+S: back to sign in • Ctrl+C: quit"
	verificationHelp = "R: I've verified my email • S: sign out and try again • Ctrl+C: quit"
	chatHelp         = "Ctrl+J: send • Tab: switch focus • ↑/↓: select chat • Ctrl+N: new chat • Alt+W: copy reply • Ctrl+O: sign out"
)

const (
	chatDateLayout    = "2006-01-02"
	messageTimeLayout = "15:04"
)

// View renders the model.
func (m *Model) View() string {
	var content string
	switch m.router.View() {
	case router.ViewLoading:
		content = m.centered(m.spinner.View() + " Loading...")
	case router.ViewSignIn:
		content = m.centered(m.signIn.view(m.authError, signInHelp, m.authBusy, m.spinner.View()))
	case router.ViewSignUp:
		content = m.centered(m.signUp.view(m.authError, signUpHelp, m.authBusy, m.spinner.View()))
	case router.ViewEmailVerification:
		content = m.centered(m.renderVerification())
	case router.ViewAuthenticated:
		content = m.renderChat()
	}
	return m.alert.Render(content)
}

func (m *Model) renderVerification() string {
	var sb strings.Builder
	sb.WriteString(styles.FormTitleStyle.Render("Check Your Email"))
	sb.WriteString("\n")
	sb.WriteString("We've sent you a verification link. Click the link to verify your account, then refresh.")
	sb.WriteString("\n\n")
	for i, step := range []string{
		"Check your inbox (and spam folder)",
		"Click the verification link",
		"Return here to sign in",
	} {
		sb.WriteString(fmt.Sprintf("%s %s\n", styles.FocusedLabelStyle.Render(fmt.Sprintf("%d.", i+1)), step))
	}
	sb.WriteString("\n")
	if m.authBusy {
		sb.WriteString(m.spinner.View() + " Please wait...\n\n")
	}
	sb.WriteString(styles.HelpStyle.Render(verificationHelp))
	return styles.FormStyle.Render(sb.String())
}

func (m *Model) renderChat() string {
	if m.screen == nil || !m.ready {
		return m.spinner.View() + " Loading..."
	}

	var main strings.Builder
	if m.confirmSignOut {
		main.WriteString(m.renderConfirmDialog())
	} else {
		main.WriteString(m.viewport.View())
		main.WriteString("\n")
		main.WriteString(styles.TextAreaStyle.Render(m.textarea.View()))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main.String())
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderHelp())
}

func (m *Model) renderHeader() string {
	user := ""
	if status := m.router.Status(); status.User != nil {
		user = status.User.DisplayName
		if user == "" {
			user = status.User.Email
		}
	}
	title := " 🤖 AI Chat"
	if m.screen != nil {
		if c, ok := m.screen.chats.SelectedChat(); ok {
			title += " │ 💬 " + c.Title
		}
	}
	if user != "" {
		title += " │ 👤 " + user
	}
	title += " "
	if m.width > 0 {
		return styles.TitleStyle.Width(m.width).Render(styles.Truncate(title, m.width))
	}
	return styles.TitleStyle.Render(title)
}

func (m *Model) renderHelp() string {
	if m.confirmSignOut {
		return styles.HelpStyle.Render("Y: sign out • N/Esc: cancel")
	}
	return styles.HelpStyle.Render(chatHelp)
}

func (m *Model) renderSidebar() string {
	var sb strings.Builder
	sb.WriteString(styles.NewChatStyle.Render("+ New Chat (Ctrl+N)"))
	sb.WriteString("\n\n")

	chats := m.screen.chats.Chats()
	switch {
	case len(chats) == 0 && m.screen.chats.Loading():
		sb.WriteString(m.spinner.View() + " Loading chats...")
	case len(chats) == 0:
		sb.WriteString(styles.PlaceholderStyle.Render("No chats yet. Create your first chat!"))
	}
	if m.screen.chats.Creating() {
		sb.WriteString(m.spinner.View() + " Creating chat...\n")
	}

	selected := m.screen.chats.Selected()
	for _, c := range chats {
		title := styles.Truncate(c.Title, styles.SidebarWidth-3)
		if c.ID == selected {
			sb.WriteString(styles.ChatItemSelectedStyle.Render("▸ " + title))
		} else {
			sb.WriteString(styles.ChatItemStyle.Render("  " + title))
		}
		sb.WriteString("\n")
		if date := formatTime(c.UpdatedAt, chatDateLayout); date != "" {
			sb.WriteString(styles.ChatItemDateStyle.Render(date))
			sb.WriteString("\n")
		}
	}

	style := styles.SidebarStyle
	if m.focusedComponent == FocusSidebar {
		style = styles.SidebarFocusedStyle
	}
	return style.Height(m.viewport.Height + m.textarea.Height() + styles.TextAreaStyle.GetVerticalFrameSize()).Render(sb.String())
}

func (m *Model) renderConfirmDialog() string {
	box := styles.ConfirmBoxStyle.Render(
		styles.ConfirmTitleStyle.Render("Sign Out") + "\n\n" +
			"Are you sure you want to sign out? You'll need to sign in again to access your chats.",
	)
	height := m.viewport.Height + m.textarea.Height() + styles.TextAreaStyle.GetVerticalFrameSize()
	return lipgloss.Place(m.mainWidth(), height, lipgloss.Center, lipgloss.Center, box)
}

// renderMessages renders the rows of the active chat.
func (m *Model) renderMessages() string {
	t := m.screen.transcript
	switch {
	case t.ChatID() == "":
		return styles.PlaceholderStyle.Render("Select a chat from the sidebar or create a new one to get started")
	case t.Err() != nil:
		return styles.ErrorStyle.Render(transcript.LoadFailedMessage)
	case !t.Loaded() && !m.showThinking():
		return m.spinner.View() + " Loading messages..."
	}

	rows := t.Rows(m.screen.userID, m.showThinking())
	if len(rows) == 0 {
		return styles.PlaceholderStyle.Render("Start a conversation\nSend a message to begin chatting with the AI")
	}

	width := m.viewport.Width
	rendered := make([]string, 0, len(rows))
	for _, row := range rows {
		rendered = append(rendered, m.renderRow(row, width))
	}
	return strings.Join(rendered, "\n")
}

func (m *Model) renderRow(row transcript.Row, width int) string {
	switch row.Kind {
	case transcript.RowHuman:
		style := styles.UserMessageStyle
		contentWidth := width - style.GetHorizontalMargins() - style.GetHorizontalBorderSize()
		return style.Width(max(1, contentWidth)).Render(withTimestamp(row.Message.Text, row.Message.CreatedAt))
	case transcript.RowAI:
		rendered := strings.TrimRight(m.renderer.Render(row.Message.ID, row.Message.Text), "\n")
		return styles.AIMessageStyle.Render(withTimestamp(rendered, row.Message.CreatedAt))
	default:
		return styles.ThinkingStyle.Render(m.spinner.View() + " " + transcript.ThinkingMessage + "...")
	}
}

// withTimestamp appends the local time of a message below its content.
func withTimestamp(content string, createdAt time.Time) string {
	if stamp := formatTime(createdAt, messageTimeLayout); stamp != "" {
		return content + "\n" + styles.TimestampStyle.Render(stamp)
	}
	return content
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(layout)
}
