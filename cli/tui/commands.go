package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/malonaz/aichat/chat/composer"
	"github.com/malonaz/aichat/internal/auth"
)

// waitForStatus forwards the next identity status. It is re-issued after every StatusMsg.
func waitForStatus(statuses <-chan auth.Status) tea.Cmd {
	return func() tea.Msg {
		status, ok := <-statuses
		if !ok {
			return StatusMsg{Closed: true}
		}
		return StatusMsg{Status: status, next: statuses}
	}
}

func (m *Model) startIdentity() tea.Cmd {
	return func() tea.Msg {
		return IdentityStartedMsg{Err: m.identity.Start(m.ctx)}
	}
}

func (m *Model) signInCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		_, err := m.identity.SignInEmailPassword(ctx, email, password)
		return SignInDoneMsg{Err: err}
	}
}

func (m *Model) signUpCmd(email, password, displayName string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		result, err := m.identity.SignUpEmailPassword(ctx, email, password, displayName)
		return SignUpDoneMsg{Result: result, Err: err}
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		return RefreshDoneMsg{Err: m.router.Refresh(ctx)}
	}
}

func (m *Model) signOutCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		return SignOutDoneMsg{Err: m.router.BackToSignIn(ctx)}
	}
}

func (m *Model) loadChats() tea.Cmd {
	chats := m.screen.chats
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		return ChatsLoadedMsg{Err: chats.Load(ctx)}
	}
}

func (m *Model) createChat() tea.Cmd {
	chats := m.screen.chats
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		id, err := chats.Create(ctx)
		return ChatCreatedMsg{ID: id, Err: err}
	}
}

// submit runs a prepared submission. The submission is not tied to the active chat and
// keeps running if the user switches chats.
func (m *Model) submit(c *composer.Composer, submission *composer.Submission) tea.Cmd {
	return func() tea.Msg {
		return SubmitDoneMsg{Submission: submission, Err: c.Run(m.ctx, submission), composer: c}
	}
}

func (m *Model) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, m.config.Timeout())
}

// errorMessage returns the message to show for an error. Identity provider messages are
// shown verbatim.
func errorMessage(err error) string {
	var authErr *auth.Error
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return errors.Cause(err).Error()
}
