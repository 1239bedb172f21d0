package tui

import (
	"github.com/malonaz/aichat/chat/composer"
	"github.com/malonaz/aichat/chat/transcript"
	"github.com/malonaz/aichat/internal/auth"
)

// StatusMsg carries an identity status change.
type StatusMsg struct {
	Status auth.Status
	// Set when the status subscription is closed.
	Closed bool
	next   <-chan auth.Status
}

// IdentityStartedMsg is sent once the persisted session has been restored.
type IdentityStartedMsg struct{ Err error }

// SignInDoneMsg is the result of a sign-in attempt.
type SignInDoneMsg struct{ Err error }

// SignUpDoneMsg is the result of a sign-up attempt.
type SignUpDoneMsg struct {
	Result *auth.SignUpResult
	Err    error
}

// RefreshDoneMsg is the result of re-evaluating the session from the verification screen.
type RefreshDoneMsg struct{ Err error }

// SignOutDoneMsg is the result of signing out.
type SignOutDoneMsg struct{ Err error }

// ChatsLoadedMsg is sent after the chat list has been fetched.
type ChatsLoadedMsg struct{ Err error }

// ChatCreatedMsg is sent after a chat has been created and selected.
type ChatCreatedMsg struct {
	ID  string
	Err error
}

// TranscriptMsg carries a result set of the active chat subscription.
type TranscriptMsg struct {
	Update transcript.Update
}

// SubmitDoneMsg is sent when a submission has run all its steps or failed.
type SubmitDoneMsg struct {
	Submission *composer.Submission
	Err        error
	composer   *composer.Composer
}
