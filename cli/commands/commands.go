package commands

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/aichat/chat"
	"github.com/malonaz/aichat/cli/tui"
	"github.com/malonaz/aichat/internal/auth"
	"github.com/malonaz/aichat/internal/configuration"
)

// ErrNotSignedIn is returned by commands that need a session when there is none.
var ErrNotSignedIn = errors.New("not signed in, run `aichat login` first")

// Clients are the constructed dependencies shared by every command.
type Clients struct {
	Config   *configuration.Config
	Identity *auth.Client
	Chat     *chat.Client
	Log      *slog.Logger
}

// NewRootCmd instantiates and returns the root command. Without a subcommand it runs the TUI.
func NewRootCmd(clients *Clients) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "aichat",
		Short:         "Chat with an AI from the terminal",
		Version:       "1.0",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), clients)
		},
	}

	cmd.AddCommand(
		newTUICmd(clients),
		newLoginCmd(clients),
		newSignUpCmd(clients),
		newLogoutCmd(clients),
		newChatsCmd(clients),
		newNewChatCmd(clients),
		newSendCmd(clients),
		newWatchCmd(clients),
	)
	return cmd
}

func newTUICmd(clients *Clients) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), clients)
		},
	}
}

func runTUI(ctx context.Context, clients *Clients) error {
	m, err := tui.New(ctx, clients.Config, clients.Identity, clients.Chat, clients.Log)
	if err != nil {
		return errors.Wrap(err, "creating tui")
	}
	return tui.Run(ctx, m)
}

// requireSession restores the persisted session and returns the signed in user.
func requireSession(ctx context.Context, clients *Clients) (*auth.User, error) {
	if err := clients.Identity.Start(ctx); err != nil {
		clients.Log.Error("restoring session", "error", err)
	}
	status := clients.Identity.Status()
	if !status.IsAuthenticated || status.User == nil {
		return nil, ErrNotSignedIn
	}
	return status.User, nil
}

func (c *Clients) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.Config.Timeout())
}
