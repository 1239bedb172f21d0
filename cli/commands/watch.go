package commands

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"
	"github.com/spf13/cobra"

	"github.com/malonaz/aichat/chat"
	"github.com/malonaz/aichat/chat/transcript"
	"github.com/malonaz/aichat/internal/cli"
	"github.com/malonaz/aichat/internal/markdown"
)

func newWatchCmd(clients *Clients) *cobra.Command {
	var opts struct {
		ChatID string
	}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the messages of a chat as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := chat.ValidateChatID(opts.ChatID); err != nil {
				return err
			}
			user, err := requireSession(cmd.Context(), clients)
			if err != nil {
				return err
			}
			renderer, err := markdown.NewRenderer(cli.Width())
			if err != nil {
				return err
			}
			return watch(cmd.Context(), clients.Chat, clients.Log, opts.ChatID, user.ID, renderer)
		},
	}
	cmd.Flags().StringVarP(&opts.ChatID, "chat", "c", "", "Chat id")
	cmd.MarkFlagRequired("chat")
	return cmd
}

// watch prints every message of the chat not printed yet until ctx is done or the stream
// fails or completes.
func watch(ctx context.Context, backend transcript.Backend, log *slog.Logger, chatID, userID string, renderer *markdown.Renderer) error {
	updates := make(chan transcript.Update, 1)
	t := transcript.New(backend, log)
	defer t.Close()
	t.Switch(ctx, chatID, func(update transcript.Update) {
		select {
		case updates <- update:
		case <-ctx.Done():
		}
	})

	for {
		var update transcript.Update
		select {
		case <-ctx.Done():
			return nil
		case update = <-updates:
		}

		newIDs, accepted := t.Apply(update)
		if !accepted {
			continue
		}
		if err := t.Err(); err != nil {
			return errors.Wrap(err, transcript.LoadFailedMessage)
		}

		if t.Done() {
			cli.Info("The chat stopped streaming messages")
			return nil
		}

		fresh := strset.New(newIDs...)
		for _, message := range t.Messages() {
			if !fresh.Has(message.ID) {
				continue
			}
			cli.Separator()
			if message.IsFrom(userID) {
				cli.UserMessage(message.Text)
			} else {
				cli.AIMessage(renderer.Render(message.ID, message.Text))
			}
		}
	}
}
