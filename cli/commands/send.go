package commands

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/malonaz/aichat/chat"
	"github.com/malonaz/aichat/chat/composer"
	"github.com/malonaz/aichat/internal/cli"
)

func newSendCmd(clients *Clients) *cobra.Command {
	var opts struct {
		ChatID string
		First  bool
	}
	cmd := &cobra.Command{
		Use:   "send [text...]",
		Short: "Send a message to a chat and request the AI reply",
		Long:  "Send a message to a chat and request the AI reply. The message is read from the terminal when no text is given (Ctrl+J to send).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := chat.ValidateChatID(opts.ChatID); err != nil {
				return err
			}
			user, err := requireSession(cmd.Context(), clients)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				historyFile := filepath.Join(filepath.Dir(clients.Config.HistoryFile), "send_history")
				if text, err = cli.PromptMessage(historyFile); err != nil {
					return err
				}
			}

			if strings.TrimSpace(text) == "" {
				cli.Info("Nothing to send")
				return nil
			}

			c := composer.New(clients.Chat, clients.Log, composer.WithTitleLength(clients.Config.Chat.TitleLength))
			c.SetDraft(text)
			if err := c.Submit(cmd.Context(), opts.ChatID, user.ID, opts.First); err != nil {
				return err
			}
			cli.Info("Message sent")
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.ChatID, "chat", "c", "", "Chat id")
	cmd.Flags().BoolVar(&opts.First, "first", false, "Name the chat after this message")
	cmd.MarkFlagRequired("chat")
	return cmd
}
