package commands

import (
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/aichat/chat"
	"github.com/malonaz/aichat/chat/chatlist"
	"github.com/malonaz/aichat/internal/cli"
)

const defaultChatsTemplate = `{{ range . }}{{ .ID }}  {{ .UpdatedAt.Local.Format "2006-01-02 15:04" }}  {{ .Title | trunc 60 }}
{{ end }}`

// renderChats writes the chats through a text template with the sprig functions.
func renderChats(w io.Writer, text string, chats []*chat.Chat) error {
	tmpl, err := template.New("chats").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return errors.Wrap(err, "parsing template")
	}
	return errors.Wrap(tmpl.Execute(w, chats), "executing template")
}

func newChatsCmd(clients *Clients) *cobra.Command {
	var opts struct {
		Template string
	}
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List your chats, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireSession(cmd.Context(), clients)
			if err != nil {
				return err
			}

			ctx, cancel := clients.requestContext(cmd.Context())
			defer cancel()
			list := chatlist.New(clients.Chat, user.ID, clients.Log)
			if err := list.Load(ctx); err != nil {
				return err
			}
			chats := list.Chats()

			if opts.Template != "" {
				return renderChats(cmd.OutOrStdout(), opts.Template, chats)
			}
			cli.Title("AICHAT CHATS")
			if len(chats) == 0 {
				cli.Info("No chats yet. Create your first chat with `aichat new`!")
				return nil
			}
			return renderChats(cmd.OutOrStdout(), defaultChatsTemplate, chats)
		},
	}
	cmd.Flags().StringVarP(&opts.Template, "template", "t", "", "Go template rendering the chat list (sprig functions available)")
	return cmd
}

func newNewChatCmd(clients *Clients) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a chat and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireSession(cmd.Context(), clients)
			if err != nil {
				return err
			}

			ctx, cancel := clients.requestContext(cmd.Context())
			defer cancel()
			list := chatlist.New(clients.Chat, user.ID, clients.Log, chatlist.WithDefaultTitle(clients.Config.Chat.DefaultTitle))
			chatID, err := list.Create(ctx)
			if err != nil {
				return err
			}
			cli.Info("%s", chatID)
			return nil
		},
	}
	return cmd
}
