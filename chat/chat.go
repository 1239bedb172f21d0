package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/malonaz/aichat/internal/graphql"
)

// ErrInvalidChatID is returned when a chat id is not a UUID.
var ErrInvalidChatID = errors.New("invalid chat id")

// Chat is a conversation thread owned by a user.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single message of a chat. Messages written by anyone but the signed in user
// are the AI's.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id,omitempty"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// IsFrom returns true if the message was written by the given user.
func (m *Message) IsFrom(userID string) bool {
	return userID != "" && m.UserID == userID
}

// Client executes the chat operations against the GraphQL engine.
type Client struct {
	graphql *graphql.Client
	log     *slog.Logger
}

// NewClient instantiates and returns a new client.
func NewClient(graphqlClient *graphql.Client, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{graphql: graphqlClient, log: log}
}

// ValidateChatID returns ErrInvalidChatID if the id is not a UUID.
func ValidateChatID(chatID string) error {
	if _, err := uuid.Parse(chatID); err != nil {
		return errors.Wrapf(ErrInvalidChatID, "%q", chatID)
	}
	return nil
}

// ListChats returns the chats of a user, most recently updated first.
func (c *Client) ListChats(ctx context.Context, userID string) ([]*Chat, error) {
	response := struct {
		Chats []*Chat `json:"chats"`
	}{}
	variables := map[string]any{"userId": userID}
	if err := c.graphql.Do(ctx, getChatsQuery, variables, &response); err != nil {
		return nil, errors.Wrap(err, "listing chats")
	}
	return response.Chats, nil
}

// InsertChat creates a chat owned by a user.
func (c *Client) InsertChat(ctx context.Context, title, userID string) (*Chat, error) {
	response := struct {
		Chat *Chat `json:"insert_chats_one"`
	}{}
	variables := map[string]any{"title": title, "userId": userID}
	if err := c.graphql.Do(ctx, insertChatMutation, variables, &response); err != nil {
		return nil, errors.Wrap(err, "inserting chat")
	}
	if response.Chat == nil {
		return nil, errors.New("inserting chat: no chat returned")
	}
	response.Chat.UserID = userID
	return response.Chat, nil
}

// UpdateChatTitle renames a chat.
func (c *Client) UpdateChatTitle(ctx context.Context, chatID, title string) (*Chat, error) {
	if err := ValidateChatID(chatID); err != nil {
		return nil, err
	}
	response := struct {
		Chat *Chat `json:"update_chats_by_pk"`
	}{}
	variables := map[string]any{"chatId": chatID, "title": title}
	if err := c.graphql.Do(ctx, updateChatTitleMutation, variables, &response); err != nil {
		return nil, errors.Wrap(err, "updating chat title")
	}
	if response.Chat == nil {
		return nil, errors.Errorf("updating chat title: chat %s not found", chatID)
	}
	return response.Chat, nil
}

// InsertMessage persists a message of the signed in user.
func (c *Client) InsertMessage(ctx context.Context, chatID, text string) (*Message, error) {
	if err := ValidateChatID(chatID); err != nil {
		return nil, err
	}
	response := struct {
		Message *Message `json:"insert_messages_one"`
	}{}
	variables := map[string]any{"chatId": chatID, "content": text}
	if err := c.graphql.Do(ctx, insertMessageMutation, variables, &response); err != nil {
		return nil, errors.Wrap(err, "inserting message")
	}
	if response.Message == nil {
		return nil, errors.New("inserting message: no message returned")
	}
	response.Message.ChatID = chatID
	return response.Message, nil
}

// SendMessage invokes the AI action. The AI's reply is written to the chat by the backend
// and observed through the message subscription; the returned text is informational.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	if err := ValidateChatID(chatID); err != nil {
		return "", err
	}
	response := struct {
		SendMessage *struct {
			ResponseText string `json:"response_text"`
		} `json:"sendMessage"`
	}{}
	variables := map[string]any{
		"input": map[string]any{"text": text, "chat_id": chatID},
	}
	if err := c.graphql.Do(ctx, sendMessageMutation, variables, &response); err != nil {
		return "", errors.Wrap(err, "sending message")
	}
	if response.SendMessage == nil {
		return "", nil
	}
	return response.SendMessage.ResponseText, nil
}
