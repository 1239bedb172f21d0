package chat

import (
	"context"

	"github.com/pkg/errors"

	"github.com/malonaz/aichat/internal/graphql"
)

// MessageStream yields the full, server-ordered message list of a chat on every change.
type MessageStream interface {
	// Recv blocks until the next result set. It returns io.EOF once the stream is over.
	Recv(ctx context.Context) ([]*Message, error)
	Close() error
}

type messageStream struct {
	chatID       string
	subscription *graphql.Subscription
}

// SubscribeMessages subscribes to the messages of a chat, oldest first.
func (c *Client) SubscribeMessages(ctx context.Context, chatID string) (MessageStream, error) {
	if err := ValidateChatID(chatID); err != nil {
		return nil, err
	}
	variables := map[string]any{"chatId": chatID}
	subscription, err := c.graphql.Subscribe(ctx, getMessagesSubscription, variables)
	if err != nil {
		return nil, errors.Wrap(err, "subscribing to messages")
	}
	c.log.Debug("subscribed to messages", "chat_id", chatID)
	return &messageStream{chatID: chatID, subscription: subscription}, nil
}

func (s *messageStream) Recv(ctx context.Context) ([]*Message, error) {
	response := struct {
		Messages []*Message `json:"messages"`
	}{}
	if err := s.subscription.Decode(ctx, &response); err != nil {
		return nil, err
	}
	for _, message := range response.Messages {
		message.ChatID = s.chatID
	}
	return response.Messages, nil
}

func (s *messageStream) Close() error {
	return s.subscription.Close()
}
