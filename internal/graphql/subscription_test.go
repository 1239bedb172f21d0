package graphql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// engine is a fake GraphQL engine speaking graphql-transport-ws.
type engine struct {
	t        *testing.T
	results  []string
	complete bool
	errors   string

	init      chan map[string]any
	subscribe chan request
	received  chan message
}

func newEngine(t *testing.T) *engine {
	return &engine{
		t:         t,
		init:      make(chan map[string]any, 1),
		subscribe: make(chan request, 1),
		received:  make(chan message, 16),
	}
}

func (e *engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	if conn.Subprotocol() != Subprotocol {
		return
	}

	msg := message{}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != messageConnectionInit {
		return
	}
	payload := map[string]any{}
	json.Unmarshal(msg.Payload, &payload)
	e.init <- payload
	if err := conn.WriteJSON(message{Type: messageConnectionAck}); err != nil {
		return
	}

	if err := conn.ReadJSON(&msg); err != nil || msg.Type != messageSubscribe {
		return
	}
	id := msg.ID
	subscription := request{}
	json.Unmarshal(msg.Payload, &subscription)
	e.subscribe <- subscription

	// The client must answer pings while subscribed.
	if err := conn.WriteJSON(message{Type: messagePing}); err != nil {
		return
	}
	if err := conn.ReadJSON(&msg); err != nil {
		return
	}
	if msg.Type != messagePong {
		e.received <- msg
		e.drain(conn)
		return
	}

	for _, data := range e.results {
		payload := json.RawMessage(`{"data": ` + data + `}`)
		if err := conn.WriteJSON(message{ID: id, Type: messageNext, Payload: payload}); err != nil {
			return
		}
	}
	if e.errors != "" {
		conn.WriteJSON(message{ID: id, Type: messageError, Payload: json.RawMessage(e.errors)})
	}
	if e.complete {
		conn.WriteJSON(message{ID: id, Type: messageComplete})
	}
	e.drain(conn)
}

// drain forwards every message the client sends until the connection closes.
func (e *engine) drain(conn *websocket.Conn) {
	defer close(e.received)
	for {
		msg := message{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		e.received <- msg
	}
}

func newSubscriptionClient(t *testing.T, e *engine, token string) *Client {
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return NewClient(Opts{
		WebsocketEndpoint: "ws" + strings.TrimPrefix(server.URL, "http"),
		Token:             func() string { return token },
	})
}

func TestSubscriptionDeliversResultSets(t *testing.T) {
	e := newEngine(t)
	e.results = []string{
		`{"messages": [{"id": "1"}]}`,
		`{"messages": [{"id": "1"}, {"id": "2"}]}`,
	}
	e.complete = true
	client := newSubscriptionClient(t, e, "token-1")

	ctx := context.Background()
	subscription, err := client.Subscribe(ctx, "subscription GetMessages($chatId: uuid!) { messages { id } }", map[string]any{"chatId": "chat-1"})
	require.NoError(t, err)
	defer subscription.Close()

	require.Equal(t, map[string]any{"headers": map[string]any{"Authorization": "Bearer token-1"}}, <-e.init)
	subscribed := <-e.subscribe
	require.Equal(t, "chat-1", subscribed.Variables["chatId"])

	type messages struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	first := messages{}
	require.NoError(t, subscription.Decode(ctx, &first))
	require.Len(t, first.Messages, 1)

	second := messages{}
	require.NoError(t, subscription.Decode(ctx, &second))
	require.Len(t, second.Messages, 2)
	require.Equal(t, "2", second.Messages[1].ID)

	_, err = subscription.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestSubscriptionWithoutTokenSendsEmptyPayload(t *testing.T) {
	e := newEngine(t)
	e.complete = true
	client := newSubscriptionClient(t, e, "")

	subscription, err := client.Subscribe(context.Background(), "subscription { messages { id } }", nil)
	require.NoError(t, err)
	defer subscription.Close()
	require.Empty(t, <-e.init)
}

func TestSubscriptionSurfacesErrors(t *testing.T) {
	e := newEngine(t)
	e.errors = `[{"message": "permission denied"}]`
	client := newSubscriptionClient(t, e, "token-1")

	subscription, err := client.Subscribe(context.Background(), "subscription { messages { id } }", nil)
	require.NoError(t, err)
	defer subscription.Close()

	_, err = subscription.Next(context.Background())
	var graphqlErrors *Errors
	require.True(t, errors.As(err, &graphqlErrors))
	require.Equal(t, "permission denied", graphqlErrors.Errors[0].Message)

	_, err = subscription.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestSubscriptionCloseSendsComplete(t *testing.T) {
	e := newEngine(t)
	client := newSubscriptionClient(t, e, "token-1")

	subscription, err := client.Subscribe(context.Background(), "subscription { messages { id } }", nil)
	require.NoError(t, err)
	<-e.subscribe

	require.NoError(t, subscription.Close())
	require.NoError(t, subscription.Close())

	select {
	case msg := <-e.received:
		require.Equal(t, messageComplete, msg.Type)
		require.NotEmpty(t, msg.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("complete was not sent")
	}

	_, err = subscription.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestSubscriptionClosesWhenContextIsDone(t *testing.T) {
	e := newEngine(t)
	client := newSubscriptionClient(t, e, "token-1")

	ctx, cancel := context.WithCancel(context.Background())
	subscription, err := client.Subscribe(ctx, "subscription { messages { id } }", nil)
	require.NoError(t, err)
	<-e.subscribe
	cancel()

	select {
	case msg := <-e.received:
		require.Equal(t, messageComplete, msg.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("complete was not sent")
	}

	_, err = subscription.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestSubscribeFailsWhenEngineIsDown(t *testing.T) {
	client := NewClient(Opts{WebsocketEndpoint: "ws://127.0.0.1:1/v1/graphql"})
	_, err := client.Subscribe(context.Background(), "subscription { messages { id } }", nil)
	require.Error(t, err)
}
