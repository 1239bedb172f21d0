package graphql

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Subprotocol spoken over the websocket.
const Subprotocol = "graphql-transport-ws"

const (
	messageConnectionInit = "connection_init"
	messageConnectionAck  = "connection_ack"
	messagePing           = "ping"
	messagePong           = "pong"
	messageSubscribe      = "subscribe"
	messageNext           = "next"
	messageError          = "error"
	messageComplete       = "complete"
)

const (
	connectionAckTimeout = 10 * time.Second
	writeTimeout         = 5 * time.Second
	resultBufferSize     = 16
)

type message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type result struct {
	data json.RawMessage
	err  error
}

// Subscription is a live GraphQL subscription. Every result is a full result set.
type Subscription struct {
	id      string
	conn    *websocket.Conn
	log     *slog.Logger
	results chan result

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// Subscribe opens a websocket, performs the connection handshake and starts the
// subscription. The subscription is closed when ctx is done.
func (c *Client) Subscribe(ctx context.Context, query string, variables map[string]any) (*Subscription, error) {
	dialer := *c.dialer
	dialer.Subprotocols = []string{Subprotocol}
	conn, httpResponse, err := dialer.DialContext(ctx, c.websocketEndpoint, http.Header{})
	if err != nil {
		if httpResponse != nil {
			return nil, errors.Wrapf(err, "dialing %s (status %d)", c.websocketEndpoint, httpResponse.StatusCode)
		}
		return nil, errors.Wrapf(err, "dialing %s", c.websocketEndpoint)
	}

	s := &Subscription{
		id:      uuid.NewString(),
		conn:    conn,
		log:     c.log,
		results: make(chan result, resultBufferSize),
		closed:  make(chan struct{}),
	}
	if err := s.handshake(c.token()); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "initializing connection")
	}

	payload, err := json.Marshal(&request{Query: query, Variables: variables})
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "marshaling subscription")
	}
	if err := s.write(&message{ID: s.id, Type: messageSubscribe, Payload: payload}); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "subscribing")
	}

	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.closed:
		}
	}()
	return s, nil
}

// handshake sends connection_init with the bearer token and waits for connection_ack.
func (s *Subscription) handshake(token string) error {
	payload := map[string]any{}
	if token != "" {
		payload["headers"] = map[string]string{"Authorization": "Bearer " + token}
	}
	bytes, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshaling connection payload")
	}
	if err := s.write(&message{Type: messageConnectionInit, Payload: bytes}); err != nil {
		return err
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(connectionAckTimeout)); err != nil {
		return errors.Wrap(err, "setting read deadline")
	}
	for {
		msg := &message{}
		if err := s.conn.ReadJSON(msg); err != nil {
			return errors.Wrap(err, "waiting for connection_ack")
		}
		switch msg.Type {
		case messageConnectionAck:
			return errors.Wrap(s.conn.SetReadDeadline(time.Time{}), "clearing read deadline")
		case messagePing:
			if err := s.write(&message{Type: messagePong}); err != nil {
				return err
			}
		default:
			return errors.Errorf("unexpected %q before connection_ack", msg.Type)
		}
	}
}

func (s *Subscription) write(msg *message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return errors.Wrap(err, "setting write deadline")
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return errors.Wrapf(err, "writing %s", msg.Type)
	}
	return nil
}

func (s *Subscription) readLoop() {
	defer close(s.results)
	for {
		msg := &message{}
		if err := s.conn.ReadJSON(msg); err != nil {
			if s.isClosed() {
				return
			}
			s.push(result{err: errors.Wrap(err, "reading message")})
			return
		}

		switch msg.Type {
		case messagePing:
			if err := s.write(&message{Type: messagePong}); err != nil {
				s.log.Error("answering ping", "error", err)
			}
		case messagePong:
		case messageNext:
			if msg.ID != s.id {
				continue
			}
			resp := &response{}
			if err := json.Unmarshal(msg.Payload, resp); err != nil {
				s.push(result{err: errors.Wrap(err, "unmarshaling next payload")})
				continue
			}
			if len(resp.Errors) > 0 {
				s.push(result{err: &Errors{Errors: resp.Errors}})
				continue
			}
			s.push(result{data: resp.Data})
		case messageError:
			graphqlErrors := []Error{}
			if err := json.Unmarshal(msg.Payload, &graphqlErrors); err != nil {
				graphqlErrors = []Error{{Message: string(msg.Payload)}}
			}
			s.push(result{err: &Errors{Errors: graphqlErrors}})
			s.shutdown(false)
			return
		case messageComplete:
			s.log.Debug("subscription completed by server", "id", s.id)
			s.shutdown(false)
			return
		default:
			s.log.Debug("ignoring message", "type", msg.Type)
		}
	}
}

// push delivers a result unless the subscription is closed.
func (s *Subscription) push(r result) {
	select {
	case s.results <- r:
	case <-s.closed:
	}
}

func (s *Subscription) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Next blocks until the next result set. It returns io.EOF once the subscription is over.
func (s *Subscription) Next(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-s.results:
		if !ok {
			return nil, io.EOF
		}
		return r.data, r.err
	}
}

// Decode blocks until the next result set and unmarshals it into out.
func (s *Subscription) Decode(ctx context.Context, out any) error {
	data, err := s.Next(ctx)
	if err != nil {
		return err
	}
	return (&response{Data: data}).decode(out)
}

// Close sends complete and closes the socket. It is safe to call more than once.
func (s *Subscription) Close() error {
	return s.shutdown(true)
}

func (s *Subscription) shutdown(sendComplete bool) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if sendComplete {
			if writeErr := s.write(&message{ID: s.id, Type: messageComplete}); writeErr != nil {
				s.log.Debug("sending complete", "error", writeErr)
			}
		}
		s.writeMu.Lock()
		closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeTimeout))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
