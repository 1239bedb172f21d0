package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// TokenSource returns the bearer token to attach to a request. An empty token sends no
// Authorization header.
type TokenSource func() string

// Opts configures a Client.
type Opts struct {
	// HTTP endpoint, e.g. https://<subdomain>.hasura.<region>.nhost.run/v1/graphql.
	Endpoint string
	// Websocket endpoint used by subscriptions.
	WebsocketEndpoint string
	Token             TokenSource
	HTTPClient        *http.Client
	Dialer            *websocket.Dialer
	Logger            *slog.Logger
}

// Client executes GraphQL operations against a single engine.
type Client struct {
	endpoint          string
	websocketEndpoint string
	token             TokenSource
	httpClient        *http.Client
	dialer            *websocket.Dialer
	log               *slog.Logger
}

// NewClient instantiates and returns a new client.
func NewClient(opts Opts) *Client {
	client := &Client{
		endpoint:          opts.Endpoint,
		websocketEndpoint: opts.WebsocketEndpoint,
		token:             opts.Token,
		httpClient:        opts.HTTPClient,
		dialer:            opts.Dialer,
		log:               opts.Logger,
	}
	if client.token == nil {
		client.token = func() string { return "" }
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	if client.dialer == nil {
		client.dialer = websocket.DefaultDialer
	}
	if client.log == nil {
		client.log = slog.Default()
	}
	return client
}

// Error is a single GraphQL error.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns the engine's error code, if any.
func (e Error) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

// Errors is returned when a response carries GraphQL errors.
type Errors struct {
	Errors []Error
}

// Error implements the error interface.
func (e *Errors) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		messages = append(messages, err.Message)
	}
	return "graphql: " + strings.Join(messages, "; ")
}

// HTTPError is returned when the engine answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("graphql: unexpected status %d: %s", e.StatusCode, e.Body)
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}

// decode unmarshals the data of a response into out, surfacing GraphQL errors.
func (r *response) decode(out any) error {
	if len(r.Errors) > 0 {
		return &Errors{Errors: r.Errors}
	}
	if out == nil || len(r.Data) == 0 || bytes.Equal(r.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return errors.Wrap(err, "unmarshaling data")
	}
	return nil
}

// Do executes a query or mutation and unmarshals its data into out.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(&request{Query: query, Variables: variables})
	if err != nil {
		return errors.Wrap(err, "marshaling request")
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+token)
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return errors.Wrap(err, "posting request")
	}
	defer httpResponse.Body.Close()

	data, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return &HTTPError{StatusCode: httpResponse.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	resp := &response{}
	if err := json.Unmarshal(data, resp); err != nil {
		return errors.Wrap(err, "unmarshaling response")
	}
	return resp.decode(out)
}
