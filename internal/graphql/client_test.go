package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDoSendsQueryAndBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body := &request{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(body))
		require.Equal(t, "query GetChats($userId: uuid!) { chats { id } }", body.Query)
		require.Equal(t, "user-1", body.Variables["userId"])

		w.Write([]byte(`{"data": {"chats": [{"id": "a"}, {"id": "b"}]}}`))
	}))
	defer server.Close()

	client := NewClient(Opts{Endpoint: server.URL, Token: func() string { return "token-1" }})
	out := struct {
		Chats []struct {
			ID string `json:"id"`
		} `json:"chats"`
	}{}
	err := client.Do(context.Background(), "query GetChats($userId: uuid!) { chats { id } }", map[string]any{"userId": "user-1"}, &out)
	require.NoError(t, err)
	require.Len(t, out.Chats, 2)
	require.Equal(t, "b", out.Chats[1].ID)
}

func TestDoWithoutTokenOmitsAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"data": null}`))
	}))
	defer server.Close()

	client := NewClient(Opts{Endpoint: server.URL})
	require.NoError(t, client.Do(context.Background(), "{ __typename }", nil, nil))
}

func TestDoSurfacesGraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "field 'chats' not found", "extensions": {"code": "validation-failed"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Opts{Endpoint: server.URL})
	err := client.Do(context.Background(), "{ chats { id } }", nil, &struct{}{})

	var graphqlErrors *Errors
	require.True(t, errors.As(err, &graphqlErrors))
	require.Len(t, graphqlErrors.Errors, 1)
	require.Equal(t, "validation-failed", graphqlErrors.Errors[0].Code())
	require.Equal(t, "graphql: field 'chats' not found", err.Error())
}

func TestDoSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Opts{Endpoint: server.URL})
	err := client.Do(context.Background(), "{ chats { id } }", nil, nil)

	var httpError *HTTPError
	require.True(t, errors.As(err, &httpError))
	require.Equal(t, http.StatusBadGateway, httpError.StatusCode)
	require.Equal(t, "bad gateway", httpError.Body)
}
