package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Error is an error reported by the identity provider. Message is meant to be shown to the user.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("auth error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("auth error (%d %s): %s", e.Status, e.Code, e.Message)
}

// Unauthorized returns true if the provider rejected the credentials or token.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

type sessionResponse struct {
	Session *Session `json:"session"`
}

// SignUpResult is the outcome of a sign-up.
type SignUpResult struct {
	IsSuccess bool
	// NeedsEmailVerification is set when the provider did not issue a session.
	NeedsEmailVerification bool
	Session                *Session
}

// SignInEmailPassword signs a user in. On success the client becomes authenticated.
func (c *Client) SignInEmailPassword(ctx context.Context, email, password string) (*Session, error) {
	request := map[string]any{
		"email":    email,
		"password": password,
	}
	response := &sessionResponse{}
	if err := c.post(ctx, "/signin/email-password", "", request, response); err != nil {
		return nil, errors.Wrap(err, "signing in")
	}
	if response.Session == nil {
		return nil, &Error{Status: http.StatusUnauthorized, Code: "no-session", Message: "Sign in did not return a session"}
	}
	c.setSession(response.Session)
	return response.Session, nil
}

// SignUpEmailPassword registers a user with a display name. When the provider requires email
// verification no session is issued and the client stays unauthenticated.
func (c *Client) SignUpEmailPassword(ctx context.Context, email, password, displayName string) (*SignUpResult, error) {
	request := map[string]any{
		"email":    email,
		"password": password,
		"options": map[string]any{
			"displayName": displayName,
		},
	}
	response := &sessionResponse{}
	if err := c.post(ctx, "/signup/email-password", "", request, response); err != nil {
		return nil, errors.Wrap(err, "signing up")
	}
	result := &SignUpResult{IsSuccess: true, Session: response.Session}
	if response.Session == nil {
		result.NeedsEmailVerification = true
		return result, nil
	}
	c.setSession(response.Session)
	return result, nil
}

// SignOut revokes the refresh token. The local session is cleared even if the provider call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.installLocked(nil, true)
	c.mu.Unlock()
	c.notify()
	if session == nil {
		return nil
	}

	request := map[string]any{
		"refreshToken": session.RefreshToken,
		"all":          false,
	}
	if err := c.post(ctx, "/signout", session.AccessToken, request, nil); err != nil {
		return errors.Wrap(err, "signing out")
	}
	return nil
}

// refreshSession exchanges a refresh token for a new session.
func (c *Client) refreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	request := map[string]any{"refreshToken": refreshToken}
	session := &Session{}
	if err := c.post(ctx, "/token", "", request, session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, errors.New("token response without access token")
	}
	return session, nil
}

func (c *Client) post(ctx context.Context, path, bearer string, request, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return errors.Wrap(err, "marshaling request")
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+bearer)
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return errors.Wrapf(err, "calling %s", path)
	}
	defer httpResponse.Body.Close()

	data, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}

	if httpResponse.StatusCode >= http.StatusMultipleChoices {
		authErr := &Error{}
		if err := json.Unmarshal(data, authErr); err != nil || authErr.Message == "" {
			authErr.Message = http.StatusText(httpResponse.StatusCode)
		}
		authErr.Status = httpResponse.StatusCode
		return authErr
	}

	if response == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, response); err != nil {
		return errors.Wrap(err, "unmarshaling response")
	}
	return nil
}
