package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malonaz/aichat/internal/auth"
)

func TestResolveShowsExactlyOneView(t *testing.T) {
	user := &auth.User{ID: "user-1"}
	authViews := []View{ViewSignIn, ViewSignUp, ViewEmailVerification, ViewLoading, ViewAuthenticated}
	for _, loading := range []bool{false, true} {
		for _, authenticated := range []bool{false, true} {
			for _, u := range []*auth.User{nil, user} {
				for _, authView := range authViews {
					status := auth.Status{IsLoading: loading, IsAuthenticated: authenticated, User: u}
					view := Resolve(status, authView)

					require.Contains(t, []View{ViewLoading, ViewSignIn, ViewSignUp, ViewEmailVerification, ViewAuthenticated}, view)
					switch {
					case loading:
						require.Equal(t, ViewLoading, view)
					case authenticated && u != nil:
						require.Equal(t, ViewAuthenticated, view)
					default:
						require.NotEqual(t, ViewAuthenticated, view)
						require.NotEqual(t, ViewLoading, view)
					}
				}
			}
		}
	}
}

func TestResolveRequiresUserProfile(t *testing.T) {
	status := auth.Status{IsAuthenticated: true}
	require.Equal(t, ViewSignIn, Resolve(status, ViewSignIn))
	status.User = &auth.User{ID: "user-1"}
	require.Equal(t, ViewAuthenticated, Resolve(status, ViewSignIn))
}

func TestResolveIgnoresEmailVerification(t *testing.T) {
	status := auth.Status{IsAuthenticated: true, User: &auth.User{ID: "user-1", EmailVerified: false}}
	require.Equal(t, ViewAuthenticated, Resolve(status, ViewEmailVerification))
}

type fakeIdentity struct {
	status     auth.Status
	reloaded   int
	signedOut  int
	signOutErr error
}

func (f *fakeIdentity) Status() auth.Status { return f.status }

func (f *fakeIdentity) Reload(ctx context.Context) error {
	f.reloaded++
	return nil
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.signedOut++
	f.status = auth.Status{}
	return f.signOutErr
}

func TestNavigation(t *testing.T) {
	identity := &fakeIdentity{}
	router := New(identity)
	require.Equal(t, ViewSignIn, router.View())

	// Sign-up success is only honoured from the sign-up screen.
	router.SignUpSucceeded()
	require.Equal(t, ViewSignIn, router.View())

	router.ShowSignUp()
	require.Equal(t, ViewSignUp, router.View())
	router.ShowSignIn()
	require.Equal(t, ViewSignIn, router.View())

	router.ShowSignUp()
	router.SignUpSucceeded()
	require.Equal(t, ViewEmailVerification, router.View())

	// Navigation links do not apply to the verification screen.
	router.ShowSignIn()
	require.Equal(t, ViewEmailVerification, router.View())

	require.NoError(t, router.BackToSignIn(context.Background()))
	require.Equal(t, ViewSignIn, router.View())
	require.Equal(t, 1, identity.signedOut)
}

func TestLoadingThenStatus(t *testing.T) {
	identity := &fakeIdentity{status: auth.Status{IsLoading: true}}
	router := New(identity)
	require.Equal(t, ViewLoading, router.View())

	router.SetStatus(auth.Status{IsAuthenticated: true, User: &auth.User{ID: "user-1"}})
	require.Equal(t, ViewAuthenticated, router.View())

	router.SetStatus(auth.Status{})
	require.Equal(t, ViewSignIn, router.View())
}

func TestViewString(t *testing.T) {
	require.Equal(t, "email-verification", ViewEmailVerification.String())
	require.Equal(t, "unknown", View(42).String())
}

// provider is a fake identity provider where new users must verify their email.
type provider struct {
	mu            sync.Mutex
	verified      map[string]bool
	tokens        map[string]string
	issueOnSignUp bool
}

func (p *provider) session(email string) map[string]any {
	token := "refresh-" + email + "-" + string(rune('a'+len(p.tokens)))
	p.tokens[token] = email
	return map[string]any{
		"accessToken":          "access-" + email,
		"accessTokenExpiresIn": 900,
		"refreshToken":         token,
		"user":                 map[string]any{"id": "user-" + email, "email": email, "emailVerified": p.verified[email]},
	}
}

func (p *provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	request := map[string]any{}
	json.NewDecoder(r.Body).Decode(&request)
	email, _ := request["email"].(string)

	switch r.URL.Path {
	case "/signup/email-password":
		p.verified[email] = false
		if p.issueOnSignUp {
			json.NewEncoder(w).Encode(map[string]any{"session": p.session(email)})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"session": nil})
	case "/signin/email-password":
		if !p.verified[email] {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"status": 401, "error": "unverified-user", "message": "Email is not verified"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"session": p.session(email)})
	case "/token":
		token, _ := request["refreshToken"].(string)
		email, ok := p.tokens[token]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"status": 401, "error": "invalid-refresh-token", "message": "Invalid refresh token"})
			return
		}
		json.NewEncoder(w).Encode(p.session(email))
	case "/signout":
		w.Write([]byte("OK"))
	default:
		http.NotFound(w, r)
	}
}

func (p *provider) verify(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verified[email] = true
}

type memoryStorage struct{ token string }

func (s *memoryStorage) LoadRefreshToken() (string, error) { return s.token, nil }

func (s *memoryStorage) SaveRefreshToken(token, userID string) error {
	s.token = token
	return nil
}

func (s *memoryStorage) ClearRefreshToken() error {
	s.token = ""
	return nil
}

func newIdentity(t *testing.T, p *provider) *auth.Client {
	server := httptest.NewServer(p)
	t.Cleanup(server.Close)
	client := auth.NewClient(auth.Opts{
		Endpoint: server.URL,
		Storage:  &memoryStorage{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, client.Start(context.Background()))
	return client
}

func TestSignUpVerifyRefreshSignIn(t *testing.T) {
	p := &provider{verified: map[string]bool{}, tokens: map[string]string{}}
	identity := newIdentity(t, p)
	router := New(identity)
	ctx := context.Background()
	require.Equal(t, ViewSignIn, router.View())

	router.ShowSignUp()
	result, err := identity.SignUpEmailPassword(ctx, "new@example.com", "password1", "New")
	require.NoError(t, err)
	require.True(t, result.IsSuccess)
	router.SignUpSucceeded()
	router.SetStatus(identity.Status())
	require.Equal(t, ViewEmailVerification, router.View())

	p.verify("new@example.com")
	require.NoError(t, router.Refresh(ctx))
	require.Equal(t, ViewSignIn, router.View())

	_, err = identity.SignInEmailPassword(ctx, "new@example.com", "password1")
	require.NoError(t, err)
	router.SetStatus(identity.Status())
	require.Equal(t, ViewAuthenticated, router.View())
}

func TestSignUpWithSessionRefreshShowsChat(t *testing.T) {
	p := &provider{verified: map[string]bool{}, tokens: map[string]string{}, issueOnSignUp: true}
	identity := newIdentity(t, p)
	router := New(identity)
	ctx := context.Background()

	router.ShowSignUp()
	_, err := identity.SignUpEmailPassword(ctx, "new@example.com", "password1", "New")
	require.NoError(t, err)
	router.SignUpSucceeded()

	require.NoError(t, router.Refresh(ctx))
	require.Equal(t, ViewAuthenticated, router.View())
	require.Equal(t, "new@example.com", router.Status().User.Email)
}

func TestVerificationSignOutShowsSignIn(t *testing.T) {
	p := &provider{verified: map[string]bool{}, tokens: map[string]string{}, issueOnSignUp: true}
	identity := newIdentity(t, p)
	router := New(identity)
	ctx := context.Background()

	router.ShowSignUp()
	_, err := identity.SignUpEmailPassword(ctx, "new@example.com", "password1", "New")
	require.NoError(t, err)
	router.SignUpSucceeded()

	require.NoError(t, router.BackToSignIn(ctx))
	require.Equal(t, ViewSignIn, router.View())
	require.False(t, identity.Status().IsAuthenticated)
}
