package auth

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// Refresh the access token this long before it expires.
	refreshMargin = 60 * time.Second
	// How often the refresh loop wakes up when there is no session.
	idleRefreshInterval = 30 * time.Second
	// Never refresh more often than this.
	minRefreshInterval = 5 * time.Second
)

var (
	// ErrNotAuthenticated is returned by operations that need a session when there is none.
	ErrNotAuthenticated = errors.New("not authenticated")
	// errSessionChanged is returned when the session was replaced while a refresh was in flight.
	errSessionChanged = errors.New("session changed during refresh")
)

// User is the profile of an identity provider user.
type User struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"displayName"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	AvatarURL     string    `json:"avatarUrl"`
	Locale        string    `json:"locale"`
	DefaultRole   string    `json:"defaultRole"`
	Roles         []string  `json:"roles"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Session is an authenticated session issued by the identity provider.
type Session struct {
	AccessToken          string `json:"accessToken"`
	AccessTokenExpiresIn int64  `json:"accessTokenExpiresIn"`
	RefreshToken         string `json:"refreshToken"`
	User                 *User  `json:"user"`
}

// Status is the authentication status observed by the UI.
type Status struct {
	IsLoading       bool
	IsAuthenticated bool
	User            *User
}

// Storage persists the refresh token across runs.
type Storage interface {
	LoadRefreshToken() (string, error)
	SaveRefreshToken(refreshToken, userID string) error
	ClearRefreshToken() error
}

// Opts configures a Client.
type Opts struct {
	// Base URL of the auth service, e.g. https://<subdomain>.auth.<region>.nhost.run/v1.
	Endpoint    string
	HTTPClient  *http.Client
	Storage     Storage
	AutoRefresh bool
	Logger      *slog.Logger
}

// Client wraps sign-in, sign-up, sign-out and session storage and refresh.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	storage     Storage
	autoRefresh bool
	log         *slog.Logger
	now         func() time.Time

	mu        sync.RWMutex
	loading   bool
	session   *Session
	expiresAt time.Time
	// Incremented every time a session is installed or cleared.
	epoch uint64

	subscribersMu sync.Mutex
	subscribers   map[int]chan Status
	nextID        int
}

// NewClient instantiates and returns a new client. Its status is loading until Start returns.
func NewClient(opts Opts) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		endpoint:    opts.Endpoint,
		httpClient:  httpClient,
		storage:     opts.Storage,
		autoRefresh: opts.AutoRefresh,
		log:         log,
		now:         time.Now,
		loading:     true,
		subscribers: map[int]chan Status{},
	}
}

// Start restores a persisted session and, if enabled, keeps the access token fresh until ctx is done.
func (c *Client) Start(ctx context.Context) error {
	err := c.Reload(ctx)
	if c.autoRefresh {
		go c.refreshLoop(ctx)
	}
	return err
}

// Reload re-evaluates the session: the current (or persisted) refresh token is exchanged for
// a new session. The status is loading while this happens.
func (c *Client) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	epoch := c.epoch
	refreshToken := ""
	if c.session != nil {
		refreshToken = c.session.RefreshToken
	}
	c.mu.Unlock()
	c.notify()

	if refreshToken == "" && c.storage != nil {
		token, err := c.storage.LoadRefreshToken()
		if err != nil {
			c.setSessionAt(epoch, nil, false)
			return errors.Wrap(err, "loading refresh token")
		}
		refreshToken = token
	}
	if refreshToken == "" {
		c.setSessionAt(epoch, nil, false)
		return nil
	}

	session, err := c.refreshSession(ctx, refreshToken)
	if err != nil {
		var authErr *Error
		revoked := errors.As(err, &authErr) && authErr.Unauthorized()
		c.setSessionAt(epoch, nil, revoked)
		return errors.Wrap(err, "refreshing session")
	}
	// A sign-in or sign-out during the refresh wins.
	c.setSessionAt(epoch, session, false)
	return nil
}

// Refresh exchanges the current refresh token for a new session. The new session is dropped
// if the session was replaced or cleared while the refresh was in flight.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.RLock()
	session := c.session
	epoch := c.epoch
	c.mu.RUnlock()
	if session == nil {
		return ErrNotAuthenticated
	}
	refreshed, err := c.refreshSession(ctx, session.RefreshToken)
	if err != nil {
		return errors.Wrap(err, "refreshing session")
	}
	if !c.setSessionAt(epoch, refreshed, false) {
		return errSessionChanged
	}
	return nil
}

// Status returns the current authentication status.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked()
}

func (c *Client) statusLocked() Status {
	status := Status{IsLoading: c.loading}
	if !c.loading && c.session != nil {
		status.IsAuthenticated = true
		status.User = c.session.User
	}
	return status
}

// AccessToken returns the current access token, or an empty string when signed out.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// UserID returns the id of the signed in user, or an empty string when signed out.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	if c.session.User != nil && c.session.User.ID != "" {
		return c.session.User.ID
	}
	claims, err := ParseAccessToken(c.session.AccessToken)
	if err != nil {
		return ""
	}
	return claims.Hasura.UserID
}

// Subscribe returns a channel receiving every status change, starting with the current one.
// Only the latest status is buffered. The returned function unsubscribes.
func (c *Client) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)
	c.subscribersMu.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = ch
	ch <- c.Status()
	c.subscribersMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subscribersMu.Lock()
			delete(c.subscribers, id)
			c.subscribersMu.Unlock()
			close(ch)
		})
	}
}

func (c *Client) notify() {
	c.subscribersMu.Lock()
	defer c.subscribersMu.Unlock()
	status := c.Status()
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- status
	}
}

// setSession installs a session (nil signs out locally), persists it and notifies subscribers.
func (c *Client) setSession(session *Session) {
	c.mu.Lock()
	c.installLocked(session, false)
	c.mu.Unlock()
	c.notify()
}

// setSessionAt installs a session obtained while epoch was current. It returns false, leaving
// everything untouched, if another session was installed since.
func (c *Client) setSessionAt(epoch uint64, session *Session, clearStorage bool) bool {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	c.installLocked(session, clearStorage)
	c.mu.Unlock()
	c.notify()
	return true
}

// installLocked installs a session and persists its refresh token. With clearStorage and no
// session, the persisted refresh token is removed.
func (c *Client) installLocked(session *Session, clearStorage bool) {
	c.epoch++
	c.loading = false
	c.session = session
	c.expiresAt = time.Time{}
	switch {
	case session != nil:
		c.expiresAt = c.expiry(session)
		if c.storage == nil {
			return
		}
		userID := ""
		if session.User != nil {
			userID = session.User.ID
		}
		if err := c.storage.SaveRefreshToken(session.RefreshToken, userID); err != nil {
			c.log.Error("saving refresh token", "error", err)
		}
	case clearStorage:
		c.clearStorage()
	}
}

func (c *Client) clearStorage() {
	if c.storage == nil {
		return
	}
	if err := c.storage.ClearRefreshToken(); err != nil {
		c.log.Error("clearing refresh token", "error", err)
	}
}

// expiry reads the access token expiry from its claims, falling back to the advertised lifetime.
func (c *Client) expiry(session *Session) time.Time {
	if claims, err := ParseAccessToken(session.AccessToken); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return c.now().Add(time.Duration(session.AccessTokenExpiresIn) * time.Second)
}

// nextRefreshIn returns how long to wait before the next refresh attempt.
func (c *Client) nextRefreshIn() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return idleRefreshInterval
	}
	wait := c.expiresAt.Sub(c.now()) - refreshMargin
	if wait < minRefreshInterval {
		wait = minRefreshInterval
	}
	return wait
}

func (c *Client) refreshLoop(ctx context.Context) {
	for {
		timer := time.NewTimer(c.nextRefreshIn())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		c.mu.RLock()
		due := c.session != nil && c.expiresAt.Sub(c.now()) <= refreshMargin
		c.mu.RUnlock()
		if !due {
			continue
		}
		if err := c.Refresh(ctx); err != nil && !errors.Is(err, errSessionChanged) {
			c.log.Error("auto refreshing access token", "error", err)
		}
	}
}
