package configuration

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/malonaz/aichat/internal/file"
)

// Environment variables that override the configuration file.
const (
	EnvSubdomain  = "AICHAT_SUBDOMAIN"
	EnvRegion     = "AICHAT_REGION"
	EnvAuthURL    = "AICHAT_AUTH_URL"
	EnvGraphQLURL = "AICHAT_GRAPHQL_URL"
)

var defaultConfig = Config{
	Subdomain:       "local",
	RequestTimeout:  30,
	SessionDatabase: "~/.config/aichat/session.db",
	HistoryFile:     "~/.config/aichat/history",
	LogFile:         "/tmp/aichat-debug.log",

	Chat: ChatConfig{
		DefaultTitle: "New Chat",
		TitleLength:  50,
	},
}

// Config holds configuration for the aichat tool.
type Config struct {
	// Backend project subdomain and region. Endpoints are derived from these.
	Subdomain string `json:"subdomain"`
	Region    string `json:"region"`

	// Explicit endpoints. Take precedence over subdomain and region.
	AuthURL          string `json:"auth_url,omitempty"`
	GraphQLURL       string `json:"graphql_url,omitempty"`
	GraphQLWebsocket string `json:"graphql_ws_url,omitempty"`

	// Seconds before a backend request is abandoned.
	RequestTimeout int `json:"request_timeout"`
	// Refresh the access token before it expires. Defaults to true.
	AutoRefreshToken *bool `json:"auto_refresh_token,omitempty"`

	SessionDatabase string `json:"session_database"`
	HistoryFile     string `json:"history_file"`
	LogFile         string `json:"log_file"`

	Chat ChatConfig `json:"chat"`
}

// ChatConfig holds configuration for chats.
type ChatConfig struct {
	// Title given to freshly created chats.
	DefaultTitle string `json:"default_title"`
	// Number of characters of the first message kept in the chat title.
	TitleLength int `json:"title_length"`
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// ShouldAutoRefreshToken reports whether the access token is refreshed in the background.
func (c *Config) ShouldAutoRefreshToken() bool {
	return c.AutoRefreshToken == nil || *c.AutoRefreshToken
}

// AuthEndpoint returns the base URL of the identity provider.
func (c *Config) AuthEndpoint() string {
	if c.AuthURL != "" {
		return strings.TrimSuffix(c.AuthURL, "/")
	}
	return c.serviceURL("https", "auth", "/v1")
}

// GraphQLEndpoint returns the HTTP GraphQL endpoint.
func (c *Config) GraphQLEndpoint() string {
	if c.GraphQLURL != "" {
		return c.GraphQLURL
	}
	return c.serviceURL("https", "hasura", "/v1/graphql")
}

// GraphQLWebsocketEndpoint returns the websocket GraphQL endpoint used by subscriptions.
func (c *Config) GraphQLWebsocketEndpoint() string {
	if c.GraphQLWebsocket != "" {
		return c.GraphQLWebsocket
	}
	endpoint := c.GraphQLEndpoint()
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

func (c *Config) serviceURL(scheme, service, path string) string {
	if c.Region == "" {
		return fmt.Sprintf("%s://%s.%s.nhost.run%s", scheme, c.Subdomain, service, path)
	}
	return fmt.Sprintf("%s://%s.%s.%s.nhost.run%s", scheme, c.Subdomain, service, c.Region, path)
}

// Parse a configuration file.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}
	if err := mergo.Merge(config, defaultConfig); err != nil {
		return nil, errors.Wrap(err, "merging default config")
	}

	if err := config.applyEnvironment(); err != nil {
		return nil, errors.Wrap(err, "applying environment")
	}

	for _, p := range []*string{&config.SessionDatabase, &config.HistoryFile, &config.LogFile} {
		expanded, err := file.ExpandPath(*p)
		if err != nil {
			return nil, errors.Wrapf(err, "expanding path %s", *p)
		}
		*p = expanded
	}
	return config, nil
}

// applyEnvironment loads a .env file if present and applies overrides.
func (c *Config) applyEnvironment() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "loading .env")
	}
	for env, field := range map[string]*string{
		EnvSubdomain:  &c.Subdomain,
		EnvRegion:     &c.Region,
		EnvAuthURL:    &c.AuthURL,
		EnvGraphQLURL: &c.GraphQLURL,
	} {
		if value, ok := os.LookupEnv(env); ok {
			*field = value
		}
	}
	return nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	err = os.WriteFile(path, bytes, 0644)
	if err != nil {
		return errors.Wrap(err, "writing file")
	}

	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	exists, err := file.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := file.CreateParentDirectory(path); err != nil {
		return errors.Wrap(err, "creating folders")
	}

	if err := defaultConfig.save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}
