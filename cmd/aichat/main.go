package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/malonaz/aichat/chat"
	"github.com/malonaz/aichat/cli/commands"
	"github.com/malonaz/aichat/internal/auth"
	"github.com/malonaz/aichat/internal/cli"
	"github.com/malonaz/aichat/internal/configuration"
	"github.com/malonaz/aichat/internal/debug"
	"github.com/malonaz/aichat/internal/graphql"
	"github.com/malonaz/aichat/store"
)

const (
	configFilepath = "~/.config/aichat/config.json"
	sessionKey     = "default"
)

func main() {
	os.Exit(run())
}

func run() int {
	config, err := configuration.Parse(configFilepath)
	if err != nil {
		cli.Error("parsing configuration: %v", err)
		return 1
	}
	debug.SetLogFile(config.LogFile)
	log := debug.GetLogger()

	// Create store
	s, err := store.New(config.SessionDatabase)
	if err != nil {
		cli.Error("opening session store: %v", err)
		return 1
	}
	// Ensure store is closed when the program exits normally
	defer s.Close()

	httpClient := &http.Client{Timeout: config.Timeout()}
	identity := auth.NewClient(auth.Opts{
		Endpoint:    config.AuthEndpoint(),
		HTTPClient:  httpClient,
		Storage:     s.SessionStorage(sessionKey),
		AutoRefresh: config.ShouldAutoRefreshToken(),
		Logger:      log,
	})
	graphqlClient := graphql.NewClient(graphql.Opts{
		Endpoint:          config.GraphQLEndpoint(),
		WebsocketEndpoint: config.GraphQLWebsocketEndpoint(),
		Token:             identity.AccessToken,
		HTTPClient:        httpClient,
		Logger:            log,
	})

	clients := &commands.Clients{
		Config:   config,
		Identity: identity,
		Chat:     chat.NewClient(graphqlClient, log),
		Log:      log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := commands.NewRootCmd(clients).ExecuteContext(ctx); err != nil {
		cli.Error("%v", err)
		return 1
	}
	return 0
}
