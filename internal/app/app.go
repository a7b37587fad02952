// Package app wires configuration into the relay components.
package app

import (
	"errors"
	"net/http"

	"github.com/aimaps/maps-relay/internal/completion"
	"github.com/aimaps/maps-relay/internal/config"
	"github.com/aimaps/maps-relay/internal/inference"
	"github.com/aimaps/maps-relay/internal/mcp"
	"github.com/aimaps/maps-relay/internal/places"
	"github.com/aimaps/maps-relay/internal/relay"
	"github.com/aimaps/maps-relay/internal/tools"
	"github.com/sirupsen/logrus"
)

// App holds the constructed components for one process.
type App struct {
	Config     config.Config
	Dispatcher *relay.Dispatcher
	Handler    *relay.Handler

	logger *logrus.Entry
}

// New builds the components. A missing maps key leaves search disabled instead of failing.
func New(logger *logrus.Entry, cfg config.Config) (*App, error) {
	gateway := inference.NewClient(cfg.OllamaHost, cfg.OllamaModel,
		inference.WithTimeout(cfg.InferenceTimeout),
		inference.WithLogger(logger.WithField("subsystem", "inference")),
	)

	search, err := newSearcher(logger, cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := relay.NewDispatcher(logger, gateway, search, tools.Schema())
	handler := relay.NewHandler(logger, dispatcher, completion.NewAssembler(), cfg.ModelID)

	return &App{
		Config:     cfg,
		Dispatcher: dispatcher,
		Handler:    handler,
		logger:     logger,
	}, nil
}

// newSearcher returns a nil interface, never a typed nil, when search is disabled.
func newSearcher(logger *logrus.Entry, cfg config.Config) (places.Searcher, error) {
	opts := []places.Option{places.WithLogger(logger.WithField("subsystem", "places"))}
	if cfg.MapsBaseURL != "" {
		opts = append(opts, places.WithBaseURL(cfg.MapsBaseURL))
	}
	client, err := places.New(cfg.MapsAPIKey, opts...)
	switch {
	case errors.Is(err, places.ErrMissingCredential):
		logger.Warnf("%s not set; place search disabled", config.KeyMapsAPIKey)
		return nil, nil
	case err != nil:
		return nil, err
	}
	return client, nil
}

// HTTPHandler returns the relay routes wrapped in panic recovery and request logging.
func (a *App) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	a.Handler.Register(mux)
	return relay.LogRequests(a.logger, relay.Recover(a.logger, mux))
}

// MCPServer returns an MCP server backed by the same dispatcher.
func (a *App) MCPServer() *mcp.Server {
	return mcp.NewServer(a.logger, a.Dispatcher)
}
