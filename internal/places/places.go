// Package places looks up ranked place records through the Google Maps text search API.
package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"googlemaps.github.io/maps"
)

// MaxResults caps how many provider results are returned, in provider order.
const MaxResults = 5

var (
	// ErrMissingCredential is returned by New when no API key is configured.
	ErrMissingCredential = errors.New("google maps api key missing")
	// ErrNoResults means the provider reported a non-OK status or an empty result set.
	ErrNoResults = errors.New("no places found")
)

// SearchError reports a failure to reach the provider at all.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("place search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// Place is one provider result.
type Place struct {
	Name             string
	FormattedAddress string
	PlaceID          string
	// Rating is nil when the provider has no rating for the place.
	Rating      *float64
	ReviewCount int
}

// Searcher finds places for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

// Client implements Searcher on top of the maps library.
type Client struct {
	maps   *maps.Client
	logger *logrus.Entry
}

type settings struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

// Option customizes a Client.
type Option func(*settings)

// WithBaseURL points the client at a different API host (proxies, tests).
func WithBaseURL(baseURL string) Option {
	return func(s *settings) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the HTTP client used by the maps library.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// WithLogger attaches a logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(s *settings) { s.logger = logger }
}

// New builds a Client. An empty apiKey yields ErrMissingCredential so callers can
// run with search disabled.
func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	s := settings{logger: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		opt(&s)
	}

	mapsOpts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if s.baseURL != "" {
		mapsOpts = append(mapsOpts, maps.WithBaseURL(s.baseURL))
	}
	if s.httpClient != nil {
		mapsOpts = append(mapsOpts, maps.WithHTTPClient(s.httpClient))
	}
	mc, err := maps.NewClient(mapsOpts...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &Client{maps: mc, logger: s.logger}, nil
}

// Search runs a text search and returns at most MaxResults places in provider order.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	resp, err := c.maps.TextSearch(ctx, &maps.TextSearchRequest{Query: query})
	if err != nil {
		if isTransportError(ctx, err) {
			return nil, &SearchError{Query: query, Err: err}
		}
		c.logger.WithError(err).WithField("query", query).Info("place search returned no usable status")
		return nil, ErrNoResults
	}
	if len(resp.Results) == 0 {
		return nil, ErrNoResults
	}

	results := resp.Results
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	out := make([]Place, 0, len(results))
	for _, r := range results {
		out = append(out, fromResult(r))
	}
	return out, nil
}

func fromResult(r maps.PlacesSearchResult) Place {
	p := Place{
		Name:             r.Name,
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
		ReviewCount:      r.UserRatingsTotal,
	}
	// Google ratings run 1.0-5.0; zero is what an unrated place decodes to.
	if r.Rating > 0 {
		rating := float64(r.Rating)
		p.Rating = &rating
	}
	return p
}

// isTransportError separates "could not talk to the provider" from provider status errors.
func isTransportError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
