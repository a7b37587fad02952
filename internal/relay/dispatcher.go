package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aimaps/maps-relay/internal/format"
	"github.com/aimaps/maps-relay/internal/inference"
	"github.com/aimaps/maps-relay/internal/places"
	"github.com/aimaps/maps-relay/internal/tools"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Fixed replies used instead of search results.
const (
	MessageMissingKey  = "Place search is unavailable because the Google Maps API key is missing."
	MessageNotFound    = "Sorry, I couldn't find any places matching '%s' on Google Maps."
	MessageUnavailable = "Sorry, search is currently unavailable."

	// ActionOpenMap tells UI clients that the reply carries map links.
	ActionOpenMap = "open_map"
)

var (
	// ErrEmptyConversation is returned when a request carries no messages.
	ErrEmptyConversation = errors.New("messages must contain at least one message")
	// ErrMissingQuery is returned when search_places is called without a query.
	ErrMissingQuery = errors.New("search_places called without a query")
)

// Gateway is the inference endpoint as seen by the dispatcher.
type Gateway interface {
	Converse(ctx context.Context, lastMessage string, tools []inference.Tool, opts ...inference.CallOption) (inference.Outcome, error)
}

// Result is the final assistant content for one request.
type Result struct {
	Content string
	// Action is ActionOpenMap when Content lists places, empty otherwise.
	Action string
}

// Dispatcher sequences one request: inference, then an optional place search.
type Dispatcher struct {
	gateway Gateway
	search  places.Searcher
	tools   []inference.Tool
	logger  *logrus.Entry
}

// NewDispatcher wires the collaborators. search may be nil, which disables place search.
func NewDispatcher(logger *logrus.Entry, gateway Gateway, search places.Searcher, schema []inference.Tool) *Dispatcher {
	return &Dispatcher{
		gateway: gateway,
		search:  search,
		tools:   schema,
		logger:  logger,
	}
}

// SearchEnabled reports whether a place searcher is configured.
func (d *Dispatcher) SearchEnabled() bool { return d.search != nil }

// Dispatch answers the conversation. Only the last message is forwarded upstream;
// opts are passed through to the inference call.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []openai.ChatCompletionMessage, opts ...inference.CallOption) (Result, error) {
	if len(messages) == 0 {
		return Result{}, ErrEmptyConversation
	}
	last := messageText(messages[len(messages)-1])

	outcome, err := d.gateway.Converse(ctx, last, d.tools, opts...)
	if err != nil {
		return Result{}, err
	}

	switch out := outcome.(type) {
	case inference.PlainText:
		return Result{Content: out.Content}, nil
	case inference.ToolCall:
		return d.runTool(ctx, out)
	default:
		return Result{}, fmt.Errorf("unexpected inference outcome %T", outcome)
	}
}

func (d *Dispatcher) runTool(ctx context.Context, call inference.ToolCall) (Result, error) {
	if call.FunctionName != tools.SearchPlacesName {
		d.logger.WithField("tool", call.FunctionName).Warn("model requested unknown tool")
		return Result{Content: MessageUnavailable}, nil
	}
	query, _ := call.StringArg("query")
	return d.SearchPlaces(ctx, query)
}

// SearchPlaces runs a place search and renders the reply the way a search_places tool
// call would.
func (d *Dispatcher) SearchPlaces(ctx context.Context, query string) (Result, error) {
	if d.search == nil {
		return Result{Content: MessageMissingKey}, nil
	}
	if strings.TrimSpace(query) == "" {
		return Result{}, ErrMissingQuery
	}

	log := d.logger.WithFields(logrus.Fields{"tool": tools.SearchPlacesName, "query": query})
	log.Info("searching places")

	found, err := d.search.Search(ctx, query)
	switch {
	case errors.Is(err, places.ErrNoResults):
		log.Info("no places found")
		return Result{Content: fmt.Sprintf(MessageNotFound, query)}, nil
	case err != nil:
		return Result{}, err
	case len(found) == 0:
		return Result{Content: fmt.Sprintf(MessageNotFound, query)}, nil
	}

	if len(found) > places.MaxResults {
		found = found[:places.MaxResults]
	}
	log.WithField("results", len(found)).Debug("formatting places")
	return Result{Content: format.Places(query, found), Action: ActionOpenMap}, nil
}

// messageText flattens a message to plain text; multi-part content keeps only text parts.
func messageText(msg openai.ChatCompletionMessage) string {
	if len(msg.MultiContent) == 0 {
		return msg.Content
	}
	parts := make([]string, 0, len(msg.MultiContent))
	for _, p := range msg.MultiContent {
		if p.Type == openai.ChatMessagePartTypeText {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}
