package relay

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/aimaps/maps-relay/internal/inference"
	"github.com/aimaps/maps-relay/internal/places"
	"github.com/aimaps/maps-relay/internal/tools"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	outcome     inference.Outcome
	err         error
	calls       int
	lastMessage string
	lastModel   string
	tools       []inference.Tool
}

func (f *fakeGateway) Converse(_ context.Context, lastMessage string, schema []inference.Tool, opts ...inference.CallOption) (inference.Outcome, error) {
	f.calls++
	f.lastMessage = lastMessage
	f.lastModel = inference.ApplyCallOptions(opts...).Model
	f.tools = schema
	return f.outcome, f.err
}

type fakeSearcher struct {
	places  []places.Place
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]places.Place, error) {
	f.queries = append(f.queries, query)
	return f.places, f.err
}

func discardLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func userMessages(texts ...string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(texts))
	for _, t := range texts {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t})
	}
	return out
}

func searchCall(query any) inference.ToolCall {
	return inference.ToolCall{FunctionName: tools.SearchPlacesName, Arguments: map[string]any{"query": query}}
}

func makePlaces(n int) []places.Place {
	out := make([]places.Place, 0, n)
	for i := 1; i <= n; i++ {
		rating := 4.5
		out = append(out, places.Place{
			Name:             fmt.Sprintf("Kopi %d", i),
			FormattedAddress: fmt.Sprintf("Jl. Kemang %d", i),
			PlaceID:          fmt.Sprintf("pid%d", i),
			Rating:           &rating,
			ReviewCount:      i * 10,
		})
	}
	return out
}

var numberedBlock = regexp.MustCompile(`(?m)^\d+\. \*\*`)

func newDispatcher(gw Gateway, search places.Searcher) *Dispatcher {
	return NewDispatcher(discardLogger(), gw, search, tools.Schema())
}

func TestDispatchPlainTextVerbatim(t *testing.T) {
	gw := &fakeGateway{outcome: inference.PlainText{Content: "Jakarta is lovely in July.\n\n*Enjoy*"}}

	res, err := newDispatcher(gw, &fakeSearcher{}).Dispatch(context.Background(), userMessages("hi"))
	require.NoError(t, err)
	assert.Equal(t, "Jakarta is lovely in July.\n\n*Enjoy*", res.Content)
	assert.Empty(t, res.Action)
}

func TestDispatchForwardsOnlyLastMessage(t *testing.T) {
	gw := &fakeGateway{outcome: inference.PlainText{Content: "ok"}}

	_, err := newDispatcher(gw, nil).Dispatch(context.Background(), userMessages("first", "second", "third"))
	require.NoError(t, err)
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, "third", gw.lastMessage)
	require.Len(t, gw.tools, 1)
	assert.Equal(t, tools.SearchPlacesName, gw.tools[0].Function.Name)
}

func TestDispatchPassesCallOptions(t *testing.T) {
	gw := &fakeGateway{outcome: inference.PlainText{Content: "ok"}}
	d := newDispatcher(gw, nil)

	_, err := d.Dispatch(context.Background(), userMessages("hi"), inference.WithModel("qwen2.5:7b"))
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5:7b", gw.lastModel)

	_, err = d.Dispatch(context.Background(), userMessages("hi"))
	require.NoError(t, err)
	assert.Empty(t, gw.lastModel)
}

func TestDispatchMultiPartMessage(t *testing.T) {
	gw := &fakeGateway{outcome: inference.PlainText{Content: "ok"}}
	msg := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: "ramen"},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: "https://x/y.png"}},
			{Type: openai.ChatMessagePartTypeText, Text: "near Blok M"},
		},
	}

	_, err := newDispatcher(gw, nil).Dispatch(context.Background(), []openai.ChatCompletionMessage{msg})
	require.NoError(t, err)
	assert.Equal(t, "ramen\nnear Blok M", gw.lastMessage)
}

func TestDispatchEmptyConversation(t *testing.T) {
	gw := &fakeGateway{}

	_, err := newDispatcher(gw, nil).Dispatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyConversation)
	assert.Zero(t, gw.calls)
}

func TestDispatchUpstreamError(t *testing.T) {
	upErr := &inference.UpstreamError{StatusCode: 502, Body: "bad gateway"}
	gw := &fakeGateway{err: upErr}

	_, err := newDispatcher(gw, nil).Dispatch(context.Background(), userMessages("hi"))
	var got *inference.UpstreamError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 502, got.StatusCode)
}

func TestDispatchSearchFormatsResults(t *testing.T) {
	for _, n := range []int{1, 3, 5, 8} {
		search := &fakeSearcher{places: makePlaces(n)}
		gw := &fakeGateway{outcome: searchCall("kopi in Kemang")}

		res, err := newDispatcher(gw, search).Dispatch(context.Background(), userMessages("coffee?"))
		require.NoError(t, err)

		want := n
		if want > places.MaxResults {
			want = places.MaxResults
		}
		assert.Len(t, numberedBlock.FindAllString(res.Content, -1), want, "n=%d", n)
		assert.Equal(t, ActionOpenMap, res.Action)
		assert.Equal(t, []string{"kopi in Kemang"}, search.queries)
		assert.Contains(t, res.Content, "**Kopi 1**")
		assert.Contains(t, res.Content, "query_place_id=pid1")
	}
}

func TestDispatchSearchUninitialized(t *testing.T) {
	for _, q := range []string{"cafe", "", "xyzzy nonexistent place", "   "} {
		gw := &fakeGateway{outcome: searchCall(q)}

		res, err := newDispatcher(gw, nil).Dispatch(context.Background(), userMessages("find"))
		require.NoError(t, err)
		assert.Equal(t, MessageMissingKey, res.Content)
	}
}

func TestDispatchSearchNoResults(t *testing.T) {
	search := &fakeSearcher{err: places.ErrNoResults}
	gw := &fakeGateway{outcome: searchCall("xyzzy nonexistent place")}

	res, err := newDispatcher(gw, search).Dispatch(context.Background(), userMessages("find"))
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I couldn't find any places matching 'xyzzy nonexistent place' on Google Maps.", res.Content)
	assert.Empty(t, res.Action)
}

func TestDispatchSearchEmptySuccess(t *testing.T) {
	search := &fakeSearcher{places: []places.Place{}}
	gw := &fakeGateway{outcome: searchCall("nothing here")}

	res, err := newDispatcher(gw, search).Dispatch(context.Background(), userMessages("find"))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(MessageNotFound, "nothing here"), res.Content)
}

func TestDispatchSearchTransportError(t *testing.T) {
	search := &fakeSearcher{err: &places.SearchError{Query: "cafe", Err: errors.New("dial tcp: refused")}}
	gw := &fakeGateway{outcome: searchCall("cafe")}

	_, err := newDispatcher(gw, search).Dispatch(context.Background(), userMessages("find"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestDispatchMissingQuery(t *testing.T) {
	search := &fakeSearcher{}
	gw := &fakeGateway{outcome: inference.ToolCall{FunctionName: tools.SearchPlacesName, Arguments: map[string]any{}}}

	_, err := newDispatcher(gw, search).Dispatch(context.Background(), userMessages("find"))
	assert.ErrorIs(t, err, ErrMissingQuery)
	assert.Empty(t, search.queries)
}

func TestDispatchUnknownTool(t *testing.T) {
	search := &fakeSearcher{places: makePlaces(2)}
	gw := &fakeGateway{outcome: inference.ToolCall{FunctionName: "get_weather", Arguments: map[string]any{"city": "Bandung"}}}

	res, err := newDispatcher(gw, search).Dispatch(context.Background(), userMessages("weather?"))
	require.NoError(t, err)
	assert.Equal(t, MessageUnavailable, res.Content)
	assert.Empty(t, search.queries)
}

func TestSearchEnabled(t *testing.T) {
	assert.False(t, newDispatcher(&fakeGateway{}, nil).SearchEnabled())
	assert.True(t, newDispatcher(&fakeGateway{}, &fakeSearcher{}).SearchEnabled())
}
