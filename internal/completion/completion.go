// Package completion builds OpenAI-compatible response envelopes.
package completion

import (
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

const (
	objectCompletion = "chat.completion"
	objectList       = "list"
	objectModel      = "model"
	idPrefix         = "chatcmpl-"
	ownedBy          = "maps-relay"
)

// ModelList is the /v1/models payload. go-openai's ModelsList omits the "object" field.
type ModelList struct {
	Object string         `json:"object"`
	Data   []openai.Model `json:"data"`
}

// Response is the chat.completion envelope. It is narrower than go-openai's response
// type so the wire shape carries only OpenAI fields and always includes message content.
type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is one generated answer.
type Choice struct {
	Index        int                 `json:"index"`
	Message      Message             `json:"message"`
	FinishReason openai.FinishReason `json:"finish_reason"`
}

// Message is the assistant turn inside a Choice.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Assembler stamps ids and timestamps onto completion envelopes.
type Assembler struct {
	now     func() time.Time
	newID   func() string
	started time.Time
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func() string) Option {
	return func(a *Assembler) { a.newID = gen }
}

// NewAssembler returns an Assembler using the system clock and random UUIDs.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.started = a.now()
	return a
}

// Assemble wraps content in a single-choice completion. Usage is always zero;
// token accounting is not implemented.
func (a *Assembler) Assemble(model, content string) Response {
	return Response{
		ID:      idPrefix + a.newID(),
		Object:  objectCompletion,
		Created: a.now().Unix(),
		Model:   model,
		Choices: []Choice{{
			Index: 0,
			Message: Message{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: Usage{},
	}
}

// Models lists the single virtual model exposed to clients.
func (a *Assembler) Models(modelID string) ModelList {
	return ModelList{
		Object: objectList,
		Data: []openai.Model{{
			ID:        modelID,
			Object:    objectModel,
			CreatedAt: a.started.Unix(),
			OwnedBy:   ownedBy,
		}},
	}
}
