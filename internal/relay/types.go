package relay

import openai "github.com/sashabaranov/go-openai"

// ChatCompletionRequest is the subset of the OpenAI request the relay reads.
// Other fields (temperature, stop, tools...) are accepted and ignored.
type ChatCompletionRequest struct {
	Model    string                         `json:"model"`
	Messages []openai.ChatCompletionMessage `json:"messages"`
	// Stream is accepted but responses are never streamed.
	Stream bool `json:"stream"`
}

// ChatRequest is the simple single-message payload served on /v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
	// Model, when set, replaces the configured upstream model for this request.
	Model string `json:"model,omitempty"`
}

// ChatResponse is the reply to a ChatRequest.
type ChatResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Action  string `json:"action,omitempty"`
}

// StatusResponse is the liveness payload on GET /.
type StatusResponse struct {
	Status  string `json:"status"`
	ModelID string `json:"model_id"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
