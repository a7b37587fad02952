// Package relay serves the OpenAI-compatible chat surface and sequences each request
// through inference and, when asked for, a place search.
package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aimaps/maps-relay/internal/completion"
	"github.com/aimaps/maps-relay/internal/inference"
	"github.com/aimaps/maps-relay/internal/version"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Handler exposes the dispatcher over HTTP.
type Handler struct {
	dispatcher *Dispatcher
	assembler  *completion.Assembler
	modelID    string
	logger     *logrus.Entry
}

// NewHandler constructs a relay handler. modelID is the virtual model name shown to clients.
func NewHandler(logger *logrus.Entry, dispatcher *Dispatcher, assembler *completion.Assembler, modelID string) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		assembler:  assembler,
		modelID:    modelID,
		logger:     logger,
	}
}

// Register mounts the relay routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleRoot)
	mux.HandleFunc("/v1/models", h.handleModels)
	mux.HandleFunc("/v1/chat/completions", h.handleChatCompletions)
	mux.HandleFunc("/v1/chat", h.handleChat)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, version.Get(), http.StatusOK)
	})
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, StatusResponse{Status: "running", ModelID: h.modelID}, http.StatusOK)
}

func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, h.assembler.Models(h.modelID), http.StatusOK)
}

func (h *Handler) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warnf("bad request: %v", err)
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.modelID
	}
	if req.Stream {
		h.logger.Debug("stream requested; answering with a single completion")
	}

	result, err := h.dispatcher.Dispatch(r.Context(), req.Messages)
	if err != nil {
		h.logger.Errorf("chat completion failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, h.assembler.Assemble(model, result.Content), http.StatusOK)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeDetail(w, http.StatusBadRequest, "message is required")
		return
	}

	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: req.Message}}
	var opts []inference.CallOption
	if strings.TrimSpace(req.Model) != "" {
		opts = append(opts, inference.WithModel(req.Model))
	}
	result, err := h.dispatcher.Dispatch(r.Context(), msgs, opts...)
	if err != nil {
		h.logger.Errorf("chat failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, ChatResponse{
		Role:    openai.ChatMessageRoleAssistant,
		Content: result.Content,
		Action:  result.Action,
	}, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, errorResponse{Detail: detail}, status)
}
