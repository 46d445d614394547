package stream

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/truthfinder/backend/internal/service/agent"
	"github.com/zhouzirui/truthfinder/backend/pkg/utils"
)

// chunkWords is the number of words carried by one message event.
const chunkWords = 8

// Chatter is the chat entry point the stream endpoint drives.
type Chatter interface {
	Chat(ctx context.Context, message, sessionID string) (agent.ChatResult, error)
}

// Handler serves agent replies as Server-Sent Events.
type Handler struct {
	agent  Chatter
	logger *zap.Logger
}

// New creates a new stream handler
func New(a Chatter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{agent: a, logger: logger.Named("stream")}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	SessionID string            `json:"sessionId,omitempty"`
	Content   string            `json:"content,omitempty"`
	Finished  bool              `json:"finished,omitempty"`
	Result    *agent.ChatResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Code      string            `json:"code,omitempty"`
}

// RegisterRoutes mounts the stream endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/agent/stream/{sessionID}", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	utils.SendSSEEvent(w, flusher, "start", StreamResponse{SessionID: sessionID})

	result, err := h.agent.Chat(r.Context(), message, sessionID)
	if err != nil {
		code, text, userError := agent.Describe(err)
		if !userError {
			h.logger.Error("stream chat failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		utils.SendSSEEvent(w, flusher, "error", StreamResponse{SessionID: sessionID, Error: text, Code: code})
		return
	}

	for _, chunk := range Chunks(result.Response, chunkWords) {
		if r.Context().Err() != nil {
			return
		}
		utils.SendSSEEvent(w, flusher, "message", StreamResponse{SessionID: result.SessionID, Content: chunk})
	}

	utils.SendSSEEvent(w, flusher, "end", StreamResponse{
		SessionID: result.SessionID,
		Finished:  true,
		Result:    &result,
	})
}

// Chunks splits text into groups of n words. Concatenating the chunks
// reproduces the text with whitespace runs collapsed to single spaces.
func Chunks(text string, n int) []string {
	if n <= 0 {
		n = 1
	}
	words := strings.Fields(text)
	var chunks []string
	for start := 0; start < len(words); start += n {
		end := min(start+n, len(words))
		chunk := strings.Join(words[start:end], " ")
		if end < len(words) {
			chunk += " "
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
