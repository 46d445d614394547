package chat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/truthfinder/backend/internal/model/analysis"
	"github.com/zhouzirui/truthfinder/backend/internal/model/chat"
	"github.com/zhouzirui/truthfinder/backend/internal/service/agent"
	"github.com/zhouzirui/truthfinder/backend/pkg/utils"
)

// maxBodyBytes 限制请求体大小
const maxBodyBytes = 1 << 20

// Agent 是处理器依赖的编排层能力
type Agent interface {
	Chat(ctx context.Context, message, sessionID string) (agent.ChatResult, error)
	GetSession(sessionID string) chat.Session
	Analyze(ctx context.Context, content, language string) (analysis.Report, error)
	Health() agent.Health
}

// Handler 对话服务的HTTP处理器
type Handler struct {
	agent Agent
}

// New 创建对话处理器
func New(a Agent) *Handler {
	return &Handler{agent: a}
}

// RegisterRoutes 注册对话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/agent/chat", h.handleChat)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Post("/fact-check", h.handleFactCheck)
	r.Get("/health", h.handleHealth)
}

// handleChat 处理一轮对话
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		utils.RespondErrorCode(w, http.StatusBadRequest, "invalid request body", "invalid_request")
		return
	}

	result, err := h.agent.Chat(r.Context(), payload.Message, payload.SessionID)
	if err != nil {
		RespondAgentError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// handleGetSession 返回会话历史，未知会话返回空历史
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	utils.RespondJSON(w, http.StatusOK, h.agent.GetSession(sessionID))
}

// handleFactCheck 并行执行事实核查与摘要
func (h *Handler) handleFactCheck(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content  string `json:"content"`
		Language string `json:"language"`
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		utils.RespondErrorCode(w, http.StatusBadRequest, "invalid request body", "invalid_request")
		return
	}

	report, err := h.agent.Analyze(r.Context(), payload.Content, payload.Language)
	if err != nil {
		RespondAgentError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, report)
}

// handleHealth 健康检查
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.agent.Health())
}

// RespondAgentError 将编排层错误映射为HTTP状态码，内部错误不暴露细节
func RespondAgentError(w http.ResponseWriter, err error) {
	code, message, userError := agent.Describe(err)
	if userError {
		utils.RespondErrorCode(w, http.StatusBadRequest, message, code)
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, message)
}
