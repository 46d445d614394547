package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/truthfinder/backend/internal/service/agent"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	maxFrameSize = 1 << 20
)

// Chatter 是 WebSocket 通道依赖的对话入口
type Chatter interface {
	Chat(ctx context.Context, message, sessionID string) (agent.ChatResult, error)
}

// Handler 通过 WebSocket 承载多轮对话
type Handler struct {
	agent    Chatter
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New 创建 WebSocket 处理器，origins 为空时接受任意来源
func New(a Chatter, origins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return &Handler{
		agent:  a,
		logger: logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// RegisterRoutes 注册 WebSocket 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/agent/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

type chatPayload struct {
	Message string `json:"message"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// connection 串行化对同一连接的写操作
type connection struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

func (c *connection) write(msg outgoingMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg.Timestamp = time.Now().Unix()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debug("write failed", zap.Error(err))
	}
}

func (c *connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()

	conn := &connection{conn: raw, logger: h.logger}
	raw.SetReadLimit(maxFrameSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("read error", zap.Error(err))
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(readTimeout))

		h.handleMessage(ctx, conn, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *connection, msg *inboundMessage) {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}

	switch msg.Type {
	case "chat":
		var payload chatPayload
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				h.sendError(conn, id, msg.SessionID, "invalid_request", "invalid chat payload")
				return
			}
		}
		h.handleChat(ctx, conn, id, msg.SessionID, payload.Message)
	case "ping":
		conn.write(outgoingMessage{Type: "pong", ID: id, SessionID: msg.SessionID})
	default:
		h.sendError(conn, id, msg.SessionID, "invalid_request", "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleChat(ctx context.Context, conn *connection, id, sessionID, message string) {
	result, err := h.agent.Chat(ctx, message, sessionID)
	if err != nil {
		code, text, userError := agent.Describe(err)
		if !userError {
			h.logger.Error("chat failed", zap.String("id", id), zap.Error(err))
		}
		h.sendError(conn, id, sessionID, code, text)
		return
	}

	conn.write(outgoingMessage{
		Type:      "reply",
		ID:        id,
		SessionID: result.SessionID,
		Data:      result,
	})
}

func (h *Handler) sendError(conn *connection, id, sessionID, code, message string) {
	conn.write(outgoingMessage{
		Type:      "error",
		ID:        id,
		SessionID: sessionID,
		Data:      map[string]string{"error": message, "code": code},
	})
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
