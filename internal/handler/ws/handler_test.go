package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/truthfinder/backend/internal/service/agent"
	"github.com/zhouzirui/truthfinder/backend/internal/service/guardrail"
)

type chatFunc func(ctx context.Context, message, sessionID string) (agent.ChatResult, error)

func (f chatFunc) Chat(ctx context.Context, message, sessionID string) (agent.ChatResult, error) {
	return f(ctx, message, sessionID)
}

type reply struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func dial(t *testing.T, a Chatter) *websocket.Conn {
	t.Helper()

	r := chi.NewRouter()
	New(a, nil, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/agent/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestChatReply(t *testing.T) {
	conn := dial(t, chatFunc(func(_ context.Context, message, sessionID string) (agent.ChatResult, error) {
		return agent.ChatResult{Response: "echo: " + message, SessionID: sessionID, Intent: "fallback"}, nil
	}))

	if err := conn.WriteJSON(map[string]any{
		"type":      "chat",
		"id":        "req-1",
		"sessionId": "s1",
		"data":      map[string]string{"message": "hi there"},
	}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	var got reply
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read err: %v", err)
	}
	if got.Type != "reply" || got.ID != "req-1" || got.SessionID != "s1" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
	var result agent.ChatResult
	if err := json.Unmarshal(got.Data, &result); err != nil {
		t.Fatalf("decode data err: %v", err)
	}
	if result.Response != "echo: hi there" {
		t.Fatalf("unexpected response %q", result.Response)
	}
}

func TestChatErrorsUsePublicCodes(t *testing.T) {
	conn := dial(t, chatFunc(func(_ context.Context, message, _ string) (agent.ChatResult, error) {
		if message == "" {
			return agent.ChatResult{}, guardrail.ErrEmptyMessage
		}
		return agent.ChatResult{}, errors.New("redis at 10.1.1.1 refused")
	}))

	cases := []struct {
		message string
		code    string
	}{
		{"", string(guardrail.ReasonEmpty)},
		{"boom", "internal"},
	}
	for _, tc := range cases {
		if err := conn.WriteJSON(map[string]any{"type": "chat", "data": map[string]string{"message": tc.message}}); err != nil {
			t.Fatalf("write err: %v", err)
		}
		var got reply
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read err: %v", err)
		}
		if got.Type != "error" || got.ID == "" {
			t.Fatalf("unexpected envelope: %+v", got)
		}
		var body map[string]string
		if err := json.Unmarshal(got.Data, &body); err != nil {
			t.Fatalf("decode data err: %v", err)
		}
		if body["code"] != tc.code {
			t.Fatalf("%q: expected code %s, got %v", tc.message, tc.code, body)
		}
		if strings.Contains(body["error"], "10.1.1.1") {
			t.Fatalf("internal detail leaked: %v", body)
		}
	}
}

func TestUnsupportedType(t *testing.T) {
	conn := dial(t, chatFunc(func(context.Context, string, string) (agent.ChatResult, error) {
		t.Fatalf("chat must not be called")
		return agent.ChatResult{}, nil
	}))

	if err := conn.WriteJSON(map[string]any{"type": "audio"}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	var got reply
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read err: %v", err)
	}
	if got.Type != "error" || !strings.Contains(string(got.Data), "unsupported message type") {
		t.Fatalf("unexpected reply: %+v", got)
	}
}

func TestOriginCheck(t *testing.T) {
	h := New(nil, []string{"https://app.example.com/"}, nil)

	req := httptest.NewRequest("GET", "/agent/ws", nil)
	req.Header.Set("Origin", "https://app.example.com")
	if !h.upgrader.CheckOrigin(req) {
		t.Fatalf("expected allowed origin")
	}
	req.Header.Set("Origin", "https://evil.example.com")
	if h.upgrader.CheckOrigin(req) {
		t.Fatalf("expected rejected origin")
	}
}
