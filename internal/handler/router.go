package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/truthfinder/backend/internal/handler/chat"
	"github.com/zhouzirui/truthfinder/backend/internal/handler/stream"
	"github.com/zhouzirui/truthfinder/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/truthfinder/backend/internal/middleware"
)

// NewRouter wires HTTP routes to the agent.
func NewRouter(agent chat.Agent, origins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(origins))

	chatHandler := chat.New(agent)
	streamHandler := stream.New(agent, logger)
	wsHandler := ws.New(agent, origins, logger)

	r.Route("/api/v1", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
