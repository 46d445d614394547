package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zhouzirui/truthfinder/backend/internal/config"
	"github.com/zhouzirui/truthfinder/backend/internal/service/agent"
	"github.com/zhouzirui/truthfinder/backend/internal/service/ai"
	"github.com/zhouzirui/truthfinder/backend/internal/service/capability"
	chatservice "github.com/zhouzirui/truthfinder/backend/internal/service/chat"
	"github.com/zhouzirui/truthfinder/backend/internal/service/guardrail"
	"github.com/zhouzirui/truthfinder/backend/internal/service/router"
	socialsvc "github.com/zhouzirui/truthfinder/backend/internal/service/social"
)

// NewLogger 按配置创建生产环境日志器
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Debug() {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

// Build 组装护栏、会话存储、能力注册表、意图路由与编排入口
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*agent.Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	policy, err := guardrail.LoadPolicy(cfg.Guardrail.PolicyFile)
	if err != nil {
		return nil, err
	}
	guard, err := guardrail.New(policy)
	if err != nil {
		return nil, fmt.Errorf("build guardrail: %w", err)
	}

	sessions := chatservice.NewService(chatservice.Config{
		MaxSessions: cfg.Session.MaxSessions,
		Logger:      logger.Named("session"),
	})

	gen, err := ai.NewGenerator(ctx, cfg.LLM, logger.Named("ai"))
	if err != nil {
		// 生成后端初始化失败时继续运行，受影响的请求返回兜底文案
		logger.Warn("generation backend unavailable", zap.Error(err))
		gen = ai.Unavailable{}
	}

	var searcher socialsvc.Searcher
	if cfg.Social.Enabled() {
		client, err := socialsvc.NewTwitterClient(cfg.Social.BaseURL, cfg.Social.BearerToken,
			&http.Client{Timeout: cfg.Social.Timeout}, logger.Named("social"))
		if err != nil {
			return nil, err
		}
		searcher = client
	} else {
		logger.Info("twitter bearer token not configured, social search disabled")
	}

	registry, err := capability.NewRegistry(logger.Named("capability"), capability.Builtin(gen, searcher, logger)...)
	if err != nil {
		return nil, err
	}

	return agent.New(agent.Options{
		Guardrail:       guard,
		Sessions:        sessions,
		Router:          router.New(registry, gen, logger.Named("router")),
		Capabilities:    registry,
		Generator:       gen,
		SocialEnabled:   searcher != nil,
		ProviderTimeout: cfg.Agent.ProviderTimeout,
		Logger:          logger.Named("agent"),
	})
}
