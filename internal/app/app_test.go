package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/truthfinder/backend/internal/config"
	"github.com/zhouzirui/truthfinder/backend/internal/service/router"
)

func TestBuildWithoutProviders(t *testing.T) {
	cfg := &config.Config{
		Session: config.SessionConfig{MaxSessions: 10},
	}

	svc, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	health := svc.Health()
	assert.Equal(t, "unavailable", health.Providers["generation"])
	assert.Equal(t, "unavailable", health.Providers["social"])

	res, err := svc.Chat(context.Background(), "who are you", "")
	require.NoError(t, err)
	assert.Equal(t, router.IdentityResponse, res.Response)
}

func TestBuildWithSocialToken(t *testing.T) {
	cfg := &config.Config{
		Social: config.SocialConfig{BearerToken: "token"},
	}

	svc, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "available", svc.Health().Providers["social"])
}

func TestBuildRejectsMissingPolicyFile(t *testing.T) {
	cfg := &config.Config{Guardrail: config.GuardrailConfig{PolicyFile: "/nonexistent/policy.yaml"}}
	_, err := Build(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildRequiresConfig(t *testing.T) {
	_, err := Build(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestNewLoggerDebug(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}
