package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Social    SocialConfig
	Session   SessionConfig
	Agent     AgentConfig
	Guardrail GuardrailConfig
	Log       LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	social, err := loadSocialConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	agent, err := loadAgentConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		LLM:       llm,
		Social:    social,
		Session:   session,
		Agent:     agent,
		Guardrail: GuardrailConfig{PolicyFile: strings.TrimSpace(os.Getenv("GUARDRAIL_POLICY_FILE"))},
		Log:       LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// loadServerConfig 解析服务器监听地址与跨域来源。
func loadServerConfig() (ServerConfig, error) {
	origins := parseListEnv("CORS_ORIGINS", []string{"http://localhost:3000"})

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		return ServerConfig{Addr: port, CORSOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, CORSOrigins: origins}, nil
}

// Provider 标识生成模型后端。
type Provider string

const (
	ProviderArk       Provider = "ark"
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// LLMConfig 描述大模型相关配置。
type LLMConfig struct {
	Provider     Provider
	Model        string
	SystemPrompt string
	MaxTokens    *int
	Temperature  *float64
	TopP         *float64

	// Ark (Volcengine) 凭证
	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkBaseURL   string
	ArkRegion    string

	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
}

// Enabled 表示所选后端的必需密钥是否齐全。
func (c LLMConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Model != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	case ProviderAnthropic:
		return c.AnthropicAPIKey != ""
	default:
		return false
	}
}

// NewArkChatModel 使用配置创建一个 Ark 模型实例。
func (c LLMConfig) NewArkChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if c.Provider != ProviderArk || !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + LLM_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.ArkBaseURL,
		Region:      c.ArkRegion,
		APIKey:      c.ArkAPIKey,
		AccessKey:   c.ArkAccessKey,
		SecretKey:   c.ArkSecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadLLMConfig() (LLMConfig, error) {
	provider := Provider(strings.ToLower(getEnvOrDefault("LLM_PROVIDER", string(ProviderGemini))))
	switch provider {
	case ProviderArk, ProviderGemini, ProviderOpenAI, ProviderAnthropic:
	default:
		return LLMConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("LLM_TEMPERATURE")
	if err != nil {
		return LLMConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("LLM_TOP_P")
	if err != nil {
		return LLMConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("LLM_MAX_TOKENS")
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		Provider:        provider,
		Model:           strings.TrimSpace(os.Getenv("LLM_MODEL")),
		SystemPrompt:    strings.TrimSpace(os.Getenv("LLM_SYSTEM_PROMPT")),
		MaxTokens:       maxTokens,
		Temperature:     temperature,
		TopP:            topP,
		ArkAPIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkBaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		GeminiAPIKey:    firstEnv("GEMINI_API_KEY", "gemini_api_key"),
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		AnthropicAPIKey: strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
	}, nil
}

// SocialConfig 描述社交数据（Twitter v2）检索配置。
type SocialConfig struct {
	BearerToken string
	BaseURL     string
	Timeout     time.Duration
}

// Enabled 表示是否提供了 Twitter 凭证。
func (c SocialConfig) Enabled() bool {
	return c.BearerToken != ""
}

func loadSocialConfig() (SocialConfig, error) {
	timeout, err := parseDurationEnv("TWITTER_TIMEOUT", 10*time.Second)
	if err != nil {
		return SocialConfig{}, err
	}

	return SocialConfig{
		BearerToken: firstEnv("TWITTER_BEARER_TOKEN", "twitter_bearer_token"),
		BaseURL:     getEnvOrDefault("TWITTER_BASE_URL", "https://api.twitter.com"),
		Timeout:     timeout,
	}, nil
}

// SessionConfig 描述会话存储配置。
type SessionConfig struct {
	MaxSessions int
}

func loadSessionConfig() (SessionConfig, error) {
	maxSessions := 10000
	override, err := parseOptionalIntEnv("SESSION_MAX_ENTRIES")
	if err != nil {
		return SessionConfig{}, err
	}
	if override != nil {
		if *override < 1 {
			return SessionConfig{}, fmt.Errorf("invalid SESSION_MAX_ENTRIES value %d: must be positive", *override)
		}
		maxSessions = *override
	}
	return SessionConfig{MaxSessions: maxSessions}, nil
}

// AgentConfig 控制编排层行为。
type AgentConfig struct {
	ProviderTimeout time.Duration
}

func loadAgentConfig() (AgentConfig, error) {
	timeout, err := parseDurationEnv("PROVIDER_TIMEOUT", 30*time.Second)
	if err != nil {
		return AgentConfig{}, err
	}
	return AgentConfig{ProviderTimeout: timeout}, nil
}

// GuardrailConfig 指向可选的 YAML 策略文件。
type GuardrailConfig struct {
	PolicyFile string
}

// LogConfig 控制日志级别。
type LogConfig struct {
	Level string
}

// Debug 表示是否输出调试日志。
func (c LogConfig) Debug() bool {
	return strings.EqualFold(c.Level, "debug")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv 返回第一个非空的环境变量值，用于兼容旧的小写变量名。
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func parseListEnv(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}

	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	// 纯数字按秒处理
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
		}
		return time.Duration(secs) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
