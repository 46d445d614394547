package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

var (
	ErrEmptyGeneration      = errors.New("generation returned no text")
	ErrGeneratorUnavailable = errors.New("generation provider not configured")
)

// Generator submits a single text prompt and returns generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name identifies the backend for logs and health checks. It is never shown to end users.
	Name() string
}

// ChainGenerator runs prompts through an eino chain (template -> chat model).
type ChainGenerator struct {
	name   string
	system string
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.Logger
}

// NewChainGenerator compiles a chain around chatModel. system may be empty.
func NewChainGenerator(ctx context.Context, name string, chatModel model.BaseChatModel, system string, logger *zap.Logger) (*ChainGenerator, error) {
	if chatModel == nil {
		return nil, ErrGeneratorUnavailable
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	templates := make([]schema.MessagesTemplate, 0, 2)
	if system != "" {
		templates = append(templates, schema.SystemMessage("{system}"))
	}
	templates = append(templates, schema.UserMessage("{prompt}"))
	promptTemplate := prompt.FromMessages(schema.FString, templates...)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation chain: %w", err)
	}

	return &ChainGenerator{
		name:   name,
		system: system,
		chain:  runnable,
		logger: logger,
	}, nil
}

// Name implements Generator.
func (g *ChainGenerator) Name() string {
	return g.name
}

// Generate implements Generator.
func (g *ChainGenerator) Generate(ctx context.Context, text string) (string, error) {
	input := map[string]any{"prompt": text}
	if g.system != "" {
		input["system"] = g.system
	}

	response, err := g.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run generation chain: %w", err)
	}
	if response == nil {
		return "", ErrEmptyGeneration
	}

	content := strings.TrimSpace(response.Content)
	if content == "" {
		return "", ErrEmptyGeneration
	}

	g.logger.Debug("generated response", zap.String("backend", g.name), zap.Int("length", len(content)))
	return content, nil
}

// Unavailable is the Generator used when no backend is configured. Every call fails.
type Unavailable struct{}

// Name implements Generator.
func (Unavailable) Name() string { return "unavailable" }

// Generate implements Generator.
func (Unavailable) Generate(context.Context, string) (string, error) {
	return "", ErrGeneratorUnavailable
}
