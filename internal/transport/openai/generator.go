package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/expatscout/internal/domain"
	"github.com/kailas-cloud/expatscout/internal/metrics"
	"github.com/kailas-cloud/expatscout/internal/transport/ratelimit"
)

// Generator produces summary text through a chat-completions endpoint.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	limiter     *ratelimit.Limiter
	logger      *zap.Logger
}

// GeneratorConfig holds the generation backend settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Limiter     *ratelimit.Limiter // nil = unlimited
	Logger      *zap.Logger
}

// NewGenerator returns domain.ErrGenerationUnavailable when the key is missing or a placeholder.
func NewGenerator(cfg *GeneratorConfig) (*Generator, error) {
	if !domain.IsConfiguredKey(cfg.APIKey) {
		return nil, domain.ErrGenerationUnavailable
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		limiter:     cfg.Limiter,
		logger:      logger,
	}, nil
}

// Model reports the configured model name.
func (g *Generator) Model() string { return g.model }

// Generate sends a single-turn prompt and returns the trimmed reply.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("generation: %w: %w", err, domain.ErrGenerationFailed)
	}

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: g.temperature,
	}
	if g.maxTokens > 0 {
		req.MaxTokens = g.maxTokens
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", parseAPIError("generation", err, domain.ErrGenerationFailed)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if text == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "empty").Inc()
		return "", fmt.Errorf("empty completion: %w", domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	if resp.Usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}
	g.logger.Debug("Generated summary",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
