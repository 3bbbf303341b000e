package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/domain"
	"github.com/kailas-cloud/laudos/internal/domain/generation"
	"github.com/kailas-cloud/laudos/internal/metrics"
)

// Completer relays prompts to an OpenAI-compatible chat completions API.
type Completer struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// Config holds the generation backend settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completer. An empty BaseURL keeps the
// library default.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Completer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// Complete sends the prompt and returns the generated text. Attachments precede the
// user message in the same turn.
func (c *Completer) Complete(ctx context.Context, p *generation.Prompt) (generation.Completion, error) {
	req, err := c.buildRequest(p)
	if err != nil {
		return generation.Completion{}, err
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(c.model, "error").Inc()
		c.logger.Warn("chat completion failed", zap.String("model", c.model), zap.Error(err))
		return generation.Completion{}, parseAPIError(err)
	}

	var sb strings.Builder
	for _, choice := range resp.Choices {
		sb.WriteString(choice.Message.Content)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return generation.Completion{}, domain.NewGenerationError(0, "empty completion response", nil)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return generation.Completion{
		Content:          sb.String(),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *Completer) buildRequest(p *generation.Prompt) (openai.ChatCompletionRequest, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if p.System() != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.System(),
		})
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(p.Attachments()) == 0 {
		user.Content = p.Message()
	} else {
		parts := make([]openai.ChatMessagePart, 0, len(p.Attachments())+1)
		for _, a := range p.Attachments() {
			if a.IsPDF() {
				return openai.ChatCompletionRequest{}, fmt.Errorf("%s: %w", a.MediaType(), domain.ErrUnsupportedAttachment)
			}
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: a.DataURL()},
			})
		}
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: p.Message()})
		user.MultiContent = parts
	}
	messages = append(messages, user)

	return openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError keeps the upstream status and message. All errors wrap
// domain.ErrGenerationProvider.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewGenerationError(apiErr.HTTPStatusCode, apiErr.Message, nil)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := extractMessage(reqErr.Body)
		if msg == "" {
			msg = http.StatusText(reqErr.HTTPStatusCode)
		}
		return domain.NewGenerationError(reqErr.HTTPStatusCode, msg, nil)
	}

	return domain.NewGenerationError(0, "", fmt.Errorf("generation request failed: %w", err))
}

// extractMessage reads error.message or detail from a JSON error body.
func extractMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return parsed.Detail
}
