package generate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/domain"
	"github.com/kailas-cloud/laudos/internal/domain/generation"
	"github.com/kailas-cloud/laudos/internal/logger"
)

// Image is a raw attachment as received from the client.
type Image struct {
	Type   string
	Base64 string
}

// Service relays generation prompts to the configured backend.
type Service struct {
	completer Completer
}

// New creates a generation service. A nil completer disables generation.
func New(completer Completer) *Service {
	return &Service{completer: completer}
}

// Enabled reports whether a backend is configured.
func (s *Service) Enabled() bool { return s.completer != nil }

// Generate validates the prompt and returns the generated text.
func (s *Service) Generate(ctx context.Context, system, message string, images []Image) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("generation is disabled: %w", domain.ErrNotImplemented)
	}

	attachments := make([]generation.Attachment, 0, len(images))
	for i, img := range images {
		a, err := generation.NewAttachment(img.Type, img.Base64)
		if err != nil {
			return "", fmt.Errorf("images[%d]: %w", i, err)
		}
		attachments = append(attachments, a)
	}

	prompt, err := generation.NewPrompt(system, message, attachments)
	if err != nil {
		return "", err
	}

	completion, err := s.completer.Complete(ctx, &prompt)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}

	logger.FromContext(ctx).Debug("Generation completed",
		zap.Int("attachments", len(attachments)),
		zap.Int("prompt_tokens", completion.PromptTokens),
		zap.Int("completion_tokens", completion.CompletionTokens),
	)
	return completion.Content, nil
}
