package generate

import (
	"context"

	"github.com/kailas-cloud/laudos/internal/domain/generation"
)

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, p *generation.Prompt) (generation.Completion, error)
}
