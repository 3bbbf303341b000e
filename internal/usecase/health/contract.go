package health

import "context"

// ProviderPinger checks candidate provider availability.
type ProviderPinger interface {
	Ping(ctx context.Context) error
}

// GenerationChecker checks generation backend availability.
type GenerationChecker interface {
	HealthCheck(ctx context.Context) error
}
