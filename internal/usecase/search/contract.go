package search

import (
	"context"

	"github.com/kailas-cloud/laudos/internal/domain/report"
)

// CandidateProvider supplies the reports eligible for scoring.
// Fetch returns reports whose exam equals exam, newest first, bounded by the provider's own cap.
// Failures carry the provider's status via *domain.ProviderError.
type CandidateProvider interface {
	Fetch(ctx context.Context, exam string) ([]report.Report, error)
}

// Pinger is implemented by providers that can report their own availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
