package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/domain/lexical"
	"github.com/kailas-cloud/laudos/internal/domain/report"
	"github.com/kailas-cloud/laudos/internal/domain/search/request"
	"github.com/kailas-cloud/laudos/internal/domain/search/result"
	"github.com/kailas-cloud/laudos/internal/logger"
	"github.com/kailas-cloud/laudos/internal/metrics"
)

// Service ranks stored reports by lexical similarity to a query.
type Service struct {
	provider     CandidateProvider
	defaultLimit int
}

// Option configures the search service.
type Option func(*Service)

// WithDefaultLimit overrides the result count used when a request carries no positive limit.
func WithDefaultLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// New creates a search service.
func New(provider CandidateProvider, opts ...Option) *Service {
	s := &Service{provider: provider, defaultLimit: request.DefaultLimit}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search validates the request, fetches candidates for the exam and returns at most limit
// reports ordered by descending score. Equal scores keep the provider's newest-first order.
// An empty candidate list yields an empty, non-nil result.
func (s *Service) Search(ctx context.Context, query, exam string, limit int) ([]result.Result, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	req, err := request.New(query, exam, limit)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	ctx = logger.With(ctx, zap.String("exam", req.Exam()))
	candidates, err := s.provider.Fetch(ctx, req.Exam())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	results := Rank(req.Query(), candidates, req.Limit())

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	metrics.SearchCandidates.Observe(float64(len(candidates)))
	metrics.SearchResults.Observe(float64(len(results)))

	logger.FromContext(ctx).Debug("Search completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
		zap.Int("limit", req.Limit()),
	)

	return results, nil
}

// Rank scores candidates against query and returns the top limit entries.
// Candidates without report text are skipped. The sort is stable, so ties stay in input order.
func Rank(query string, candidates []report.Report, limit int) []result.Result {
	q := lexical.Tokenize(query)

	scored := make([]result.Result, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasText() {
			continue
		}
		score := lexical.Jaccard(q, lexical.Tokenize(c.ScoringText()))
		scored = append(scored, result.New(c, score))
	}

	slices.SortStableFunc(scored, func(a, b result.Result) int {
		return cmp.Compare(b.Score(), a.Score())
	})

	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
