package search

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/domain"
	"github.com/kailas-cloud/laudos/internal/domain/report"
	"github.com/kailas-cloud/laudos/internal/metrics"
)

// InstrumentedProvider wraps a CandidateProvider with fetch metrics and logging.
// Errors pass through untouched so the provider's status reaches the caller.
type InstrumentedProvider struct {
	inner  CandidateProvider
	driver string
	logger *zap.Logger
}

// NewInstrumentedProvider wraps a provider; driver labels the metrics.
func NewInstrumentedProvider(inner CandidateProvider, driver string, logger *zap.Logger) *InstrumentedProvider {
	return &InstrumentedProvider{inner: inner, driver: driver, logger: logger}
}

// Fetch delegates to the inner provider and records duration and outcome.
func (p *InstrumentedProvider) Fetch(ctx context.Context, exam string) ([]report.Report, error) {
	start := time.Now()

	reports, err := p.inner.Fetch(ctx, exam)

	duration := time.Since(start)
	metrics.ProviderFetchDuration.WithLabelValues(p.driver).Observe(duration.Seconds())

	if err != nil {
		metrics.ProviderFetchTotal.WithLabelValues(p.driver, errorStatus(err)).Inc()
		p.logger.Error("Candidate fetch failed",
			zap.String("driver", p.driver),
			zap.String("exam", exam),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err //nolint:wrapcheck // provider status must reach the transport unchanged
	}

	metrics.ProviderFetchTotal.WithLabelValues(p.driver, "ok").Inc()
	p.logger.Debug("Candidates fetched",
		zap.String("driver", p.driver),
		zap.String("exam", exam),
		zap.Duration("duration", duration),
		zap.Int("count", len(reports)),
	)
	return reports, nil
}

// Ping delegates to the inner provider when it supports health checks.
func (p *InstrumentedProvider) Ping(ctx context.Context) error {
	if pinger, ok := p.inner.(Pinger); ok {
		return pinger.Ping(ctx) //nolint:wrapcheck // health status only
	}
	return nil
}

func errorStatus(err error) string {
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.Status > 0 {
		return strconv.Itoa(pe.Status)
	}
	return "error"
}
