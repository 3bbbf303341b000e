package archive

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/domain"
	dombatch "github.com/kailas-cloud/laudos/internal/domain/batch"
	"github.com/kailas-cloud/laudos/internal/domain/report"
	"github.com/kailas-cloud/laudos/internal/logger"
	"github.com/kailas-cloud/laudos/internal/metrics"
)

// MaxBatchSize is the maximum number of items per import request.
const MaxBatchSize = 100

// Draft is an unvalidated report as submitted for import.
type Draft struct {
	ID             string
	Exam           string
	Classification *string
	Observation    *string
	Text           string
	CreatedAt      time.Time
}

// Service imports reports with per-item error reporting.
type Service struct {
	writer       Writer
	cache        Invalidator
	maxBatchSize int
	now          func() time.Time
}

// New creates an import service. cache can be nil.
func New(writer Writer, cache Invalidator) *Service {
	return &Service{writer: writer, cache: cache, maxBatchSize: MaxBatchSize, now: time.Now}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Import validates every draft and stores the valid ones together. Drafts without a
// timestamp are stamped with the current time.
func (s *Service) Import(ctx context.Context, drafts []Draft) []dombatch.Result {
	results := make([]dombatch.Result, len(drafts))

	if len(drafts) > s.maxBatchSize {
		for i := range drafts {
			results[i] = dombatch.NewError(
				drafts[i].ID,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrValidation),
			)
		}
		record(results)
		return results
	}

	now := s.now().UTC()
	valid := make([]report.Report, 0, len(drafts))
	validIdx := make([]int, 0, len(drafts))
	seen := make(map[string]int, len(drafts))

	for i := range drafts {
		d := &drafts[i]
		if prev, dup := seen[d.ID]; dup && d.ID != "" {
			results[i] = dombatch.NewError(d.ID,
				fmt.Errorf("duplicate id (item %d): %w", prev, domain.ErrValidation))
			continue
		}
		createdAt := d.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		r, err := report.New(d.ID, d.Exam, d.Classification, d.Observation, d.Text, createdAt)
		if err != nil {
			results[i] = dombatch.NewError(d.ID, err)
			continue
		}
		seen[d.ID] = i
		valid = append(valid, r)
		validIdx = append(validIdx, i)
	}

	if len(valid) > 0 {
		moved, err := s.writer.PutMany(ctx, valid)
		if err != nil {
			for _, i := range validIdx {
				results[i] = dombatch.NewError(drafts[i].ID, fmt.Errorf("store: %w", err))
			}
			record(results)
			return results
		}
		for _, i := range validIdx {
			results[i] = dombatch.NewOK(drafts[i].ID)
		}
		s.invalidate(ctx, valid, moved)
	}

	record(results)
	return results
}

// invalidate drops cached candidates of every exam the batch touched,
// including the exams moved reports left.
func (s *Service) invalidate(ctx context.Context, stored []report.Report, moved []string) {
	if s.cache == nil {
		return
	}
	exams := make([]string, 0, len(stored)+len(moved))
	seen := make(map[string]struct{}, len(stored)+len(moved))
	add := func(e string) {
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		exams = append(exams, e)
	}
	for i := range stored {
		add(stored[i].Exam())
	}
	for _, e := range moved {
		add(e)
	}
	if err := s.cache.Invalidate(ctx, exams...); err != nil {
		logger.FromContext(ctx).Warn("Candidate cache invalidation failed",
			zap.Strings("exams", exams), zap.Error(err))
	}
}

func record(results []dombatch.Result) {
	sum := dombatch.Summarize(results)
	if sum.OK > 0 {
		metrics.ImportItemsTotal.WithLabelValues(string(dombatch.StatusOK)).Add(float64(sum.OK))
	}
	if sum.Failed > 0 {
		metrics.ImportItemsTotal.WithLabelValues(string(dombatch.StatusError)).Add(float64(sum.Failed))
	}
}
