package archive

import (
	"context"

	"github.com/kailas-cloud/laudos/internal/domain/report"
)

// Writer persists reports in a single round trip. It returns the exams that
// re-imported reports were moved out of, possibly repeated.
type Writer interface {
	PutMany(ctx context.Context, reports []report.Report) ([]string, error)
}

// Invalidator drops cached candidate lists for the given exams.
type Invalidator interface {
	Invalidate(ctx context.Context, exams ...string) error
}
