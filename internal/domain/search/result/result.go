package result

import "github.com/kailas-cloud/laudos/internal/domain/report"

// Result is a report scored against a query.
type Result struct {
	report report.Report
	score  float64
}

// New creates a scored result.
func New(r report.Report, score float64) Result {
	return Result{report: r, score: score}
}

// Report returns the scored report.
func (r *Result) Report() report.Report { return r.report }

// ID returns the report identifier.
func (r *Result) ID() string { return r.report.ID() }

// Score returns the Jaccard similarity in [0, 1].
func (r *Result) Score() float64 { return r.score }
