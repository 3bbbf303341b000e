package laudos

import "time"

// Report is a recorded radiology report. Nil optional fields are absent, not empty.
type Report struct {
	ID             string
	Exam           string
	Classification *string
	Observation    *string
	Text           string
	CreatedAt      time.Time // zero means "now" on Import
}

// Result is a report scored against a query; Score is in [0, 1].
type Result struct {
	Report
	Score float64
}

// ImportResult is the outcome of one report in an Import call.
type ImportResult struct {
	ID  string
	OK  bool
	Err error
}
