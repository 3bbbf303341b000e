package report

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/laudos/internal/domain"
)

// MaxTextSize is the maximum size of report_text or observation in bytes.
const MaxTextSize = 163840 // 160KB

// Report is a previously recorded radiology report (immutable value object).
// Optional fields are pointers: an absent field differs from an empty one.
type Report struct {
	id             string
	exam           string
	classification *string
	observation    *string
	text           *string
	createdAt      time.Time
}

// New validates and creates a Report for storage.
// ID and exam are required; report text is required for new records.
func New(id, exam string, classification, observation *string, text string, createdAt time.Time) (Report, error) {
	if id == "" {
		return Report{}, fmt.Errorf("report ID is required: %w", domain.ErrValidation)
	}
	if len(id) > 256 {
		return Report{}, fmt.Errorf("report ID too long (max 256): %w", domain.ErrValidation)
	}
	if exam == "" {
		return Report{}, fmt.Errorf("exam is required: %w", domain.ErrValidation)
	}
	if text == "" {
		return Report{}, fmt.Errorf("report_text is required: %w", domain.ErrValidation)
	}
	if len(text) > MaxTextSize {
		return Report{}, fmt.Errorf("report_text too large (max %d bytes): %w", MaxTextSize, domain.ErrValidation)
	}
	if observation != nil && len(*observation) > MaxTextSize {
		return Report{}, fmt.Errorf("observation too large (max %d bytes): %w", MaxTextSize, domain.ErrValidation)
	}
	if createdAt.IsZero() {
		return Report{}, fmt.Errorf("created_at is required: %w", domain.ErrValidation)
	}
	return Reconstruct(id, exam, classification, observation, &text, createdAt), nil
}

// Reconstruct creates a Report without validation (storage hydration).
func Reconstruct(
	id, exam string, classification, observation, text *string, createdAt time.Time,
) Report {
	return Report{
		id:             id,
		exam:           exam,
		classification: cloneString(classification),
		observation:    cloneString(observation),
		text:           cloneString(text),
		createdAt:      createdAt,
	}
}

// ID returns the report identifier.
func (r *Report) ID() string { return r.id }

// Exam returns the exam type (the category filter).
func (r *Report) Exam() string { return r.exam }

// Classification returns the optional categorical label.
func (r *Report) Classification() (string, bool) { return deref(r.classification) }

// Observation returns the optional free-text observation.
func (r *Report) Observation() (string, bool) { return deref(r.observation) }

// Text returns the report body.
func (r *Report) Text() (string, bool) { return deref(r.text) }

// HasText reports whether the report carries a non-empty body.
func (r *Report) HasText() bool { return r.text != nil && *r.text != "" }

// CreatedAt returns the creation timestamp.
func (r *Report) CreatedAt() time.Time { return r.createdAt }

// ScoringText returns the text compared against queries: report text, a space, and the
// observation (empty when absent).
func (r *Report) ScoringText() string {
	text, _ := r.Text()
	obs, _ := r.Observation()
	return text + " " + obs
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
