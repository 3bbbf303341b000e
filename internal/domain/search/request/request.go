package request

import (
	"fmt"

	"github.com/kailas-cloud/laudos/internal/domain"
)

// DefaultLimit applies when the caller omits limit or sends a non-positive one.
const DefaultLimit = 5

// Request is a validated similarity search.
type Request struct {
	query string
	exam  string
	limit int
}

// New validates and normalizes search parameters.
// query and exam are required; limit <= 0 becomes DefaultLimit. Neither the query length
// nor the limit has an upper bound.
func New(query, exam string, limit int) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	if exam == "" {
		return Request{}, fmt.Errorf("exam is required: %w", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Request{query: query, exam: exam, limit: limit}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Exam returns the exam type used as the exact-match candidate filter.
func (r *Request) Exam() string { return r.exam }

// Limit returns the maximum number of results to return.
func (r *Request) Limit() int { return r.limit }
