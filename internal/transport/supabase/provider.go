package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kailas-cloud/laudos/internal/domain"
	"github.com/kailas-cloud/laudos/internal/domain/report"
)

const (
	laudosColumns      = "id,exam,classification,observation,report_text,created_at"
	fetchFailedMessage = "Erro ao buscar laudos"
	maxErrorBody       = 64 << 10
)

// laudoRow is one row of the laudos table as PostgREST renders it.
type laudoRow struct {
	ID             flexID  `json:"id"`
	Exam           string  `json:"exam"`
	Classification *string `json:"classification"`
	Observation    *string `json:"observation"`
	ReportText     *string `json:"report_text"`
	CreatedAt      *string `json:"created_at"`
}

// Fetch returns up to cap reports of the exam, newest first.
func (c *Client) Fetch(ctx context.Context, exam string) ([]report.Report, error) {
	q := url.Values{}
	q.Set("select", laudosColumns)
	q.Set("exam", "eq."+exam)
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(c.cap))

	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/laudos?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.NewProviderError(0, "", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewProviderError(0, "", fmt.Errorf("request laudos: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := upstreamField(body, "message")
		if msg == "" {
			msg = fetchFailedMessage
		}
		return nil, domain.NewProviderError(resp.StatusCode, msg, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError(0, "", fmt.Errorf("read laudos: %w", err))
	}

	// anything but an array is treated as no candidates
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '[' {
		return []report.Report{}, nil
	}

	var rows []laudoRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, domain.NewProviderError(0, "", fmt.Errorf("decode laudos: %w", err))
	}

	out := make([]report.Report, 0, len(rows))
	for _, row := range rows {
		createdAt, err := parseTimestamp(row.CreatedAt)
		if err != nil {
			return nil, domain.NewProviderError(0, "", fmt.Errorf("laudo %s: %w", row.ID, err))
		}
		out = append(out, report.Reconstruct(
			string(row.ID), row.Exam, row.Classification, row.Observation, row.ReportText, createdAt,
		))
	}
	return out, nil
}

// flexID accepts both numeric and string primary keys.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*f = flexID(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexID(b)
	return nil
}

// PostgREST renders timestamptz with an offset and timestamp without one.
func parseTimestamp(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, *s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", *s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", *s, err)
	}
	return t, nil
}

// upstreamField extracts a string field from a JSON error object.
func upstreamField(body []byte, field string) string {
	var obj map[string]any
	if json.Unmarshal(body, &obj) != nil {
		return ""
	}
	if s, ok := obj[field].(string); ok {
		return s
	}
	return ""
}
