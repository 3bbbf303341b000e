package report

import (
	"encoding/json"
	"fmt"
	"time"

	domreport "github.com/kailas-cloud/laudos/internal/domain/report"
)

// reportDTO is the stored JSON shape, matching the laudos table columns.
type reportDTO struct {
	ID             string    `json:"id"`
	Exam           string    `json:"exam"`
	Classification *string   `json:"classification,omitempty"`
	Observation    *string   `json:"observation,omitempty"`
	ReportText     *string   `json:"report_text,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func fromDomain(r *domreport.Report) reportDTO {
	dto := reportDTO{ID: r.ID(), Exam: r.Exam(), CreatedAt: r.CreatedAt().UTC()}
	if v, ok := r.Classification(); ok {
		dto.Classification = &v
	}
	if v, ok := r.Observation(); ok {
		dto.Observation = &v
	}
	if v, ok := r.Text(); ok {
		dto.ReportText = &v
	}
	return dto
}

func (d reportDTO) toDomain() domreport.Report {
	return domreport.Reconstruct(d.ID, d.Exam, d.Classification, d.Observation, d.ReportText, d.CreatedAt)
}

func encode(r *domreport.Report) ([]byte, error) {
	data, err := json.Marshal(fromDomain(r))
	if err != nil {
		return nil, fmt.Errorf("marshal report %s: %w", r.ID(), err)
	}
	return data, nil
}

func decode(data []byte) (domreport.Report, error) {
	var dto reportDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domreport.Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return dto.toDomain(), nil
}
