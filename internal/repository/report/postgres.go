package report

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/kailas-cloud/laudos/internal/domain"
	domreport "github.com/kailas-cloud/laudos/internal/domain/report"
)

const fetchQuery = `SELECT id, exam, classification, observation, report_text, created_at
FROM laudos
WHERE exam = $1
ORDER BY created_at DESC
LIMIT $2`

const previousExamsQuery = `SELECT id, exam FROM laudos WHERE id = ANY($1) FOR UPDATE`

const upsertQuery = `INSERT INTO laudos (id, exam, classification, observation, report_text, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    exam = EXCLUDED.exam,
    classification = EXCLUDED.classification,
    observation = EXCLUDED.observation,
    report_text = EXCLUDED.report_text,
    created_at = EXCLUDED.created_at`

// PostgresRepo reads and writes the laudos table directly.
type PostgresRepo struct {
	db  *sql.DB
	cap int
}

// OpenPostgres connects with lib/pq.
func OpenPostgres(dsn string, maxOpenConns, capacity int) (*PostgresRepo, error) {
	sdb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sdb.SetMaxOpenConns(maxOpenConns)
	return NewPostgres(sdb, capacity), nil
}

// NewPostgres wraps an existing handle.
func NewPostgres(sdb *sql.DB, capacity int) *PostgresRepo {
	return &PostgresRepo{db: sdb, cap: capacity}
}

// Close closes the connection pool.
func (r *PostgresRepo) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}

// Fetch returns up to cap reports of the exam, newest first.
func (r *PostgresRepo) Fetch(ctx context.Context, exam string) ([]domreport.Report, error) {
	rows, err := r.db.QueryContext(ctx, fetchQuery, exam, r.cap)
	if err != nil {
		return nil, domain.NewProviderError(0, "", fmt.Errorf("query laudos: %w", err))
	}
	defer func() { _ = rows.Close() }()

	out := []domreport.Report{}
	for rows.Next() {
		var dto reportDTO
		var classification, observation, text sql.NullString
		if err := rows.Scan(&dto.ID, &dto.Exam, &classification, &observation, &text, &dto.CreatedAt); err != nil {
			return nil, domain.NewProviderError(0, "", fmt.Errorf("scan laudo: %w", err))
		}
		dto.Classification = nullable(classification)
		dto.Observation = nullable(observation)
		dto.ReportText = nullable(text)
		out = append(out, dto.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewProviderError(0, "", fmt.Errorf("iterate laudos: %w", err))
	}
	return out, nil
}

// PutMany upserts reports in one transaction. It returns the exams that
// re-imported reports moved out of.
func (r *PostgresRepo) PutMany(ctx context.Context, reports []domreport.Report) (_ []string, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	previous, err := previousExams(ctx, tx, reports)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return nil, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var moved []string
	for i := range reports {
		dto := fromDomain(&reports[i])
		if _, err = stmt.ExecContext(ctx,
			dto.ID, dto.Exam, dto.Classification, dto.Observation, dto.ReportText, dto.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("upsert %s: %w", dto.ID, err)
		}
		if old, ok := previous[dto.ID]; ok && old != dto.Exam {
			moved = append(moved, old)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return moved, nil
}

// previousExams locks the existing rows of the batch and maps id to exam.
func previousExams(ctx context.Context, tx *sql.Tx, reports []domreport.Report) (map[string]string, error) {
	ids := make([]string, len(reports))
	for i := range reports {
		ids[i] = reports[i].ID()
	}
	rows, err := tx.QueryContext(ctx, previousExamsQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load previous exams: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var id, exam string
		if err := rows.Scan(&id, &exam); err != nil {
			return nil, fmt.Errorf("scan previous exam: %w", err)
		}
		out[id] = exam
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load previous exams: %w", err)
	}
	return out, nil
}

// Ping checks connectivity.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

// DB exposes the handle for migrations.
func (r *PostgresRepo) DB() *sql.DB { return r.db }

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
