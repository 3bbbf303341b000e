package report

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/kailas-cloud/laudos/internal/domain"
	domreport "github.com/kailas-cloud/laudos/internal/domain/report"
)

func newTestPostgres(t *testing.T, capacity int) (*PostgresRepo, sqlmock.Sqlmock) {
	t.Helper()
	sdb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sdb.Close() })
	return NewPostgres(sdb, capacity), mock
}

var fetchColumns = []string{"id", "exam", "classification", "observation", "report_text", "created_at"}

func TestPostgresRepo_Fetch(t *testing.T) {
	repo, mock := newTestPostgres(t, 150)

	rows := sqlmock.NewRows(fetchColumns).
		AddRow("r2", "rx", "alterado", "revisar", "Derrame pleural", baseTime.Add(time.Hour)).
		AddRow("r1", "rx", nil, nil, nil, baseTime)
	mock.ExpectQuery(regexp.QuoteMeta(fetchQuery)).WithArgs("rx", 150).WillReturnRows(rows)

	got, err := repo.Fetch(context.Background(), "rx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(ids(got), []string{"r2", "r1"}) {
		t.Fatalf("unexpected order: %v", ids(got))
	}
	if obs, ok := got[0].Observation(); !ok || obs != "revisar" {
		t.Errorf("Observation() = %q, %v", obs, ok)
	}
	if got[1].HasText() {
		t.Error("expected NULL report_text to be absent")
	}
	if _, ok := got[1].Classification(); ok {
		t.Error("expected NULL classification to be absent")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresRepo_FetchError(t *testing.T) {
	repo, mock := newTestPostgres(t, 150)
	mock.ExpectQuery(regexp.QuoteMeta(fetchQuery)).WithArgs("rx", 150).WillReturnError(errors.New("connection refused"))

	_, err := repo.Fetch(context.Background(), "rx")
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestPostgresRepo_PutMany(t *testing.T) {
	repo, mock := newTestPostgres(t, 150)
	r := mustReport("r1", "rx", "Pulmões limpos", nil, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(previousExamsQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam"}))
	mock.ExpectPrepare(regexp.QuoteMeta(upsertQuery)).
		ExpectExec().
		WithArgs("r1", "rx", "normal", nil, "Pulmões limpos", baseTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	moved, err := repo.PutMany(context.Background(), []domreport.Report{r})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(moved) != 0 {
		t.Errorf("expected no moved exams, got %v", moved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresRepo_PutManyRollsBack(t *testing.T) {
	repo, mock := newTestPostgres(t, 150)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(previousExamsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam"}))
	mock.ExpectPrepare(regexp.QuoteMeta(upsertQuery)).
		ExpectExec().
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	_, err := repo.PutMany(context.Background(), []domreport.Report{mustReport("r1", "rx", "texto", nil, 0)})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresRepo_PutManyReportsMovedExams(t *testing.T) {
	repo, mock := newTestPostgres(t, 150)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(previousExamsQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam"}).AddRow("r1", "rx").AddRow("r2", "tc"))
	prep := mock.ExpectPrepare(regexp.QuoteMeta(upsertQuery))
	prep.ExpectExec().WithArgs("r1", "tc", "normal", nil, "texto", baseTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("r2", "tc", "normal", nil, "texto", baseTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	moved, err := repo.PutMany(context.Background(), []domreport.Report{
		mustReport("r1", "tc", "texto", nil, 0),
		mustReport("r2", "tc", "texto", nil, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(moved, []string{"rx"}) {
		t.Errorf("expected moved from rx, got %v", moved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
