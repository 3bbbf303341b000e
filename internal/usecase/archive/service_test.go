package archive

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/kailas-cloud/laudos/internal/domain"
	dombatch "github.com/kailas-cloud/laudos/internal/domain/batch"
	"github.com/kailas-cloud/laudos/internal/domain/report"
	"github.com/kailas-cloud/laudos/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockWriter struct {
	stored []report.Report
	moved  []string
	calls  int
	err    error
}

func (m *mockWriter) PutMany(_ context.Context, reports []report.Report) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.stored = append(m.stored, reports...)
	return m.moved, nil
}

type mockInvalidator struct {
	exams []string
	err   error
}

func (m *mockInvalidator) Invalidate(_ context.Context, exams ...string) error {
	m.exams = append(m.exams, exams...)
	return m.err
}

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newService(w Writer, c Invalidator) *Service {
	s := New(w, c)
	s.now = func() time.Time { return fixedNow }
	return s
}

func draft(id, exam, text string) Draft {
	return Draft{ID: id, Exam: exam, Text: text}
}

// --- Tests ---

func TestImport_AllValid(t *testing.T) {
	w := &mockWriter{}
	c := &mockInvalidator{}
	svc := newService(w, c)

	results := svc.Import(context.Background(), []Draft{
		draft("a", "raio-x", "pneumonia"),
		draft("b", "raio-x", "derrame"),
		draft("c", "tc", "nódulo"),
	})

	for _, r := range results {
		if r.Status() != dombatch.StatusOK {
			t.Errorf("%s: expected ok, got %v", r.ID(), r.Err())
		}
	}
	if w.calls != 1 || len(w.stored) != 3 {
		t.Fatalf("expected one write of 3 reports, got %d calls / %d reports", w.calls, len(w.stored))
	}
	if !w.stored[0].CreatedAt().Equal(fixedNow) {
		t.Errorf("expected missing timestamp to default to now, got %v", w.stored[0].CreatedAt())
	}
	if len(c.exams) != 2 || c.exams[0] != "raio-x" || c.exams[1] != "tc" {
		t.Errorf("expected invalidation of [raio-x tc], got %v", c.exams)
	}
}

func TestImport_InvalidatesExamsReportsLeft(t *testing.T) {
	w := &mockWriter{moved: []string{"raio-x", "raio-x", "tc"}}
	c := &mockInvalidator{}
	svc := newService(w, c)

	svc.Import(context.Background(), []Draft{
		draft("a", "tc", "nódulo"),
		draft("b", "tc", "derrame"),
		draft("c", "rm", "hérnia"),
	})

	if !slices.Equal(c.exams, []string{"tc", "rm", "raio-x"}) {
		t.Errorf("expected invalidation of [tc rm raio-x], got %v", c.exams)
	}
}

func TestImport_PerItemValidation(t *testing.T) {
	w := &mockWriter{}
	svc := newService(w, nil)

	results := svc.Import(context.Background(), []Draft{
		draft("a", "raio-x", "pneumonia"),
		draft("", "raio-x", "sem id"),
		draft("c", "", "sem exame"),
		draft("d", "raio-x", ""),
		draft("a", "raio-x", "duplicado"),
	})

	want := []dombatch.ItemStatus{
		dombatch.StatusOK, dombatch.StatusError, dombatch.StatusError, dombatch.StatusError, dombatch.StatusError,
	}
	for i, r := range results {
		if r.Status() != want[i] {
			t.Errorf("item %d: expected %s, got %s (%v)", i, want[i], r.Status(), r.Err())
		}
		if r.Status() == dombatch.StatusError && !errors.Is(r.Err(), domain.ErrValidation) {
			t.Errorf("item %d: expected ErrValidation, got %v", i, r.Err())
		}
	}
	if len(w.stored) != 1 {
		t.Errorf("expected only the valid report stored, got %d", len(w.stored))
	}
}

func TestImport_BatchTooLarge(t *testing.T) {
	w := &mockWriter{}
	svc := newService(w, nil).WithMaxBatchSize(2)

	results := svc.Import(context.Background(), []Draft{
		draft("a", "x", "t"), draft("b", "x", "t"), draft("c", "x", "t"),
	})
	if sum := dombatch.Summarize(results); sum.Failed != 3 {
		t.Errorf("expected all items to fail, got %+v", sum)
	}
	if w.calls != 0 {
		t.Error("writer must not be called for oversized batches")
	}
}

func TestImport_WriterErrorFailsValidItems(t *testing.T) {
	w := &mockWriter{err: errors.New("disk full")}
	c := &mockInvalidator{}
	svc := newService(w, c)

	results := svc.Import(context.Background(), []Draft{
		draft("a", "x", "texto"), draft("", "x", "texto"),
	})
	if sum := dombatch.Summarize(results); sum.OK != 0 || sum.Failed != 2 {
		t.Errorf("expected 0 ok / 2 failed, got %+v", sum)
	}
	if len(c.exams) != 0 {
		t.Error("cache must not be invalidated after a failed write")
	}
}

func TestImport_InvalidationFailureIsNotFatal(t *testing.T) {
	svc := newService(&mockWriter{}, &mockInvalidator{err: errors.New("redis down")})

	results := svc.Import(context.Background(), []Draft{draft("a", "x", "texto")})
	if results[0].Status() != dombatch.StatusOK {
		t.Errorf("expected ok despite cache failure, got %v", results[0].Err())
	}
}
