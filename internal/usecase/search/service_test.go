package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/laudos/internal/domain"
	"github.com/kailas-cloud/laudos/internal/domain/report"
)

// --- Mocks ---

type mockProvider struct {
	reports   []report.Report
	err       error
	called    bool
	lastExam  string
	callCount int
}

func (m *mockProvider) Fetch(_ context.Context, exam string) ([]report.Report, error) {
	m.called = true
	m.callCount++
	m.lastExam = exam
	return m.reports, m.err
}

func strPtr(s string) *string { return &s }

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// newest builds reports in provider order: index 0 is the most recent.
func newest(texts ...string) []report.Report {
	out := make([]report.Report, len(texts))
	for i, text := range texts {
		out[i] = report.Reconstruct(
			fmt.Sprintf("r-%d", i), "raio-x", nil, nil, strPtr(text),
			base.Add(-time.Duration(i)*time.Hour),
		)
	}
	return out
}

func ids(t *testing.T, svc *Service, query string, limit int) []string {
	t.Helper()
	results, err := svc.Search(context.Background(), query, "raio-x", limit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := make([]string, len(results))
	for i := range results {
		out[i] = results[i].ID()
	}
	return out
}

// --- Tests ---

func TestSearch_EmptyCandidates(t *testing.T) {
	prov := &mockProvider{}
	svc := New(prov)

	results, err := svc.Search(context.Background(), "pneumonia bilateral", "raio-x", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil results, got %v", results)
	}
	if prov.lastExam != "raio-x" {
		t.Errorf("provider called with exam %q", prov.lastExam)
	}
}

func TestSearch_AccentedOverlapScoresPositive(t *testing.T) {
	prov := &mockProvider{reports: newest("Nódulo pulmonar direito de 2cm")}
	svc := New(prov)

	results, err := svc.Search(context.Background(), "nodulo pulmonar direito", "raio-x", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Score() <= 0 {
		t.Errorf("expected positive score, got %f", results[0].Score())
	}
}

func TestSearch_TiesKeepRecencyOrder(t *testing.T) {
	// Neither candidate shares a token with the query: both score 0.
	prov := &mockProvider{reports: newest("Exame sem alterações", "Coração normal")}
	svc := New(prov)

	got := ids(t, svc, "pneumonia", 5)
	if len(got) != 2 || got[0] != "r-0" || got[1] != "r-1" {
		t.Errorf("expected [r-0 r-1], got %v", got)
	}
}

func TestSearch_StableTieBreakAmongEqualScores(t *testing.T) {
	prov := &mockProvider{reports: newest(
		"derrame pleural",             // 1/3
		"pneumonia com",               // 1/2
		"derrame pericárdico",         // 1/3
		"pneumonia em",                // 1/2
		"nada relacionado aqui mesmo", // 0
	)}
	svc := New(prov)

	got := ids(t, svc, "pneumonia derrame", 10)
	want := []string{"r-1", "r-3", "r-0", "r-2", "r-4"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSearch_DefaultLimit(t *testing.T) {
	texts := make([]string, 20)
	for i := range texts {
		texts[i] = "pneumonia bilateral"
	}
	svc := New(&mockProvider{reports: newest(texts...)})

	got := ids(t, svc, "pneumonia", 0)
	if len(got) != 5 {
		t.Fatalf("expected 5 results with omitted limit, got %d", len(got))
	}
	if got[0] != "r-0" || got[4] != "r-4" {
		t.Errorf("expected the five most recent in order, got %v", got)
	}
}

func TestSearch_ConfiguredDefaultLimit(t *testing.T) {
	svc := New(&mockProvider{reports: newest("pneumonia", "pneumonia", "pneumonia")}, WithDefaultLimit(2))

	if got := ids(t, svc, "pneumonia", -1); len(got) != 2 {
		t.Errorf("expected configured default of 2, got %d", len(got))
	}
	if got := ids(t, svc, "pneumonia", 3); len(got) != 3 {
		t.Errorf("expected explicit limit to win, got %d", len(got))
	}
}

func TestSearch_LimitBounds(t *testing.T) {
	svc := New(&mockProvider{reports: newest("pneumonia", "pneumonia", "pneumonia")})

	for _, limit := range []int{1, 2, 3, 4, 100} {
		got := ids(t, svc, "pneumonia", limit)
		if len(got) > limit {
			t.Errorf("limit %d: got %d results", limit, len(got))
		}
		if len(got) > 3 {
			t.Errorf("limit %d: got more results (%d) than candidates", limit, len(got))
		}
	}
}

func TestSearch_ValidationSkipsProvider(t *testing.T) {
	tests := []struct {
		name, query, exam string
	}{
		{"empty query", "", "raio-x"},
		{"empty exam", "pneumonia", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prov := &mockProvider{reports: newest("pneumonia")}
			svc := New(prov)

			_, err := svc.Search(context.Background(), tc.query, tc.exam, 5)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if prov.called {
				t.Error("provider must not be called on validation failure")
			}
		})
	}
}

func TestSearch_LongQueryReachesProvider(t *testing.T) {
	prov := &mockProvider{reports: newest("pneumonia lobar")}
	svc := New(prov)

	query := strings.Repeat("pneumonia ", 2000)
	results, err := svc.Search(context.Background(), query, "raio-x", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !prov.called || len(results) != 1 {
		t.Fatalf("expected provider call and 1 result, got called=%v results=%d", prov.called, len(results))
	}
}

func TestSearch_MissingObservationDoesNotAffectScore(t *testing.T) {
	without := report.Reconstruct("a", "tc", nil, nil, strPtr("opacidade difusa"), base)
	with := report.Reconstruct("b", "tc", nil, strPtr(""), strPtr("opacidade difusa"), base)

	results := Rank("opacidade", []report.Report{without, with}, 5)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Score() != results[1].Score() {
		t.Errorf("scores differ: %f vs %f", results[0].Score(), results[1].Score())
	}
	if results[0].Score() != 0.5 {
		t.Errorf("expected 0.5, got %f", results[0].Score())
	}
}

func TestSearch_ObservationContributesToScore(t *testing.T) {
	plain := report.Reconstruct("plain", "tc", nil, nil, strPtr("laudo normal"), base)
	withObs := report.Reconstruct("obs", "tc", nil, strPtr("pneumonia"), strPtr("laudo normal"),
		base.Add(-time.Hour))

	results := Rank("pneumonia", []report.Report{plain, withObs}, 5)
	if results[0].ID() != "obs" {
		t.Errorf("expected observation match first, got %s", results[0].ID())
	}
}

func TestSearch_MissingTextExcluded(t *testing.T) {
	noText := report.Reconstruct("no-text", "raio-x", nil, strPtr("pneumonia pneumonia"), nil, base)
	emptyText := report.Reconstruct("empty", "raio-x", nil, strPtr("pneumonia"), strPtr(""), base)
	ok := report.Reconstruct("ok", "raio-x", nil, nil, strPtr("sem alterações"), base.Add(-time.Hour))

	svc := New(&mockProvider{reports: []report.Report{noText, emptyText, ok}})
	got := ids(t, svc, "pneumonia", 10)
	if len(got) != 1 || got[0] != "ok" {
		t.Errorf("expected only [ok], got %v", got)
	}
}

func TestSearch_ProviderErrorPropagates(t *testing.T) {
	provErr := domain.NewProviderError(503, "service unavailable", nil)
	svc := New(&mockProvider{err: provErr})

	results, err := svc.Search(context.Background(), "pneumonia", "raio-x", 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if results != nil {
		t.Errorf("expected nil results on failure, got %v", results)
	}
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Status != 503 {
		t.Errorf("expected provider status 503 to survive, got %v", err)
	}
}

func TestSearch_NoRetryOnFailure(t *testing.T) {
	prov := &mockProvider{err: errors.New("boom")}
	svc := New(prov)

	_, _ = svc.Search(context.Background(), "pneumonia", "raio-x", 5)
	if prov.callCount != 1 {
		t.Errorf("expected exactly one provider call, got %d", prov.callCount)
	}
}

func TestRank_ScoresInRangeAndSorted(t *testing.T) {
	reports := newest("pneumonia", "pneumonia derrame", "derrame", "", "pneumonia derrame pleural")
	results := Rank("pneumonia derrame pleural", reports, 10)

	for i := range results {
		s := results[i].Score()
		if s < 0 || s > 1 {
			t.Errorf("score %f out of range", s)
		}
		if i > 0 && results[i-1].Score() < s {
			t.Errorf("results not sorted at %d", i)
		}
	}
	if results[0].Score() != 1 {
		t.Errorf("expected exact match to score 1, got %f", results[0].Score())
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	reports := newest("aaaa", "bbbb cccc", "cccc")
	before := []string{reports[0].ID(), reports[1].ID(), reports[2].ID()}

	_ = Rank("cccc", reports, 3)

	for i, r := range reports {
		if r.ID() != before[i] {
			t.Fatalf("input reordered at %d", i)
		}
	}
}
