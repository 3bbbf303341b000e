package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/laudos/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/laudos/internal/usecase/search"
)

type searchOpts struct {
	query  string
	exam   string
	limit  int
	asJSON bool
}

func newSearchCmd(a *app) *cobra.Command {
	o := &searchOpts{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Rank stored reports by similarity to a query",
		Long: `Fetch the most recent reports of an exam and rank them by lexical similarity.

Examples:
  laudosctl search -q "derrame pleural" -e "RX de tórax"
  laudosctl search -q "derrame pleural" -e "RX de tórax" -k 10 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			be, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer be.Close()

			svc := searchuc.New(be.Provider, searchuc.WithDefaultLimit(a.cfg.Search.DefaultLimit))
			results, err := svc.Search(cmd.Context(), o.query, o.exam, o.limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if o.asJSON {
				return writeResultsJSON(cmd.OutOrStdout(), results)
			}
			return writeResultsTable(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVarP(&o.query, "query", "q", "", "query text (required)")
	cmd.Flags().StringVarP(&o.exam, "exam", "e", "", "exam type (required)")
	cmd.Flags().IntVarP(&o.limit, "limit", "k", 0, "number of results (default from config)")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("exam")
	return cmd
}

type jsonResult struct {
	ID             string    `json:"id"`
	Exam           string    `json:"exam"`
	Classification *string   `json:"classification"`
	Observation    *string   `json:"observation"`
	ReportText     *string   `json:"report_text"`
	CreatedAt      time.Time `json:"created_at"`
	Score          float64   `json:"score"`
}

func writeResultsJSON(w io.Writer, results []result.Result) error {
	out := make([]jsonResult, len(results))
	for i := range results {
		rep := results[i].Report()
		out[i] = jsonResult{
			ID:        rep.ID(),
			Exam:      rep.Exam(),
			CreatedAt: rep.CreatedAt().UTC(),
			Score:     results[i].Score(),
		}
		if v, ok := rep.Classification(); ok {
			out[i].Classification = &v
		}
		if v, ok := rep.Observation(); ok {
			out[i].Observation = &v
		}
		if v, ok := rep.Text(); ok {
			out[i].ReportText = &v
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"results": out}); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

func writeResultsTable(w io.Writer, results []result.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No matching reports.")
		return err //nolint:wrapcheck // terminal output
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SCORE\tID\tCREATED\tREPORT")
	for i := range results {
		rep := results[i].Report()
		text, _ := rep.Text()
		_, _ = fmt.Fprintf(tw, "%.3f\t%s\t%s\t%s\n",
			results[i].Score(), rep.ID(), rep.CreatedAt().Format("2006-01-02"), preview(text, 60))
	}
	return tw.Flush() //nolint:wrapcheck // terminal output
}

// preview flattens whitespace and cuts text to n characters.
func preview(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n-1]) + "…"
}
