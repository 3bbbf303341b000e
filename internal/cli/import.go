package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	dombatch "github.com/kailas-cloud/laudos/internal/domain/batch"
	archiveuc "github.com/kailas-cloud/laudos/internal/usecase/archive"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 4 << 20

// record is one report in an import file.
type record struct {
	ID             string     `json:"id"`
	Exam           string     `json:"exam"`
	Classification *string    `json:"classification"`
	Observation    *string    `json:"observation"`
	ReportText     string     `json:"report_text"`
	CreatedAt      *time.Time `json:"created_at"`
}

func (r *record) draft() archiveuc.Draft {
	d := archiveuc.Draft{
		ID:             r.ID,
		Exam:           r.Exam,
		Classification: r.Classification,
		Observation:    r.Observation,
		Text:           r.ReportText,
	}
	if r.CreatedAt != nil {
		d.CreatedAt = *r.CreatedAt
	}
	return d
}

func newImportCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import reports from a JSON array or JSONL file",
		Long: `Validate and store reports in the configured writable driver
(postgres, redis, valkey or bolt). Each record needs id, exam and report_text;
classification, observation and created_at are optional.

Examples:
  laudosctl import reports.json
  laudosctl import reports.jsonl --driver redis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Writable() {
				return fmt.Errorf("driver %s is read-only", a.cfg.Provider.Driver)
			}

			drafts, err := readDrafts(args[0])
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				return errors.New("no reports found in " + args[0])
			}

			be, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer be.Close()

			svc := archiveuc.New(be.Writer, be.Invalidator()).WithMaxBatchSize(a.cfg.Import.MaxBatchSize)

			var bar *progressbar.ProgressBar
			if !quiet {
				bar = progressbar.NewOptions(len(drafts),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("Importing"),
					progressbar.OptionOnCompletion(func() {
						_, _ = fmt.Fprintln(cmd.ErrOrStderr())
					}),
				)
			}

			var failed []dombatch.Result
			total := dombatch.Summary{}
			for start := 0; start < len(drafts); start += a.cfg.Import.MaxBatchSize {
				end := min(start+a.cfg.Import.MaxBatchSize, len(drafts))
				results := svc.Import(cmd.Context(), drafts[start:end])

				sum := dombatch.Summarize(results)
				total.OK += sum.OK
				total.Failed += sum.Failed
				for _, r := range results {
					if r.Status() == dombatch.StatusError {
						failed = append(failed, r)
					}
				}
				if bar != nil {
					_ = bar.Add(end - start)
				}
			}

			out := cmd.OutOrStdout()
			for _, r := range failed {
				_, _ = fmt.Fprintf(out, "  %s: %v\n", r.ID(), r.Err())
			}
			_, _ = fmt.Fprintf(out, "Imported %d reports, %d failed.\n", total.OK, total.Failed)
			if total.Failed > 0 {
				return fmt.Errorf("%d reports failed to import", total.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "hide the progress bar")
	return cmd
}

func readDrafts(path string) ([]archiveuc.Draft, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return decodeDrafts(f)
}

// decodeDrafts accepts a JSON array of records or one record per line.
func decodeDrafts(r io.Reader) ([]archiveuc.Draft, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read import file: %w", err)
	}

	if first == '[' {
		var records []record
		if err := json.NewDecoder(br).Decode(&records); err != nil {
			return nil, fmt.Errorf("decode JSON array: %w", err)
		}
		drafts := make([]archiveuc.Draft, len(records))
		for i := range records {
			drafts[i] = records[i].draft()
		}
		return drafts, nil
	}

	var drafts []archiveuc.Draft
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		drafts = append(drafts, rec.draft())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read JSONL: %w", err)
	}
	return drafts, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err //nolint:wrapcheck // caller wraps
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err //nolint:wrapcheck // caller wraps
		}
		return b, nil
	}
}
