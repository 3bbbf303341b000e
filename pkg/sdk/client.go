package laudos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/backend"
	"github.com/kailas-cloud/laudos/internal/config"
	dombatch "github.com/kailas-cloud/laudos/internal/domain/batch"
	"github.com/kailas-cloud/laudos/internal/domain/search/result"
	archiveuc "github.com/kailas-cloud/laudos/internal/usecase/archive"
	healthuc "github.com/kailas-cloud/laudos/internal/usecase/health"
	searchuc "github.com/kailas-cloud/laudos/internal/usecase/search"
)

// Internal interfaces, swapped in tests.
type searchUseCase interface {
	Search(ctx context.Context, query, exam string, limit int) ([]result.Result, error)
}

type importUseCase interface {
	Import(ctx context.Context, drafts []archiveuc.Draft) []dombatch.Result
}

// Client is the laudos SDK entry point.
type Client struct {
	searchSvc searchUseCase
	importSvc importUseCase // nil for read-only drivers
	healthSvc healthUseCase
	closeFn   func()
	obs       *observer
}

// New creates a Client and connects to the configured store.
// The provided context is used for the initial connection.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.provider.Driver == "" {
		return nil, errors.New("laudos: store required (use WithSupabase, WithPostgres, WithRedis, WithValkey or WithBolt)")
	}

	appCfg := config.Config{
		Provider: cfg.provider,
		Search:   config.SearchConfig{DefaultLimit: cfg.defaultLimit},
		Import:   config.ImportConfig{MaxBatchSize: cfg.maxBatchSize},
	}
	appCfg.ApplyDefaults()
	if err := appCfg.Validate(); err != nil {
		return nil, fmt.Errorf("laudos: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	be, err := backend.Open(ctx, &appCfg, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("laudos: %w", err)
	}

	c := &Client{
		searchSvc: searchuc.New(be.Provider, searchuc.WithDefaultLimit(appCfg.Search.DefaultLimit)),
		healthSvc: healthuc.New(be.Provider, nil),
		closeFn:   be.Close,
		obs:       obs,
	}
	if be.Writer != nil {
		c.importSvc = archiveuc.New(be.Writer, be.Invalidator()).WithMaxBatchSize(appCfg.Import.MaxBatchSize)
	}
	return c, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Search returns at most limit reports of the exam ordered by descending similarity
// to query. Equal scores keep newest-first order. limit <= 0 uses the default.
func (c *Client) Search(ctx context.Context, query, exam string, limit int) (out []Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, len(out), err) }()

	results, err := c.searchSvc.Search(ctx, query, exam, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out = make([]Result, len(results))
	for i := range results {
		out[i] = resultFromDomain(&results[i])
	}
	return out, nil
}

// Import validates and stores reports, reporting the outcome per report.
func (c *Client) Import(ctx context.Context, reports []Report) (_ []ImportResult, err error) {
	start := time.Now()
	accepted := 0
	defer func() { c.obs.observe("import", start, accepted, err) }()

	if c.importSvc == nil {
		return nil, ErrReadOnly
	}

	drafts := make([]archiveuc.Draft, len(reports))
	for i, r := range reports {
		drafts[i] = archiveuc.Draft{
			ID:             r.ID,
			Exam:           r.Exam,
			Classification: r.Classification,
			Observation:    r.Observation,
			Text:           r.Text,
			CreatedAt:      r.CreatedAt,
		}
	}

	results := c.importSvc.Import(ctx, drafts)
	out := make([]ImportResult, len(results))
	for i, res := range results {
		out[i] = ImportResult{ID: res.ID(), OK: res.Status() == dombatch.StatusOK, Err: res.Err()}
		if out[i].OK {
			accepted++
		}
	}
	return out, nil
}

func resultFromDomain(r *result.Result) Result {
	rep := r.Report()
	out := Result{
		Report: Report{
			ID:        rep.ID(),
			Exam:      rep.Exam(),
			CreatedAt: rep.CreatedAt(),
		},
		Score: r.Score(),
	}
	if v, ok := rep.Classification(); ok {
		out.Classification = &v
	}
	if v, ok := rep.Observation(); ok {
		out.Observation = &v
	}
	out.Text, _ = rep.Text()
	return out
}
