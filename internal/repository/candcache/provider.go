package candcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/db"
	domreport "github.com/kailas-cloud/laudos/internal/domain/report"
)

// provider is the decorated candidate source.
type provider interface {
	Fetch(ctx context.Context, exam string) ([]domreport.Report, error)
}

// store is the consumer interface for the candidate cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// CachedProvider caches candidate lists per exam for a short TTL.
// Cache failures degrade to a direct fetch; provider failures are never cached.
type CachedProvider struct {
	inner      provider
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner provider,
	s store,
	keyPrefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedProvider {
	return &CachedProvider{
		inner:      inner,
		store:      s,
		prefix:     keyPrefix + "candidates:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Fetch returns the cached candidate list or fetches and caches it.
func (c *CachedProvider) Fetch(ctx context.Context, exam string) ([]domreport.Report, error) {
	key := c.cacheKey(exam)

	if reports, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return reports, nil
	}

	c.incCache("miss")

	reports, err := c.inner.Fetch(ctx, exam)
	if err != nil {
		return nil, err //nolint:wrapcheck // provider errors carry their own status
	}

	c.putToCache(ctx, key, reports)
	return reports, nil
}

// Invalidate drops cached lists for the given exams.
func (c *CachedProvider) Invalidate(ctx context.Context, exams ...string) error {
	if len(exams) == 0 {
		return nil
	}
	keys := make([]string, len(exams))
	for i, exam := range exams {
		keys[i] = c.cacheKey(exam)
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate candidates: %w", err)
	}
	return nil
}

// Ping delegates to the inner provider when it supports health checks.
func (c *CachedProvider) Ping(ctx context.Context) error {
	if p, ok := c.inner.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx) //nolint:wrapcheck // delegating
	}
	return nil
}

func (c *CachedProvider) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedProvider) cacheKey(exam string) string {
	h := sha256.Sum256([]byte(exam))
	return c.prefix + hex.EncodeToString(h[:])
}

func (c *CachedProvider) getFromCache(ctx context.Context, key string) ([]domreport.Report, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached candidates", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var dtos []cachedReport
	if err := json.Unmarshal(data, &dtos); err != nil {
		c.logger.Warn("Failed to parse cached candidates", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	reports := make([]domreport.Report, len(dtos))
	for i, d := range dtos {
		reports[i] = domreport.Reconstruct(d.ID, d.Exam, d.Classification, d.Observation, d.ReportText, d.CreatedAt)
	}
	return reports, true
}

func (c *CachedProvider) putToCache(ctx context.Context, key string, reports []domreport.Report) {
	dtos := make([]cachedReport, len(reports))
	for i := range reports {
		dtos[i] = toCached(&reports[i])
	}
	data, err := json.Marshal(dtos)
	if err != nil {
		c.logger.Warn("Failed to encode candidates", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache candidates", zap.String("key", key), zap.Error(err))
	}
}

type cachedReport struct {
	ID             string    `json:"id"`
	Exam           string    `json:"exam"`
	Classification *string   `json:"classification,omitempty"`
	Observation    *string   `json:"observation,omitempty"`
	ReportText     *string   `json:"report_text,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toCached(r *domreport.Report) cachedReport {
	out := cachedReport{ID: r.ID(), Exam: r.Exam(), CreatedAt: r.CreatedAt()}
	if v, ok := r.Classification(); ok {
		out.Classification = &v
	}
	if v, ok := r.Observation(); ok {
		out.Observation = &v
	}
	if v, ok := r.Text(); ok {
		out.ReportText = &v
	}
	return out
}
