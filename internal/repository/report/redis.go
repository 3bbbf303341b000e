package report

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/laudos/internal/db"
	"github.com/kailas-cloud/laudos/internal/domain"
	domreport "github.com/kailas-cloud/laudos/internal/domain/report"
)

// redisStore is the consumer interface for the Redis repository (ISP).
type redisStore interface {
	Ping(ctx context.Context) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetIndexedMulti(ctx context.Context, items []db.IndexedItem) error
}

// RedisRepo keeps reports as JSON strings plus one sorted set per exam,
// scored by creation time in milliseconds.
type RedisRepo struct {
	store  redisStore
	prefix string
	cap    int
}

// NewRedis creates a Redis/Valkey report repository.
func NewRedis(s redisStore, keyPrefix string, capacity int) *RedisRepo {
	return &RedisRepo{store: s, prefix: keyPrefix, cap: capacity}
}

// Fetch returns up to cap reports of the exam, newest first.
func (r *RedisRepo) Fetch(ctx context.Context, exam string) ([]domreport.Report, error) {
	idx := r.examKey(exam)
	ids, err := r.store.ZRevRange(ctx, idx, 0, int64(r.cap)-1)
	if err != nil {
		return nil, domain.NewProviderError(0, "", fmt.Errorf("list %s: %w", idx, err))
	}
	if len(ids) == 0 {
		return []domreport.Report{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.reportKey(id)
	}
	values, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, domain.NewProviderError(0, "", fmt.Errorf("load reports: %w", err))
	}

	out := make([]domreport.Report, 0, len(values))
	for i, data := range values {
		// index entry outlived its report
		if data == nil {
			continue
		}
		rep, err := decode(data)
		if err != nil {
			return nil, domain.NewProviderError(0, "", fmt.Errorf("key %s: %w", keys[i], err))
		}
		// report was re-imported under another exam
		if rep.Exam() != exam {
			continue
		}
		out = append(out, rep)
	}
	return out, nil
}

// PutMany stores reports and indexes them by exam in one pipeline. It returns
// the exams that re-imported reports moved out of.
func (r *RedisRepo) PutMany(ctx context.Context, reports []domreport.Report) ([]string, error) {
	if len(reports) == 0 {
		return nil, nil
	}

	keys := make([]string, len(reports))
	for i := range reports {
		keys[i] = r.reportKey(reports[i].ID())
	}
	previous, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load previous reports: %w", err)
	}

	var moved []string
	items := make([]db.IndexedItem, len(reports))
	for i := range reports {
		data, err := encode(&reports[i])
		if err != nil {
			return nil, err
		}
		items[i] = db.IndexedItem{
			Key:    keys[i],
			Value:  data,
			Index:  r.examKey(reports[i].Exam()),
			Member: reports[i].ID(),
			Score:  float64(reports[i].CreatedAt().UnixMilli()),
		}
		if previous[i] == nil {
			continue
		}
		old, err := decode(previous[i])
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", keys[i], err)
		}
		if old.Exam() != reports[i].Exam() {
			items[i].Unindex = r.examKey(old.Exam())
			moved = append(moved, old.Exam())
		}
	}
	if err := r.store.SetIndexedMulti(ctx, items); err != nil {
		return nil, fmt.Errorf("store %d reports: %w", len(items), err)
	}
	return moved, nil
}

// Ping checks connectivity.
func (r *RedisRepo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (r *RedisRepo) reportKey(id string) string { return r.prefix + "report:" + id }
func (r *RedisRepo) examKey(exam string) string { return r.prefix + "exam:" + exam }
