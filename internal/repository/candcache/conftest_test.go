package candcache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/db"
	domreport "github.com/kailas-cloud/laudos/internal/domain/report"
)

type mockProvider struct {
	reports []domreport.Report
	err     error
	calls   int
}

func (m *mockProvider) Fetch(_ context.Context, _ string) ([]domreport.Report, error) {
	m.calls++
	return m.reports, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data    map[string][]byte
	ttl     time.Duration
	getErr  error
	setErr  error
	deleted []string
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttl = ttl
	return nil
}

func (m *mockKVStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	m.deleted = append(m.deleted, keys...)
	return nil
}

func newTestCache(inner *mockProvider) (*CachedProvider, *mockKVStore) {
	ms := &mockKVStore{data: map[string][]byte{}}
	return New(inner, ms, "laudos:", time.Minute, nil, zap.NewNop()), ms
}

func strPtr(s string) *string { return &s }

func testReports() []domreport.Report {
	t0 := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	return []domreport.Report{
		domreport.Reconstruct("r2", "rx", nil, strPtr("obs"), strPtr("derrame pleural"), t0.Add(time.Hour)),
		domreport.Reconstruct("r1", "rx", strPtr("normal"), nil, nil, t0),
	}
}
