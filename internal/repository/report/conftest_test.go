package report

import (
	"context"
	"slices"
	"time"

	"github.com/kailas-cloud/laudos/internal/db"
	domreport "github.com/kailas-cloud/laudos/internal/domain/report"
)

// mockStore implements redisStore over in-memory maps.
type mockStore struct {
	values  map[string][]byte
	zsets   map[string][]string // members, highest score first
	scores  map[string]float64  // member scores of zsets maintained by SetIndexedMulti
	pingErr error
	zErr    error
	mgetErr error
	setErr  error
	items   []db.IndexedItem
}

func newMockStore() *mockStore {
	return &mockStore{values: map[string][]byte{}, zsets: map[string][]string{}, scores: map[string]float64{}}
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockStore) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	if m.zErr != nil {
		return nil, m.zErr
	}
	members := m.zsets[key]
	if start >= int64(len(members)) {
		return nil, nil
	}
	end := min(stop+1, int64(len(members)))
	return members[start:end], nil
}

func (m *mockStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	if m.mgetErr != nil {
		return nil, m.mgetErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.values[k]
	}
	return out, nil
}

func (m *mockStore) SetIndexedMulti(_ context.Context, items []db.IndexedItem) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.items = append(m.items, items...)
	for _, it := range items {
		m.values[it.Key] = it.Value
		if it.Unindex != "" {
			m.zsets[it.Unindex] = slices.DeleteFunc(m.zsets[it.Unindex], func(s string) bool { return s == it.Member })
		}
		members := slices.DeleteFunc(m.zsets[it.Index], func(s string) bool { return s == it.Member })
		m.scores[it.Index+"\x00"+it.Member] = it.Score
		pos := len(members)
		for i, other := range members {
			if m.scores[it.Index+"\x00"+other] < it.Score {
				pos = i
				break
			}
		}
		m.zsets[it.Index] = slices.Insert(members, pos, it.Member)
	}
	return nil
}

func strPtr(s string) *string { return &s }

var baseTime = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func mustReport(id, exam, text string, obs *string, minutes int) domreport.Report {
	r, err := domreport.New(id, exam, strPtr("normal"), obs, text, baseTime.Add(time.Duration(minutes)*time.Minute))
	if err != nil {
		panic(err)
	}
	return r
}

func ids(reports []domreport.Report) []string {
	out := make([]string, len(reports))
	for i := range reports {
		out[i] = reports[i].ID()
	}
	return out
}
