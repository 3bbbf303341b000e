package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/laudos/internal/db"
)

// ZRevRange returns members from highest to lowest score, inclusive of both ranks.
func (s *Store) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	cmd := s.b().Zrevrange().Key(key).Start(start).Stop(stop).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRevRange, Err: err}
	}
	return members, nil
}

// SetIndexedMulti stores values and their sorted-set entries in a single
// DoMulti round-trip. Members moving between indexes are removed from the
// previous one in the same round-trip.
func (s *Store) SetIndexedMulti(ctx context.Context, items []db.IndexedItem) error {
	if len(items) == 0 {
		return nil
	}

	type origin struct {
		op  string
		key string
	}
	cmds := make([]rueidis.Completed, 0, len(items)*2)
	origins := make([]origin, 0, len(items)*2)
	for _, item := range items {
		if item.Unindex != "" && item.Unindex != item.Index {
			cmds = append(cmds, s.b().Zrem().Key(item.Unindex).Member(item.Member).Build())
			origins = append(origins, origin{db.OpZRem, item.Unindex})
		}
		cmds = append(cmds,
			s.b().Set().Key(item.Key).Value(rueidis.BinaryString(item.Value)).Build(),
			s.b().Zadd().Key(item.Index).ScoreMember().ScoreMember(item.Score, item.Member).Build(),
		)
		origins = append(origins, origin{db.OpSet, item.Key}, origin{db.OpZAdd, item.Index})
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: origins[i].op, Err: fmt.Errorf("key %s: %w", origins[i].key, err)}
		}
	}
	return nil
}
