package db

import (
	"context"
	"time"
)

// Store is the database facade combining all sub-interfaces.
// Consumers declare the narrow subset they need.
type Store interface {
	Pinger
	KVStore
	SortedSetStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// IndexedItem is a value stored under Key and listed in the sorted set Index
// under Member with Score. When Unindex is set, Member is removed from that
// sorted set in the same round-trip.
type IndexedItem struct {
	Key     string
	Value   []byte
	Index   string
	Member  string
	Score   float64
	Unindex string
}

// SortedSetStore provides ordered secondary indexes.
type SortedSetStore interface {
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	SetIndexedMulti(ctx context.Context, items []IndexedItem) error
}
