package report

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kailas-cloud/laudos/internal/domain"
	domreport "github.com/kailas-cloud/laudos/internal/domain/report"
)

var (
	bucketExams = []byte("exams")
	bucketIDs   = []byte("ids")
)

// BoltRepo keeps reports in an embedded bbolt file. Each exam has a nested
// bucket keyed by big-endian creation time followed by the report ID, so a
// reverse cursor walk yields newest first.
type BoltRepo struct {
	db  *bbolt.DB
	cap int
}

// OpenBolt opens (creating if needed) the bolt file at path.
func OpenBolt(path string, capacity int) (*BoltRepo, error) {
	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketExams, bucketIDs} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return &BoltRepo{db: bdb, cap: capacity}, nil
}

// Close releases the file lock.
func (r *BoltRepo) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close bolt: %w", err)
	}
	return nil
}

// Fetch returns up to cap reports of the exam, newest first.
func (r *BoltRepo) Fetch(ctx context.Context, exam string) ([]domreport.Report, error) {
	out := []domreport.Report{}
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketExams).Bucket([]byte(exam))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(out) < r.cap; k, v = c.Prev() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rep, err := decode(v)
			if err != nil {
				return fmt.Errorf("exam %s: %w", exam, err)
			}
			out = append(out, rep)
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewProviderError(0, "", fmt.Errorf("bolt fetch: %w", err))
	}
	return out, nil
}

// PutMany upserts reports in one transaction. A report re-imported with a
// different exam or creation time moves to its new position; the exams left
// behind are returned.
func (r *BoltRepo) PutMany(_ context.Context, reports []domreport.Report) ([]string, error) {
	var moved []string
	err := r.db.Update(func(tx *bbolt.Tx) error {
		exams := tx.Bucket(bucketExams)
		ids := tx.Bucket(bucketIDs)

		for i := range reports {
			rep := &reports[i]
			prev, err := removeExisting(exams, ids, rep.ID())
			if err != nil {
				return err
			}
			if prev != "" && prev != rep.Exam() {
				moved = append(moved, prev)
			}

			data, err := encode(rep)
			if err != nil {
				return err
			}
			b, err := exams.CreateBucketIfNotExists([]byte(rep.Exam()))
			if err != nil {
				return fmt.Errorf("create exam bucket %s: %w", rep.Exam(), err)
			}
			key := recencyKey(rep.CreatedAt(), rep.ID())
			if err := b.Put(key, data); err != nil {
				return fmt.Errorf("put %s: %w", rep.ID(), err)
			}
			if err := ids.Put([]byte(rep.ID()), locator(rep.Exam(), key)); err != nil {
				return fmt.Errorf("index %s: %w", rep.ID(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt put: %w", err)
	}
	return moved, nil
}

// Ping checks that the file is open and readable.
func (r *BoltRepo) Ping(_ context.Context) error {
	if err := r.db.View(func(*bbolt.Tx) error { return nil }); err != nil {
		return fmt.Errorf("bolt: %w", err)
	}
	return nil
}

// removeExisting deletes the stored copy of id and returns its exam, or "" when absent.
func removeExisting(exams, ids *bbolt.Bucket, id string) (string, error) {
	loc := ids.Get([]byte(id))
	if loc == nil {
		return "", nil
	}
	exam, key := splitLocator(loc)
	if b := exams.Bucket(exam); b != nil {
		if err := b.Delete(key); err != nil {
			return "", fmt.Errorf("delete previous %s: %w", id, err)
		}
	}
	return string(exam), nil
}

func recencyKey(createdAt time.Time, id string) []byte {
	key := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(key, uint64(createdAt.UnixNano())) //nolint:gosec // pre-1970 reports are not expected
	copy(key[8:], id)
	return key
}

// locator is exam length (2 bytes) || exam || recency key.
func locator(exam string, key []byte) []byte {
	out := make([]byte, 2+len(exam)+len(key))
	binary.BigEndian.PutUint16(out, uint16(len(exam))) //nolint:gosec // exam names are short
	copy(out[2:], exam)
	copy(out[2+len(exam):], key)
	return out
}

func splitLocator(loc []byte) (exam, key []byte) {
	n := int(binary.BigEndian.Uint16(loc))
	return loc[2 : 2+n], loc[2+n:]
}
