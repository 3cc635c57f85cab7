package stores

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketIdempotency = []byte("idempotency")

	ErrRecordNotFound = errors.New("idempotency record not found")
)

// IdempotencyRecord is a stored HTTP response replayed for a repeated Idempotency-Key.
type IdempotencyRecord struct {
	StatusCode int       `json:"status_code"`
	Response   []byte    `json:"response"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Save(ctx context.Context, key string, record IdempotencyRecord) error
	Close() error
}

type LocalIdempotencyStore struct {
	db  *bolt.DB
	now func() time.Time
}

func NewLocalIdempotencyStore(path string) (*LocalIdempotencyStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketIdempotency)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &LocalIdempotencyStore{db: db, now: time.Now}, nil
}

// Get returns ErrRecordNotFound for unknown and expired keys. Expired entries are removed.
func (s *LocalIdempotencyStore) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	var out IdempotencyRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketIdempotency).Get([]byte(key))
		if v == nil {
			return ErrRecordNotFound
		}
		return json.Unmarshal(v, &out)
	})
	if err != nil {
		return nil, err
	}

	if !out.ExpiresAt.IsZero() && s.now().After(out.ExpiresAt) {
		if err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketIdempotency).Delete([]byte(key))
		}); err != nil {
			return nil, err
		}
		return nil, ErrRecordNotFound
	}
	return &out, nil
}

func (s *LocalIdempotencyStore) Save(ctx context.Context, key string, record IdempotencyRecord) error {
	blob, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIdempotency).Put([]byte(key), blob)
	})
}

// Purge deletes every expired or unreadable record and returns how many were removed.
func (s *LocalIdempotencyStore) Purge(ctx context.Context) (int, error) {
	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketIdempotency)
		var expired [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var rec IdempotencyRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				// unreadable records can never be replayed
				expired = append(expired, append([]byte(nil), k...))
				continue
			}
			if !rec.ExpiresAt.IsZero() && now.After(rec.ExpiresAt) {
				expired = append(expired, append([]byte(nil), k...))
			}
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

func (s *LocalIdempotencyStore) Close() error {
	return s.db.Close()
}
