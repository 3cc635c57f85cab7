package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func newTestIdempotencyStore(t *testing.T) *LocalIdempotencyStore {
	t.Helper()
	s, err := NewLocalIdempotencyStore(filepath.Join(t.TempDir(), "idem.db"))
	if err != nil {
		t.Fatalf("NewLocalIdempotencyStore error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIdempotencyStore_SaveAndGet(t *testing.T) {
	s := newTestIdempotencyStore(t)
	ctx := context.Background()

	in := IdempotencyRecord{
		StatusCode: 200,
		Response:   []byte(`{"hash":"0xabcd1234"}`),
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	if err := s.Save(ctx, "key-1", in); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	out, err := s.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if out.StatusCode != 200 || string(out.Response) != string(in.Response) {
		t.Fatalf("Get mismatch: %+v", out)
	}
}

func TestIdempotencyStore_Get_NotFound(t *testing.T) {
	s := newTestIdempotencyStore(t)
	if _, err := s.Get(context.Background(), "missing"); err != ErrRecordNotFound {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestIdempotencyStore_Get_ExpiredIsRemoved(t *testing.T) {
	s := newTestIdempotencyStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.Save(ctx, "old", IdempotencyRecord{StatusCode: 200, ExpiresAt: now.Add(-time.Second)}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := s.Get(ctx, "old"); err != ErrRecordNotFound {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}

	// a second read must not find a stale entry either
	if _, err := s.Get(ctx, "old"); err != ErrRecordNotFound {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestIdempotencyStore_Purge(t *testing.T) {
	s := newTestIdempotencyStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.Save(ctx, "a", IdempotencyRecord{ExpiresAt: now.Add(-time.Minute)})
	_ = s.Save(ctx, "b", IdempotencyRecord{ExpiresAt: now.Add(-time.Hour)})
	_ = s.Save(ctx, "c", IdempotencyRecord{ExpiresAt: now.Add(time.Hour)})

	n, err := s.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge error: %v", err)
	}
	if n != 2 {
		t.Fatalf("Purge removed %d, want 2", n)
	}
	if _, err := s.Get(ctx, "c"); err != nil {
		t.Fatalf("live record lost: %v", err)
	}
}

func TestIdempotencyStore_Purge_RemovesCorruptRecord(t *testing.T) {
	s := newTestIdempotencyStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIdempotency).Put([]byte("corrupt"), []byte("{not json"))
	}); err != nil {
		t.Fatalf("seed corrupt record: %v", err)
	}
	if err := s.Save(ctx, "old", IdempotencyRecord{StatusCode: 200, ExpiresAt: now.Add(-time.Minute)}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := s.Save(ctx, "fresh", IdempotencyRecord{StatusCode: 200, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	removed, err := s.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, err := s.Get(ctx, "fresh"); err != nil {
		t.Fatalf("fresh record lost: %v", err)
	}
}
