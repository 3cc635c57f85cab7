package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeHead struct {
	mu     sync.Mutex
	n      uint64
	err    error
	served int
}

func (f *fakeHead) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.served++
	return f.n, f.err
}

func (f *fakeHead) set(n uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n, f.err = n, err
}

func recvBlock(t *testing.T, bp *BlockPublisher) uint64 {
	t.Helper()
	select {
	case n := <-bp.Out():
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for block")
		return 0
	}
}

func TestBlockPublisher_PublishesNewHeads(t *testing.T) {
	head := &fakeHead{n: 10}
	bp := NewBlockPublisher(head, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bp.Start(ctx) }()

	if n := recvBlock(t, bp); n != 10 {
		t.Fatalf("first block = %d, want 10", n)
	}

	head.set(12, nil)
	if n := recvBlock(t, bp); n != 12 {
		t.Fatalf("next block = %d, want 12", n)
	}

	latest, seen := bp.Latest()
	if latest != 12 || seen.IsZero() {
		t.Fatalf("Latest = %d, %v", latest, seen)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Start returned %v, want context.Canceled", err)
	}
}

func TestBlockPublisher_ReportsErrors(t *testing.T) {
	head := &fakeHead{err: errors.New("node down")}
	bp := NewBlockPublisher(head, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bp.Start(ctx) }()

	select {
	case err := <-bp.Err():
		if err == nil {
			t.Fatal("expected error")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error")
	}

	if _, seen := bp.Latest(); !seen.IsZero() {
		t.Fatal("Latest must stay unset while polls fail")
	}
}

func TestBlockPublisher_SkipsStaleHeads(t *testing.T) {
	head := &fakeHead{n: 5}
	bp := NewBlockPublisher(head, time.Hour)

	if err := bp.poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	head.set(4, nil)
	if err := bp.poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if n := <-bp.Out(); n != 5 {
		t.Fatalf("block = %d, want 5", n)
	}
	select {
	case n := <-bp.Out():
		t.Fatalf("unexpected block %d", n)
	default:
	}
	if latest, _ := bp.Latest(); latest != 5 {
		t.Fatalf("Latest = %d, want 5", latest)
	}
}
