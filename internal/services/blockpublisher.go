package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type BlockNumberer interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// BlockPublisher polls the node's chain head and publishes every new block number.
// The last seen head backs the /health report.
type BlockPublisher struct {
	client   BlockNumberer
	interval time.Duration

	out chan uint64
	err chan error

	mu       sync.RWMutex
	last     uint64
	lastSeen time.Time
}

func NewBlockPublisher(client BlockNumberer, interval time.Duration) *BlockPublisher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &BlockPublisher{
		client:   client,
		interval: interval,
		out:      make(chan uint64, 20),
		err:      make(chan error, 1),
	}
}

func (bp *BlockPublisher) Start(ctx context.Context) error {
	defer close(bp.out)
	defer close(bp.err)

	ticker := time.NewTicker(bp.interval)
	defer ticker.Stop()

	for {
		if err := bp.poll(ctx); err != nil {
			select {
			case bp.err <- err:
			case <-ctx.Done():
				return ctx.Err()
			default:
				// a consumer that is behind only misses repeated errors
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (bp *BlockPublisher) Out() <-chan uint64 { return bp.out }

func (bp *BlockPublisher) Err() <-chan error { return bp.err }

// Latest returns the highest block number seen and when it was observed.
// The zero time means no poll has succeeded yet.
func (bp *BlockPublisher) Latest() (uint64, time.Time) {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	return bp.last, bp.lastSeen
}

func (bp *BlockPublisher) poll(ctx context.Context) error {
	current, err := bp.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("error getting latest block number: %w", err)
	}

	bp.mu.Lock()
	prev, seen := bp.last, !bp.lastSeen.IsZero()
	if current > bp.last || !seen {
		bp.last = current
	}
	bp.lastSeen = time.Now()
	bp.mu.Unlock()

	if seen && current <= prev {
		return nil
	}
	select {
	case bp.out <- current:
	case <-ctx.Done():
		return ctx.Err()
	default:
		// out is full; Latest still reflects the head
	}
	return nil
}
