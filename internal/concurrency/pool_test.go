package concurrency

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsOperationAndReturnsResult(t *testing.T) {
	p := NewPool(2)
	defer p.Shutdown()

	res, err := p.Submit(context.Background(), OpPersist, func(ctx context.Context) (any, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.(int) != 42 {
		t.Errorf("expected 42, got %v", res)
	}
}

func TestSubmitPropagatesError(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()

	boom := context.DeadlineExceeded
	_, err := p.Submit(context.Background(), OpMine, func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if err != boom {
		t.Errorf("expected propagated error, got %v", err)
	}
}

func TestSubmitRespectsCallerCancellation(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()

	block := make(chan struct{})
	defer close(block)
	p.SubmitAsync(OpPrune, func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Submit(ctx, OpPrune, func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded while queue is occupied, got %v", err)
	}
}

func TestPoolRunsAtMostConfiguredWorkers(t *testing.T) {
	p := NewPool(2)
	defer p.Shutdown()

	var concurrent int32
	var maxSeen int32
	release := make(chan struct{})

	for i := 0; i < 4; i++ {
		p.SubmitAsync(OpDecay, func(ctx context.Context) (any, error) {
			n := atomic.AddInt32(&concurrent, 1)
			for {
				cur := atomic.LoadInt32(&maxSeen)
				if n <= cur || atomic.CompareAndSwapInt32(&maxSeen, cur, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&concurrent, -1)
			return nil, nil
		})
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	time.Sleep(20 * time.Millisecond)

	if atomic.LoadInt32(&maxSeen) > 2 {
		t.Errorf("expected at most 2 concurrent operations, saw %d", maxSeen)
	}
}

func TestStatsCountsCompletedOperationsByType(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()

	_, _ = p.Submit(context.Background(), OpMine, func(ctx context.Context) (any, error) { return nil, nil })
	_, _ = p.Submit(context.Background(), OpMine, func(ctx context.Context) (any, error) { return nil, nil })
	_, _ = p.Submit(context.Background(), OpPersist, func(ctx context.Context) (any, error) { return nil, nil })

	stats := p.Stats()
	if stats[OpMine] != 2 {
		t.Errorf("expected 2 completed mine ops, got %d", stats[OpMine])
	}
	if stats[OpPersist] != 1 {
		t.Errorf("expected 1 completed persist op, got %d", stats[OpPersist])
	}
}

func TestShutdownStopsAcceptingAfterInFlightDrains(t *testing.T) {
	p := NewPool(1)
	_, err := p.Submit(context.Background(), OpDecay, func(ctx context.Context) (any, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Shutdown()

	_, err = p.Submit(context.Background(), OpDecay, func(ctx context.Context) (any, error) { return nil, nil })
	if err != context.Canceled {
		t.Errorf("expected submit after shutdown to be cancelled, got %v", err)
	}
}
