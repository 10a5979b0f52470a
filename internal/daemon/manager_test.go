package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/homecopilot/core/internal/concurrency"
)

func TestDecayLoopFiresOnInterval(t *testing.T) {
	pool := concurrency.NewPool(2)
	defer pool.Shutdown()

	var calls int32
	m := NewManager(pool, Config{
		Decay:         func(ctx context.Context) (any, error) { atomic.AddInt32(&calls, 1); return nil, nil },
		DecayInterval: 10 * time.Millisecond,
	})
	m.Start()
	defer m.Stop()

	time.Sleep(60 * time.Millisecond)

	if atomic.LoadInt32(&calls) < 2 {
		t.Errorf("expected decay to fire multiple times within 60ms at 10ms interval, got %d", calls)
	}
}

func TestStopRunsFinalPersistPass(t *testing.T) {
	pool := concurrency.NewPool(1)
	defer pool.Shutdown()

	var persisted int32
	m := NewManager(pool, Config{
		Persist:         func(ctx context.Context) (any, error) { atomic.AddInt32(&persisted, 1); return nil, nil },
		PersistInterval: time.Hour,
	})
	m.Start()
	m.Stop()

	if atomic.LoadInt32(&persisted) != 1 {
		t.Errorf("expected exactly one final persist pass on Stop, got %d", persisted)
	}
}

func TestNilOpDisablesItsLoop(t *testing.T) {
	pool := concurrency.NewPool(1)
	defer pool.Shutdown()

	m := NewManager(pool, Config{MineInterval: 5 * time.Millisecond})
	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	// No panic and Stop returns promptly is the assertion here; a nil Mine
	// callback must never be invoked.
}

func TestSetIntervalsOnlyUpdatesPositiveValues(t *testing.T) {
	pool := concurrency.NewPool(1)
	defer pool.Shutdown()

	m := NewManager(pool, Config{})
	before := m.Stats()
	m.SetIntervals(2*time.Minute, 0, 0, 0)
	after := m.Stats()

	if after["decay_interval"] == before["decay_interval"] {
		t.Error("expected decay interval to change")
	}
	if after["prune_interval"] != before["prune_interval"] {
		t.Error("expected prune interval to stay unchanged when passed zero")
	}
}
