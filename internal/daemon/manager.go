// Package daemon runs the background interval loops (decay, prune, mine,
// persist) that keep the Brain Graph Store, synapse weights, and mined
// rules current without blocking the single cooperative event loop (§5).
package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/homecopilot/core/internal/concurrency"
	"github.com/homecopilot/core/internal/logging"
)

// Op is one of the four background operations this manager schedules.
// Each is submitted to the shared pool rather than run inline, so a slow
// pass never blocks the next timer tick from firing.
type Op func(ctx context.Context) (any, error)

// Manager owns the four interval-driven background loops. The teacher's
// consolidate/reorg daemons (memory depth promotion, spatial reorganization
// of sleeping brains) have no analog in this domain and are not carried
// over; decay/prune/persist are kept and a mine loop is added for the
// Habitus Miner's periodic pass.
type Manager struct {
	pool *concurrency.Pool

	decay   Op
	prune   Op
	mine    Op
	persist Op

	decayInterval   time.Duration
	pruneInterval   time.Duration
	mineInterval    time.Duration
	persistInterval time.Duration
	intervalMu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config supplies the four callbacks a daemon Manager drives. A nil
// callback disables its loop entirely (useful in tests or for a facade
// that hasn't wired mining yet).
type Config struct {
	Decay, Prune, Mine, Persist Op

	DecayInterval, PruneInterval, MineInterval, PersistInterval time.Duration
}

func (c Config) normalized() Config {
	if c.DecayInterval <= 0 {
		c.DecayInterval = 1 * time.Minute
	}
	if c.PruneInterval <= 0 {
		c.PruneInterval = 10 * time.Minute
	}
	if c.MineInterval <= 0 {
		c.MineInterval = 5 * time.Minute
	}
	if c.PersistInterval <= 0 {
		c.PersistInterval = 1 * time.Minute
	}
	return c
}

// NewManager constructs a daemon manager bound to pool, which executes
// every scheduled operation off the event loop.
func NewManager(pool *concurrency.Pool, cfg Config) *Manager {
	cfg = cfg.normalized()
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		pool:            pool,
		decay:           cfg.Decay,
		prune:           cfg.Prune,
		mine:            cfg.Mine,
		persist:         cfg.Persist,
		decayInterval:   cfg.DecayInterval,
		pruneInterval:   cfg.PruneInterval,
		mineInterval:    cfg.MineInterval,
		persistInterval: cfg.PersistInterval,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Start launches every configured loop.
func (m *Manager) Start() {
	log := logging.Named("daemon")
	if m.decay != nil {
		m.wg.Add(1)
		go m.loop(concurrency.OpDecay, m.getDecayInterval, m.decay)
	}
	if m.prune != nil {
		m.wg.Add(1)
		go m.loop(concurrency.OpPrune, m.getPruneInterval, m.prune)
	}
	if m.mine != nil {
		m.wg.Add(1)
		go m.loop(concurrency.OpMine, m.getMineInterval, m.mine)
	}
	if m.persist != nil {
		m.wg.Add(1)
		go m.loop(concurrency.OpPersist, m.getPersistInterval, m.persist)
	}
	log.Info().Msg("daemon manager started")
}

// Stop cancels every loop, waits for in-flight iterations to return, then
// runs one final persist pass so nothing from the last interval is lost.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	if m.persist != nil {
		_, _ = m.persist(context.Background())
	}
	logging.Named("daemon").Info().Msg("daemon manager stopped")
}

func (m *Manager) loop(typ concurrency.OpType, interval func() time.Duration, fn Op) {
	defer m.wg.Done()
	log := logging.Named("daemon")
	for m.wait(interval()) {
		m.pool.SubmitAsync(typ, func(ctx context.Context) (any, error) {
			res, err := fn(ctx)
			if err != nil {
				log.Warn().Err(err).Str("op", typ.String()).Msg("daemon pass failed")
			}
			return res, err
		})
	}
}

func (m *Manager) wait(interval time.Duration) bool {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-m.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (m *Manager) getDecayInterval() time.Duration   { return m.readInterval(&m.decayInterval) }
func (m *Manager) getPruneInterval() time.Duration   { return m.readInterval(&m.pruneInterval) }
func (m *Manager) getMineInterval() time.Duration    { return m.readInterval(&m.mineInterval) }
func (m *Manager) getPersistInterval() time.Duration { return m.readInterval(&m.persistInterval) }

func (m *Manager) readInterval(d *time.Duration) time.Duration {
	m.intervalMu.RLock()
	defer m.intervalMu.RUnlock()
	return *d
}

// SetIntervals reconfigures every loop's period at runtime. A zero value
// leaves that loop's current interval unchanged.
func (m *Manager) SetIntervals(decay, prune, mine, persist time.Duration) {
	m.intervalMu.Lock()
	defer m.intervalMu.Unlock()
	if decay > 0 {
		m.decayInterval = decay
	}
	if prune > 0 {
		m.pruneInterval = prune
	}
	if mine > 0 {
		m.mineInterval = mine
	}
	if persist > 0 {
		m.persistInterval = persist
	}
}

// Stats reports the current interval configuration alongside pool
// throughput counters.
func (m *Manager) Stats() map[string]any {
	m.intervalMu.RLock()
	defer m.intervalMu.RUnlock()
	return map[string]any{
		"decay_interval":   m.decayInterval.String(),
		"prune_interval":   m.pruneInterval.String(),
		"mine_interval":    m.mineInterval.String(),
		"persist_interval": m.persistInterval.String(),
		"pool":             m.pool.Stats(),
	}
}
