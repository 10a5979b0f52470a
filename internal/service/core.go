// Package service wires the Brain Graph Store, Neuron Manager, Candidate
// Store, Habitus Miner, Synapse network, dispatcher, worker pool, and
// persistence store into the single facade external collaborators talk to
// (§9's singleton initialization order: Graph Store -> Neuron Manager ->
// Candidate Store -> Miner -> Dispatcher, extended here with Synapse,
// Concurrency and Persistence since those did not exist in the teacher's
// original ordering note). No transport lives in this package.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/homecopilot/core/internal/candidate"
	"github.com/homecopilot/core/internal/concurrency"
	"github.com/homecopilot/core/internal/config"
	"github.com/homecopilot/core/internal/copilotcore"
	"github.com/homecopilot/core/internal/daemon"
	"github.com/homecopilot/core/internal/dispatcher"
	"github.com/homecopilot/core/internal/graph"
	"github.com/homecopilot/core/internal/graph/projection"
	"github.com/homecopilot/core/internal/logging"
	"github.com/homecopilot/core/internal/miner"
	"github.com/homecopilot/core/internal/neuron"
	"github.com/homecopilot/core/internal/persistence"
	"github.com/homecopilot/core/internal/synapse"
)

// maxEventCache bounds the in-memory replay cache the miner reads from
// (§3.8, §5: 10 000-event cache).
const maxEventCache = 10_000

// tsTolerance bounds how far out of order an ingested event's timestamp may
// be relative to the newest timestamp seen so far (§6.1).
const tsTolerance = 5 * time.Minute

// Core holds every wired component and implements the plain-Go operations
// named in §6: IngestEvent, GetState, GetNodes, GetStats, Prune, Patterns,
// List, Decide, Subscribe.
type Core struct {
	cfg *config.Config
	log zerolog.Logger

	graph      *graph.Store
	neurons    *neuron.Manager
	candidates *candidate.Store
	miner      *miner.Miner
	synapses   *synapse.Engine
	dispatch   *dispatcher.Dispatcher
	pool       *concurrency.Pool
	store      *persistence.Store
	daemons    *daemon.Manager
	proj       *projection.Store

	eventsMu  sync.Mutex
	events    []copilotcore.Event
	maxSeenTs int64

	rawMu sync.Mutex
	raw   map[string]string
}

// New constructs and wires a Core from cfg, restoring any persisted state.
// Background daemons are not started by New; call Start for that.
func New(cfg *config.Config) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := persistence.NewStore(cfg.Storage.DataPath)
	if err != nil {
		return nil, err
	}

	bounds := graph.Bounds{
		MaxNodes:      cfg.Graph.MaxNodes,
		MaxEdges:      cfg.Graph.MaxEdges,
		NodeMinScore:  cfg.Graph.NodeMinScore,
		EdgeMinWeight: cfg.Graph.EdgeMinWeight,
		NodeHalfLifeH: cfg.Graph.NodeHalfLifeH,
		EdgeHalfLifeH: cfg.Graph.EdgeHalfLifeH,
	}
	g := graph.NewStore(bounds)

	candidates := candidate.NewStore()
	synapses := synapse.NewEngine()
	m := miner.NewMiner(cfg.Miner)

	suggestionTable, err := neuron.NewSuggestionTable(neuron.DefaultSuggestionRows())
	if err != nil {
		return nil, copilotcore.Internal("compile suggestion table: %v", err)
	}
	neurons := neuron.NewManager(neuron.BuiltinCatalogue(), cfg.Neurons.MoodHistory, suggestionTable)

	disp := dispatcher.New()
	pool := concurrency.NewPool(cfg.Worker.PoolSize)

	c := &Core{
		cfg:        cfg,
		log:        logging.Named("service"),
		graph:      g,
		neurons:    neurons,
		candidates: candidates,
		miner:      m,
		synapses:   synapses,
		dispatch:   disp,
		pool:       pool,
		store:      store,
		raw:        map[string]string{},
	}

	c.restore()

	if cfg.Projection.Enabled {
		proj, err := projection.Open(context.Background(), cfg.Projection.DSN)
		if err != nil {
			c.log.Warn().Err(err).Msg("graph projection unavailable, falling back to in-memory pagination")
		} else {
			c.proj = proj
		}
	}

	c.daemons = daemon.NewManager(pool, daemon.Config{
		Decay:           c.runDecay,
		Prune:           c.runPrune,
		Mine:            c.runMine,
		Persist:         c.runPersist,
		DecayInterval:   cfg.Daemons.DecayInterval,
		PruneInterval:   cfg.Daemons.PruneInterval,
		MineInterval:    cfg.Daemons.MineInterval,
		PersistInterval: cfg.Daemons.PersistInterval,
	})

	return c, nil
}

// Start launches the background decay/prune/mine/persist loops.
func (c *Core) Start() {
	c.daemons.Start()
	c.log.Info().Msg("core started")
}

// Stop halts the background loops (running one final persist pass) and
// shuts down the worker pool.
func (c *Core) Stop() {
	c.daemons.Stop()
	c.pool.Shutdown()
	if c.proj != nil {
		_ = c.proj.Close()
	}
	c.log.Info().Msg("core stopped")
}

// GetStats aggregates observability counters from every wired component.
func (c *Core) GetStats() map[string]any {
	return map[string]any{
		"graph":         c.graph.Stats(),
		"miner":         c.miner.Stats(),
		"pool":          c.pool.Stats(),
		"persistence":   c.store.Stats(),
		"daemons":       c.daemons.Stats(),
		"dominant_mood": c.neurons.DominantMood(),
	}
}

func now() int64 {
	return time.Now().UnixMilli()
}
