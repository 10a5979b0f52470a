package service

import (
	"context"
	"time"

	"github.com/homecopilot/core/internal/candidate"
	"github.com/homecopilot/core/internal/graph"
	"github.com/homecopilot/core/internal/miner"
	"github.com/homecopilot/core/internal/persistence"
	"github.com/homecopilot/core/internal/synapse"
)

// graphSnapshot is the persisted shape of the graph file (§6.4).
type graphSnapshot struct {
	Nodes []*graph.Node `msgpack:"nodes"`
	Edges []*graph.Edge `msgpack:"edges"`
}

// persistAll writes every component's durable state to the persistence
// store: graph, candidates, rules, miner state, synapses. When a graph
// projection is configured it is rebuilt from the same node snapshot, never
// from a separate read of the live store.
func (c *Core) persistAll() error {
	nodes := c.graph.GetNodes(nil, nil, 0)
	snap := graphSnapshot{
		Nodes: nodes,
		Edges: c.graph.GetEdges(nil, nil, nil, 0),
	}
	if err := c.store.Save(persistence.FileGraph, snap); err != nil {
		return err
	}

	if c.proj != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := c.proj.Rebuild(ctx, nodes); err != nil {
			c.log.Warn().Err(err).Msg("graph projection rebuild failed")
		}
		cancel()
	}

	if err := c.store.Save(persistence.FileCandidates, c.candidates.Snapshot()); err != nil {
		return err
	}

	if err := c.store.Save(persistence.FileRules, c.Patterns(20)); err != nil {
		return err
	}

	if err := c.store.Save(persistence.FileMinerState, c.miner.Stats()); err != nil {
		return err
	}

	if err := c.store.Save(persistence.FileSynapses, c.synapses.Snapshot()); err != nil {
		return err
	}

	return nil
}

// restore loads every component's durable state from the persistence
// store, if present. A missing file is not an error: it means this is the
// first run, or that component has never had anything to persist.
func (c *Core) restore() {
	var gs graphSnapshot
	if err := c.store.Load(persistence.FileGraph, &gs); err == nil {
		for _, n := range gs.Nodes {
			_, _ = c.graph.UpsertNode(n)
		}
		for _, e := range gs.Edges {
			_, _ = c.graph.UpsertEdge(e)
		}
	}

	var candidates []*candidate.Candidate
	if err := c.store.Load(persistence.FileCandidates, &candidates); err == nil {
		c.candidates.Restore(candidates)
	}

	var minerStats miner.Stats
	if err := c.store.Load(persistence.FileMinerState, &minerStats); err == nil {
		c.miner.Restore(minerStats)
	}

	var synapses []*synapse.Synapse
	if err := c.store.Load(persistence.FileSynapses, &synapses); err == nil {
		c.synapses.Restore(synapses)
	}
}
