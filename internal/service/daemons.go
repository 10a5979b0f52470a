package service

import (
	"context"

	"github.com/homecopilot/core/internal/candidate"
	"github.com/homecopilot/core/internal/dispatcher"
	"github.com/homecopilot/core/internal/miner"
)

// runDecay applies inactivity decay to the synapse table. Graph node/edge
// decay is computed on read (EffectiveScore/EffectiveWeight) and needs no
// periodic pass of its own.
func (c *Core) runDecay(ctx context.Context) (any, error) {
	c.synapses.DecayAll(now())
	return nil, nil
}

// runPrune enforces the graph's capacity bounds and removes dead synapses.
func (c *Core) runPrune(ctx context.Context) (any, error) {
	result, err := c.graph.Prune(ctx, now())
	if err != nil {
		return nil, err
	}
	pruned := c.synapses.PruneDead()
	return struct {
		Graph          interface{}
		SynapsesPruned int
	}{result, pruned}, nil
}

// runMine runs one throttled Habitus Miner pass over the cached event
// stream and folds any discovered rules into the Candidate Store,
// publishing CandidateCreated for each one that is genuinely new.
func (c *Core) runMine(ctx context.Context) (any, error) {
	events := c.snapshotEvents()
	result, err := c.miner.MineAndCreateCandidates(ctx, events, miner.Filters{}, now(), false)
	if err != nil {
		return nil, err
	}
	if result.Status == "skipped" {
		return result, nil
	}

	nowMs := now()
	for _, rule := range result.Rules {
		res := c.candidates.Create(rule.PatternID, rule, candidate.Metadata{
			ZoneFilter:      rule.Zone,
			DiscoveryMethod: "habitus_miner",
		}, nowMs)
		if res.Created && res.Event != nil {
			c.dispatch.Publish(dispatcher.TopicCandidateCreated, "habitus-miner", nowMs, struct {
				CandidateID interface{}
				PatternID   interface{}
			}{res.Event.CandidateID, res.Event.PatternID})
		}
	}
	return result, nil
}

// runPersist snapshots every component's durable state into the
// persistence store (§6.4's five fixed artifacts).
func (c *Core) runPersist(ctx context.Context) (any, error) {
	return nil, c.persistAll()
}
