package service

import (
	"github.com/homecopilot/core/internal/copilotcore"
	"github.com/homecopilot/core/internal/dispatcher"
	"github.com/homecopilot/core/internal/graph"
)

// IngestEvent accepts an already-normalized event (§6.1): folds it into the
// Brain Graph Store, merges its context into the raw-state view the Neuron
// Manager ticks against, runs one tick, and publishes the resulting
// StateChanged/MoodChanged/SuggestionGenerated messages. Invalid events
// (missing entity_id, non-monotonic ts_ms beyond the 5-minute tolerance)
// are rejected without mutating any state.
func (c *Core) IngestEvent(e copilotcore.Event) error {
	if err := c.validateEvent(e); err != nil {
		return err
	}

	c.cacheEvent(e)
	if err := c.foldIntoGraph(e); err != nil {
		return err
	}

	raw := c.mergeRawState(e)
	report, suggestions := c.neurons.Tick(e.TsMs, raw)

	c.dispatch.Publish(dispatcher.TopicStateChanged, e.EntityID, e.TsMs, e)
	if report.MoodChanged {
		c.dispatch.Publish(dispatcher.TopicMoodChanged, "neuron-manager", e.TsMs, report)
	}
	for _, s := range suggestions {
		c.dispatch.Publish(dispatcher.TopicSuggestionGenerated, "neuron-manager", e.TsMs, s)
	}

	return nil
}

func (c *Core) validateEvent(e copilotcore.Event) error {
	if e.EntityID == "" {
		return copilotcore.InvalidInput("event missing entity_id")
	}

	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	if c.maxSeenTs != 0 && e.TsMs < c.maxSeenTs-tsTolerance.Milliseconds() {
		return copilotcore.InvalidInput("event ts_ms %d is non-monotonic beyond tolerance (max seen %d)", e.TsMs, c.maxSeenTs)
	}
	if e.TsMs > c.maxSeenTs {
		c.maxSeenTs = e.TsMs
	}
	return nil
}

// cacheEvent appends e to the bounded replay cache the miner reads from,
// dropping the oldest entry once the cache is full.
func (c *Core) cacheEvent(e copilotcore.Event) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	c.events = append(c.events, e)
	if len(c.events) > maxEventCache {
		c.events = c.events[len(c.events)-maxEventCache:]
	}
}

func (c *Core) snapshotEvents() []copilotcore.Event {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	out := make([]copilotcore.Event, len(c.events))
	copy(out, c.events)
	return out
}

// mergeRawState folds e's context into the persistent raw-state view (last
// value wins per key) the Neuron Manager evaluates against, and returns a
// snapshot for this tick.
func (c *Core) mergeRawState(e copilotcore.Event) map[string]string {
	c.rawMu.Lock()
	defer c.rawMu.Unlock()
	for k, v := range e.Context {
		c.raw[k] = v
	}
	out := make(map[string]string, len(c.raw))
	for k, v := range c.raw {
		out[k] = v
	}
	return out
}

// foldIntoGraph upserts an entity node for e, and a zone node plus in_zone
// edge when the event carries a "zone" context key.
func (c *Core) foldIntoGraph(e copilotcore.Event) error {
	entityID := copilotcore.NodeID(e.EntityID)
	score := 1.0
	if existing, ok := c.graph.GetNode(entityID); ok {
		score = existing.EffectiveScore(e.TsMs, c.cfg.Graph.NodeHalfLifeH) + 1
	}
	if _, err := c.graph.UpsertNode(&graph.Node{
		ID:          entityID,
		Kind:        graph.KindEntity,
		Label:       e.EntityID,
		Domain:      e.Domain,
		UpdatedAtMs: e.TsMs,
		Score:       score,
		Source:      &graph.SourceRef{Kind: "event", Ref: string(e.Key())},
	}); err != nil {
		return err
	}

	zone, ok := e.Context["zone"]
	if !ok || zone == "" {
		return nil
	}
	zoneID := copilotcore.NodeID("zone:" + zone)
	if _, err := c.graph.UpsertNode(&graph.Node{
		ID:          zoneID,
		Kind:        graph.KindZone,
		Label:       zone,
		UpdatedAtMs: e.TsMs,
		Score:       1,
	}); err != nil {
		return err
	}
	_, err := c.graph.UpsertEdge(&graph.Edge{
		From:        entityID,
		To:          zoneID,
		EdgeType:    graph.EdgeInZone,
		UpdatedAtMs: e.TsMs,
		Weight:      1,
	})
	return err
}
