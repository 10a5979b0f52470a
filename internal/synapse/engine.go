package synapse

import (
	"sync"

	"github.com/homecopilot/core/internal/copilotcore"
)

// Engine holds the synapse table and applies the Hebbian update rule on
// user feedback (§4.6). It has no knowledge of neuron or suggestion
// internals beyond their string ids, keeping this package decoupled from
// internal/neuron.
type Engine struct {
	mu       sync.Mutex
	synapses map[copilotcore.SynapseID]*Synapse
}

// NewEngine returns an empty synapse engine.
func NewEngine() *Engine {
	return &Engine{synapses: make(map[copilotcore.SynapseID]*Synapse)}
}

// Connect creates a synapse between source and target if one does not
// already exist, returning the existing one otherwise.
func (e *Engine) Connect(source, target string, typ Type, nowMs int64) *Synapse {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := copilotcore.NewSynapseID(source, target)
	if s, ok := e.synapses[id]; ok {
		return s
	}
	s := &Synapse{
		ID:          id,
		Source:      source,
		Target:      target,
		Weight:      0,
		Threshold:   0,
		Type:        typ,
		UpdatedAtMs: nowMs,
	}
	e.synapses[id] = s
	return s
}

// OnFeedback applies the Hebbian update rule to the synapse between source
// and target: w <- clamp(w + eta*reward, -1, 1), eta=0.01, reward=+-0.1. If
// no synapse exists yet, one is created with the default type before the
// update is applied.
func (e *Engine) OnFeedback(source, target string, positive bool, nowMs int64) *Synapse {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := copilotcore.NewSynapseID(source, target)
	s, ok := e.synapses[id]
	if !ok {
		s = &Synapse{ID: id, Source: source, Target: target, Type: Excitatory, UpdatedAtMs: nowMs}
		e.synapses[id] = s
	}
	s.Weight = reinforce(decayed(s.Weight, s.UpdatedAtMs, nowMs), positive)
	s.UpdatedAtMs = nowMs
	return s
}

// Fire transmits input across the synapse between source and target, if one
// exists and its weight still exceeds the prune threshold. The synapse's
// staleness-adjusted weight is used but not written back; decay is only
// committed by DecayAll.
func (e *Engine) Fire(source, target string, input float64, nowMs int64) (output float64, fired bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := copilotcore.NewSynapseID(source, target)
	s, ok := e.synapses[id]
	if !ok {
		return 0, false
	}
	snapshot := *s
	snapshot.Weight = decayed(s.Weight, s.UpdatedAtMs, nowMs)
	if !snapshot.IsAlive() {
		return 0, false
	}
	return snapshot.Fire(input)
}

// DecayAll applies inactivity decay to every synapse's weight, committing
// the result (unlike Fire's snapshot-only view).
func (e *Engine) DecayAll(nowMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.synapses {
		s.Weight = decayed(s.Weight, s.UpdatedAtMs, nowMs)
		s.UpdatedAtMs = nowMs
	}
}

// PruneDead removes every synapse whose |weight| has fallen below 0.01,
// returning the count removed.
func (e *Engine) PruneDead() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	pruned := 0
	for id, s := range e.synapses {
		if !s.IsAlive() {
			delete(e.synapses, id)
			pruned++
		}
	}
	return pruned
}

// Weight returns the current stored weight between source and target, 0 if
// no synapse exists.
func (e *Engine) Weight(source, target string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := copilotcore.NewSynapseID(source, target)
	if s, ok := e.synapses[id]; ok {
		return s.Weight
	}
	return 0
}

// Snapshot returns every synapse for persistence (§6.4 synapse file).
func (e *Engine) Snapshot() []*Synapse {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Synapse, 0, len(e.synapses))
	for _, s := range e.synapses {
		out = append(out, s)
	}
	return out
}

// Restore repopulates the engine from a persisted snapshot.
func (e *Engine) Restore(synapses []*Synapse) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.synapses = make(map[copilotcore.SynapseID]*Synapse, len(synapses))
	for _, s := range synapses {
		e.synapses[s.ID] = s
	}
}
