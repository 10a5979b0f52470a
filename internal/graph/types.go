// Package graph implements the Brain Graph Store: a bounded, time-decayed
// property graph of entities, zones, devices, and the relationships between
// them. Nodes and edges live in two separate keyed collections; traversal
// is by id rather than pointer, giving arena+index semantics and avoiding
// ownership cycles.
package graph

import (
	"github.com/homecopilot/core/internal/copilotcore"
)

// NodeKind classifies a graph node.
type NodeKind string

const (
	KindEntity  NodeKind = "entity"
	KindZone    NodeKind = "zone"
	KindDevice  NodeKind = "device"
	KindPerson  NodeKind = "person"
	KindConcept NodeKind = "concept"
	KindModule  NodeKind = "module"
	KindEvent   NodeKind = "event"
)

// EdgeType classifies a graph edge.
type EdgeType string

const (
	EdgeInZone        EdgeType = "in_zone"
	EdgeControls      EdgeType = "controls"
	EdgeAffects       EdgeType = "affects"
	EdgeCorrelates    EdgeType = "correlates"
	EdgeTriggeredBy   EdgeType = "triggered_by"
	EdgeObservedWith  EdgeType = "observed_with"
	EdgeMentions      EdgeType = "mentions"
)

// SourceRef attributes a node or edge to an originating observation.
type SourceRef struct {
	Kind    string `msgpack:"kind,omitempty"`
	Ref     string `msgpack:"ref,omitempty"`
	Summary string `msgpack:"summary,omitempty"`
}

// Node is a graph vertex: an entity, zone, device, person, concept, module,
// or event. All free-text fields are PII-redacted and clamped on write.
//
// Invariant N1: score >= 0, 0 <= EffectiveScore(now) <= score.
// Invariant N2: ID is stable and globally unique; insert-or-update semantics.
type Node struct {
	ID          copilotcore.NodeID   `msgpack:"id"`
	Kind        NodeKind             `msgpack:"kind"`
	Label       string               `msgpack:"label"`
	Domain      string               `msgpack:"domain,omitempty"`
	UpdatedAtMs int64                `msgpack:"updated_at_ms"`
	Score       float64              `msgpack:"score"`
	Tags        []string             `msgpack:"tags,omitempty"`
	Source      *SourceRef           `msgpack:"source,omitempty"`
	Meta        map[string]string    `msgpack:"meta,omitempty"`
}

// EffectiveScore applies exponential decay with half-life halfLifeHours to
// Score as of nowMs: score * 2^(-dh/H).
func (n *Node) EffectiveScore(nowMs int64, halfLifeHours float64) float64 {
	return decay(n.Score, n.UpdatedAtMs, nowMs, halfLifeHours)
}

// Edge is a directed, typed, weighted relationship between two nodes.
//
// Invariant E1: referential integrity — removing either endpoint removes
// the edge.
// Invariant E2: effective_weight = weight * 2^(-dh/H_edge).
type Edge struct {
	ID          copilotcore.EdgeID `msgpack:"id"`
	From        copilotcore.NodeID `msgpack:"from"`
	To          copilotcore.NodeID `msgpack:"to"`
	EdgeType    EdgeType           `msgpack:"edge_type"`
	UpdatedAtMs int64              `msgpack:"updated_at_ms"`
	Weight      float64            `msgpack:"weight"`
	Evidence    *SourceRef         `msgpack:"evidence,omitempty"`
	Meta        map[string]string  `msgpack:"meta,omitempty"`
}

// EffectiveWeight applies exponential decay with half-life halfLifeHours to
// Weight as of nowMs.
func (e *Edge) EffectiveWeight(nowMs int64, halfLifeHours float64) float64 {
	return decay(e.Weight, e.UpdatedAtMs, nowMs, halfLifeHours)
}

// Bounds holds the capacity limits and decay parameters enforced by Store.
type Bounds struct {
	MaxNodes      int
	MaxEdges      int
	NodeMinScore  float64
	EdgeMinWeight float64
	NodeHalfLifeH float64
	EdgeHalfLifeH float64
}

// DefaultBounds returns the capacity bounds named in §3.4/§6.5.
func DefaultBounds() Bounds {
	return Bounds{
		MaxNodes:      500,
		MaxEdges:      1500,
		NodeMinScore:  0.1,
		EdgeMinWeight: 0.1,
		NodeHalfLifeH: 24,
		EdgeHalfLifeH: 12,
	}
}

// Stats reports store-wide counters.
type Stats struct {
	Nodes    int `msgpack:"nodes"`
	Edges    int `msgpack:"edges"`
	MaxNodes int `msgpack:"n_max"`
	MaxEdges int `msgpack:"e_max"`
}
