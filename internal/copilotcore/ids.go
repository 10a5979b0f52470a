package copilotcore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NodeID identifies a graph node. Ids are stable and globally unique.
type NodeID string

// EdgeID identifies a graph edge. Computed as "e:" + sha256(from|type|to)[:16].
type EdgeID string

// NeuronID identifies a configured neuron. Neurons are created once at
// configuration time and live for process lifetime.
type NeuronID string

// RuleID identifies a mined A->B rule shape.
type RuleID string

// PatternID identifies the stable shape "A->B@dt" (optionally zone/context
// scoped) that a Rule and its Candidate share.
type PatternID string

// CandidateID identifies a user-decidable wrapper around a Rule.
type CandidateID string

// SynapseID identifies a weighted connection between a neuron and a
// suggestion output.
type SynapseID string

// NewEdgeID derives a stable edge id from its endpoints and type.
func NewEdgeID(from NodeID, edgeType string, to NodeID) EdgeID {
	sum := sha256.Sum256([]byte(string(from) + "|" + edgeType + "|" + string(to)))
	return EdgeID("e:" + hex.EncodeToString(sum[:])[:16])
}

// NewCandidateID generates a fresh random candidate id.
func NewCandidateID() CandidateID {
	return CandidateID(uuid.NewString())
}

// NewSynapseID derives a stable synapse id from its endpoints, independent
// of direction so lookups work from either side.
func NewSynapseID(source, target string) SynapseID {
	if source > target {
		source, target = target, source
	}
	return SynapseID(fmt.Sprintf("syn:%s:%s", source, target))
}

// PatternIDFor builds the stable pattern id for a rule shape, optionally
// scoped to a zone and/or context bucket.
func PatternIDFor(a, b EventKey, dtSec int, zone, ctxKey string) PatternID {
	base := fmt.Sprintf("%s->%s@%ds", a, b, dtSec)
	if zone != "" {
		base += "#zone:" + zone
	}
	if ctxKey != "" {
		base += "#ctx:" + ctxKey
	}
	return PatternID(base)
}
