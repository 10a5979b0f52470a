// Package synapse implements the optional weighted-connection refinement
// layer between neurons and suggestion outputs (§4.6): Hebbian strengthening
// on user feedback, decay by inactivity, and pruning of dead connections.
package synapse

import (
	"math"
	"time"

	"github.com/homecopilot/core/internal/copilotcore"
)

// Type classifies how a synapse's weight combines with its input.
type Type string

const (
	Excitatory Type = "excitatory"
	Inhibitory Type = "inhibitory"
	Modulatory Type = "modulatory"
)

const (
	learningRate  = 0.01
	rewardUnit    = 0.1
	pruneAbsWeight = 0.01
	decayPerDay   = 0.001
)

// Synapse is a directed weighted edge from a neuron id to a suggestion
// output id.
type Synapse struct {
	ID        copilotcore.SynapseID
	Source    string
	Target    string
	Weight    float64
	Threshold float64
	Type      Type
	UpdatedAtMs int64
}

// Fire computes the transmitted signal for an input value crossing this
// synapse: input*weight, sign-flipped for inhibitory connections. Values
// below Threshold do not fire.
func (s *Synapse) Fire(input float64) (output float64, fired bool) {
	if input < s.Threshold {
		return 0, false
	}
	out := input * s.Weight
	if s.Type == Inhibitory {
		out = -out
	}
	return out, true
}

// IsAlive reports whether a synapse's weight is still above the prune
// threshold.
func (s *Synapse) IsAlive() bool {
	return abs(s.Weight) >= pruneAbsWeight
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// reinforce applies the Hebbian feedback rule w <- clamp(w + eta*reward, -1, 1).
func reinforce(weight float64, positive bool) float64 {
	reward := rewardUnit
	if !positive {
		reward = -rewardUnit
	}
	return clamp(weight+learningRate*reward, -1, 1)
}

// decayed applies (1-delta)^days decay per 24h of inactivity elapsed since
// updatedAtMs, delta=0.001.
func decayed(weight float64, updatedAtMs, nowMs int64) float64 {
	elapsedDays := float64(nowMs-updatedAtMs) / float64(24*time.Hour/time.Millisecond)
	if elapsedDays <= 0 {
		return weight
	}
	return weight * math.Pow(1-decayPerDay, elapsedDays)
}
