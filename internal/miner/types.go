// Package miner implements the Habitus Miner: temporal A->B rule discovery
// over a normalized event stream.
package miner

import (
	"math"

	"github.com/homecopilot/core/internal/copilotcore"
)

// Hit is a recorded A->B succession within a window.
type Hit struct {
	TA      int64
	TB      int64
	DeltaMs int64
}

// Evidence carries a bounded sample of hits/misses plus latency quantiles,
// capped at §3.6's evidence limits for explainability without unbounded
// growth.
type Evidence struct {
	Hits             []Hit
	Misses           []int64
	LatencyQuantiles []float64 // p25, p50, p75, p90, p99 in seconds
}

const maxEvidenceExamples = 10

// Rule is a discovered A->B pattern with quality metrics (§3.6).
type Rule struct {
	PatternID             copilotcore.PatternID
	A, B                  copilotcore.EventKey
	DtSec                 int
	NA, NB, NAB           int
	Confidence            float64
	ConfidenceLB          float64
	Lift                  float64
	Leverage              float64
	Conviction            *float64
	BaselinePB            float64
	ObservationPeriodDays int
	Evidence              Evidence
	Zone                  string
	ContextKey            string
	CreatedAtMs           int64
}

// Score combines confidence_lb, log-lift, and log-evidence-count into a
// single ranking value (§3.6).
func (r *Rule) Score() float64 {
	const wConf, wLift, wEvidence = 0.5, 0.3, 0.2
	confScore := r.ConfidenceLB
	liftScore := math.Log(math.Max(1.01, r.Lift))
	evidenceScore := math.Log(1 + float64(r.NAB))
	return wConf*confScore + wLift*liftScore + wEvidence*evidenceScore
}

// MiningResult is the outcome of a mine_and_create_candidates call (§4.3's
// throttling and §8.3's boundary behaviors).
type MiningResult struct {
	Status         string // "completed" or "skipped"
	Rules          []*Rule
	SafetyBlocked  []*Rule
	EventsScanned  int
	SessionsFound  int
	RanAtMs        int64
}
