// Package candidate implements the Candidate/Suggestion lifecycle state
// machine (§4.4): pending -> {accepted, dismissed}, both terminal, with
// sticky dedupe against previously decided pattern ids.
package candidate

import "github.com/homecopilot/core/internal/copilotcore"

// State is a candidate's lifecycle stage.
type State string

const (
	StatePending   State = "pending"
	StateAccepted  State = "accepted"
	StateDismissed State = "dismissed"
)

// IsTerminal reports whether a state has no outgoing transitions.
func (s State) IsTerminal() bool {
	return s == StateAccepted || s == StateDismissed
}

// Metadata carries discovery provenance for a candidate.
type Metadata struct {
	ZoneFilter      string
	DiscoveryMethod string
}

// Candidate is a user-decidable wrapper around a mined rule (§3.7). Evidence
// is stored as `any` here to avoid importing the miner package's Rule type
// into this package's lifecycle concerns; callers (the service layer) cast
// it back to *miner.Rule.
type Candidate struct {
	CandidateID copilotcore.CandidateID
	PatternID   copilotcore.PatternID
	State       State
	Evidence    any
	Metadata    Metadata
	CreatedAtMs int64
	UpdatedAtMs int64
}
