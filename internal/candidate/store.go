package candidate

import (
	"sync"

	"github.com/homecopilot/core/internal/copilotcore"
)

// Decision is a terminal transition requested via Decide.
type Decision string

const (
	DecisionAccepted  Decision = "accepted"
	DecisionDismissed Decision = "dismissed"
)

// Event is emitted to the dispatcher on lifecycle transitions. The service
// layer subscribes to these and fans them out on the dispatcher's
// lifecycle channel.
type Event struct {
	Type        string // "CandidateCreated" | "CandidateAccepted" | "CandidateDismissed"
	CandidateID copilotcore.CandidateID
	PatternID   copilotcore.PatternID
}

// Store is the single-writer Candidate lifecycle store. Dismissals are
// sticky: a pattern_id already decided (accepted or dismissed) is never
// re-created, satisfying invariant I5.
type Store struct {
	mu sync.Mutex

	byID      map[copilotcore.CandidateID]*Candidate
	byPattern map[copilotcore.PatternID]copilotcore.CandidateID
}

// NewStore returns an empty candidate store.
func NewStore() *Store {
	return &Store{
		byID:      make(map[copilotcore.CandidateID]*Candidate),
		byPattern: make(map[copilotcore.PatternID]copilotcore.CandidateID),
	}
}

// CreateResult distinguishes a freshly created candidate from a no-op
// caused by an existing decision for the same pattern.
type CreateResult struct {
	Candidate *Candidate
	Created   bool
	Event     *Event
}

// Create registers a new pending candidate for patternID, unless a
// candidate for that pattern already exists in any state — in particular a
// terminal one, which must never be re-created (I5). Returns the existing
// candidate (Created=false) in that case.
func (s *Store) Create(patternID copilotcore.PatternID, evidence any, meta Metadata, nowMs int64) CreateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byPattern[patternID]; ok {
		return CreateResult{Candidate: s.byID[existingID], Created: false}
	}

	c := &Candidate{
		CandidateID: copilotcore.NewCandidateID(),
		PatternID:   patternID,
		State:       StatePending,
		Evidence:    evidence,
		Metadata:    meta,
		CreatedAtMs: nowMs,
		UpdatedAtMs: nowMs,
	}
	s.byID[c.CandidateID] = c
	s.byPattern[patternID] = c.CandidateID

	return CreateResult{
		Candidate: c,
		Created:   true,
		Event:     &Event{Type: "CandidateCreated", CandidateID: c.CandidateID, PatternID: patternID},
	}
}

// Decide applies a terminal transition. A candidate already in a terminal
// state cannot be re-decided (Conflict); re-submitting the same decision
// that is already in effect leaves state unchanged (R2 terminal
// idempotence) but still reports Conflict, since the caller is informed a
// decision already exists rather than silently no-oping.
func (s *Store) Decide(id copilotcore.CandidateID, decision Decision, nowMs int64) (*Candidate, *Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return nil, nil, copilotcore.NotFound("candidate %q not found", id)
	}
	if c.State.IsTerminal() {
		return nil, nil, copilotcore.Conflict("candidate %q is already %s", id, c.State)
	}

	var newState State
	var eventType string
	switch decision {
	case DecisionAccepted:
		newState = StateAccepted
		eventType = "CandidateAccepted"
	case DecisionDismissed:
		newState = StateDismissed
		eventType = "CandidateDismissed"
	default:
		return nil, nil, copilotcore.InvalidInput("unknown decision %q", decision)
	}

	c.State = newState
	c.UpdatedAtMs = nowMs
	return c, &Event{Type: eventType, CandidateID: c.CandidateID, PatternID: c.PatternID}, nil
}

// Get returns a candidate by id.
func (s *Store) Get(id copilotcore.CandidateID) (*Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, copilotcore.NotFound("candidate %q not found", id)
	}
	return c, nil
}

// List returns candidates, optionally filtered by state.
func (s *Store) List(state *State) []*Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Candidate, 0, len(s.byID))
	for _, c := range s.byID {
		if state != nil && c.State != *state {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Snapshot returns every candidate for persistence. The returned slice is a
// shallow copy; candidates themselves are not cloned.
func (s *Store) Snapshot() []*Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Candidate, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	return out
}

// Restore repopulates the store from a persisted snapshot, e.g. at startup.
// It does not emit lifecycle events.
func (s *Store) Restore(candidates []*Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[copilotcore.CandidateID]*Candidate, len(candidates))
	s.byPattern = make(map[copilotcore.PatternID]copilotcore.CandidateID, len(candidates))
	for _, c := range candidates {
		s.byID[c.CandidateID] = c
		s.byPattern[c.PatternID] = c.CandidateID
	}
}
