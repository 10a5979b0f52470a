package candidate

import (
	"testing"

	"github.com/homecopilot/core/internal/copilotcore"
)

func TestCreateNewPatternYieldsPending(t *testing.T) {
	s := NewStore()
	res := s.Create("pattern-1", nil, Metadata{DiscoveryMethod: "global"}, 1000)
	if !res.Created {
		t.Fatalf("expected a fresh candidate to be created")
	}
	if res.Candidate.State != StatePending {
		t.Errorf("expected state pending, got %s", res.Candidate.State)
	}
	if res.Event == nil || res.Event.Type != "CandidateCreated" {
		t.Errorf("expected a CandidateCreated event, got %+v", res.Event)
	}
}

// I5 - a dismissed pattern_id is never re-created.
func TestDismissedPatternNeverRecreated(t *testing.T) {
	s := NewStore()
	first := s.Create("pattern-1", nil, Metadata{}, 1000)

	if _, _, err := s.Decide(first.Candidate.CandidateID, DecisionDismissed, 1500); err != nil {
		t.Fatalf("unexpected error dismissing: %v", err)
	}

	second := s.Create("pattern-1", nil, Metadata{}, 2000)
	if second.Created {
		t.Fatalf("expected re-create of a decided pattern to be a no-op")
	}
	if second.Candidate.State != StateDismissed {
		t.Errorf("expected the existing dismissed candidate to be returned, got %s", second.Candidate.State)
	}
}

// R2 - dismiss then resubmit stays dismissed.
func TestDecideThenResubmitStaysDecided(t *testing.T) {
	s := NewStore()
	c := s.Create("pattern-1", nil, Metadata{}, 1000).Candidate
	if _, _, err := s.Decide(c.CandidateID, DecisionAccepted, 1500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := s.Decide(c.CandidateID, DecisionDismissed, 2000); err == nil {
		t.Fatal("expected re-deciding a terminal candidate to fail")
	} else if !copilotcore.IsKind(err, copilotcore.KindConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}

	got, err := s.Get(c.CandidateID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.State != StateAccepted {
		t.Errorf("expected candidate to remain accepted, got %s", got.State)
	}
}

// S5 - duplicate pattern within a single mining pass dedupes to one candidate.
func TestDuplicatePatternDedupesToSingleCandidate(t *testing.T) {
	s := NewStore()
	first := s.Create("pattern-1", nil, Metadata{}, 1000)
	second := s.Create("pattern-1", nil, Metadata{}, 1500)

	if !first.Created {
		t.Fatal("expected first create to succeed")
	}
	if second.Created {
		t.Fatal("expected second create for same pattern to be a no-op")
	}
	if first.Candidate.CandidateID != second.Candidate.CandidateID {
		t.Error("expected both creates to resolve to the same candidate id")
	}
	if len(s.List(nil)) != 1 {
		t.Errorf("expected exactly one candidate to exist, got %d", len(s.List(nil)))
	}
}

// §4.4 - transitions are recorded with updated_at_ms.
func TestDecideStampsUpdatedAtMs(t *testing.T) {
	s := NewStore()
	c := s.Create("pattern-1", nil, Metadata{}, 1000).Candidate
	if c.UpdatedAtMs != 1000 {
		t.Fatalf("expected creation to stamp updated_at_ms, got %d", c.UpdatedAtMs)
	}

	decided, _, err := s.Decide(c.CandidateID, DecisionAccepted, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decided.UpdatedAtMs != 5000 {
		t.Errorf("expected updated_at_ms to be stamped with the decision time, got %d", decided.UpdatedAtMs)
	}
	if decided.CreatedAtMs != 1000 {
		t.Errorf("expected created_at_ms to remain unchanged, got %d", decided.CreatedAtMs)
	}
}

func TestDecideUnknownCandidateIsNotFound(t *testing.T) {
	s := NewStore()
	_, _, err := s.Decide("missing", DecisionAccepted, 1000)
	if !copilotcore.IsKind(err, copilotcore.KindNotFound) {
		t.Errorf("expected not_found error, got %v", err)
	}
}

func TestListFiltersByState(t *testing.T) {
	s := NewStore()
	pending := s.Create("pattern-1", nil, Metadata{}, 1000).Candidate
	toAccept := s.Create("pattern-2", nil, Metadata{}, 1000).Candidate
	if _, _, err := s.Decide(toAccept.CandidateID, DecisionAccepted, 1500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pendingList := s.List(statePtr(StatePending))
	if len(pendingList) != 1 || pendingList[0].CandidateID != pending.CandidateID {
		t.Errorf("expected only the pending candidate, got %+v", pendingList)
	}

	acceptedList := s.List(statePtr(StateAccepted))
	if len(acceptedList) != 1 || acceptedList[0].CandidateID != toAccept.CandidateID {
		t.Errorf("expected only the accepted candidate, got %+v", acceptedList)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := NewStore()
	c := s.Create("pattern-1", nil, Metadata{}, 1000).Candidate
	if _, _, err := s.Decide(c.CandidateID, DecisionDismissed, 1500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := s.Snapshot()

	restored := NewStore()
	restored.Restore(snap)

	got, err := restored.Get(c.CandidateID)
	if err != nil {
		t.Fatalf("unexpected error after restore: %v", err)
	}
	if got.State != StateDismissed {
		t.Errorf("expected restored candidate to stay dismissed, got %s", got.State)
	}

	// Dedupe index must also survive the round trip.
	res := restored.Create("pattern-1", nil, Metadata{}, 2000)
	if res.Created {
		t.Error("expected restored store to still honor sticky dedupe")
	}
}

func statePtr(s State) *State { return &s }
