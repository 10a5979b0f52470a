package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/homecopilot/core/internal/candidate"
	"github.com/homecopilot/core/internal/config"
	"github.com/homecopilot/core/internal/copilotcore"
	"github.com/homecopilot/core/internal/dispatcher"
)

func newTestCore(t *testing.T) *Core {
	t.Helper()
	dir, err := os.MkdirTemp("", "service-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := config.DefaultConfig()
	cfg.Storage.DataPath = dir
	cfg.Miner.ThrottleSec = 0

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error constructing core: %v", err)
	}
	t.Cleanup(c.Stop)
	return c
}

func TestIngestEventRejectsMissingEntityID(t *testing.T) {
	c := newTestCore(t)
	err := c.IngestEvent(copilotcore.Event{TsMs: 1, Transition: "on"})
	if !copilotcore.IsKind(err, copilotcore.KindInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestIngestEventRejectsNonMonotonicBeyondTolerance(t *testing.T) {
	c := newTestCore(t)
	base := time.Now().UnixMilli()
	if err := c.IngestEvent(copilotcore.Event{TsMs: base, EntityID: "light.kitchen", Transition: "on"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := c.IngestEvent(copilotcore.Event{TsMs: base - tsTolerance.Milliseconds() - 1000, EntityID: "light.kitchen", Transition: "off"})
	if !copilotcore.IsKind(err, copilotcore.KindInvalidInput) {
		t.Errorf("expected invalid_input for stale event, got %v", err)
	}
}

func TestIngestEventCreatesEntityNode(t *testing.T) {
	c := newTestCore(t)
	nowMs := time.Now().UnixMilli()
	if err := c.IngestEvent(copilotcore.Event{TsMs: nowMs, EntityID: "light.kitchen", Domain: "light", Transition: "on"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := c.GetState(context.Background(), StateFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Nodes) != 1 || string(state.Nodes[0].ID) != "light.kitchen" {
		t.Errorf("expected a single entity node, got %+v", state.Nodes)
	}
}

func TestIngestEventWithZoneCreatesInZoneEdge(t *testing.T) {
	c := newTestCore(t)
	nowMs := time.Now().UnixMilli()
	err := c.IngestEvent(copilotcore.Event{
		TsMs: nowMs, EntityID: "light.kitchen", Domain: "light", Transition: "on",
		Context: map[string]string{"zone": "kitchen"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := c.GetState(context.Background(), StateFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Edges) != 1 {
		t.Fatalf("expected one in_zone edge, got %d", len(state.Edges))
	}
}

func TestGetNodesPaginates(t *testing.T) {
	c := newTestCore(t)
	nowMs := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		entity := "light.room" + string(rune('a'+i))
		if err := c.IngestEvent(copilotcore.Event{TsMs: nowMs, EntityID: entity, Domain: "light", Transition: "on"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	page1 := c.GetNodes(1, 2, SortLabel, OrderAsc)
	if len(page1) != 2 {
		t.Fatalf("expected page size 2, got %d", len(page1))
	}
	page3 := c.GetNodes(3, 2, SortLabel, OrderAsc)
	if len(page3) != 1 {
		t.Fatalf("expected last page to hold the remainder (1), got %d", len(page3))
	}
}

func TestDecideAcceptPublishesCandidateAccepted(t *testing.T) {
	c := newTestCore(t)
	res := c.candidates.Create("pattern:a->b@30s", nil, candidate.Metadata{}, time.Now().UnixMilli())

	received := make(chan dispatcher.Message, 1)
	c.Subscribe(dispatcher.TopicCandidateAccepted, func(msg dispatcher.Message) {
		received <- msg
	})

	_, err := c.Decide(res.Candidate.CandidateID, candidate.DecisionAccepted, "looks good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Topic != dispatcher.TopicCandidateAccepted {
			t.Errorf("expected CandidateAccepted topic, got %s", msg.Topic)
		}
	default:
		t.Error("expected CandidateAccepted to be published")
	}

	got, err := c.candidates.Get(res.Candidate.CandidateID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.State != candidate.StateAccepted {
		t.Errorf("expected accepted state, got %s", got.State)
	}
}

func TestAcknowledgeAdoptionPublishesForAcceptedCandidate(t *testing.T) {
	c := newTestCore(t)
	res := c.candidates.Create("pattern:a->b@30s", nil, candidate.Metadata{}, time.Now().UnixMilli())
	if _, err := c.Decide(res.Candidate.CandidateID, candidate.DecisionAccepted, "ok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	received := make(chan dispatcher.Message, 1)
	c.Subscribe(dispatcher.TopicAutomationAdoptionAcked, func(msg dispatcher.Message) {
		received <- msg
	})

	if err := c.AcknowledgeAdoption(res.Candidate.CandidateID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Topic != dispatcher.TopicAutomationAdoptionAcked {
			t.Errorf("expected AutomationAdoptionAcked topic, got %s", msg.Topic)
		}
	default:
		t.Error("expected AutomationAdoptionAcked to be published")
	}
}

func TestAcknowledgeAdoptionRejectsUnacceptedCandidate(t *testing.T) {
	c := newTestCore(t)
	res := c.candidates.Create("pattern:a->b@30s", nil, candidate.Metadata{}, time.Now().UnixMilli())

	err := c.AcknowledgeAdoption(res.Candidate.CandidateID)
	if !copilotcore.IsKind(err, copilotcore.KindInvalidInput) {
		t.Errorf("expected invalid_input for a pending candidate, got %v", err)
	}
}

func TestDecideUnknownCandidateIsNotFound(t *testing.T) {
	c := newTestCore(t)
	_, err := c.Decide("missing", candidate.DecisionAccepted, "")
	if !copilotcore.IsKind(err, copilotcore.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestPruneSucceedsOnEmptyGraph(t *testing.T) {
	c := newTestCore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.Prune(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "service-persist-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	cfg := config.DefaultConfig()
	cfg.Storage.DataPath = dir

	c1, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nowMs := time.Now().UnixMilli()
	if err := c1.IngestEvent(copilotcore.Event{TsMs: nowMs, EntityID: "light.kitchen", Domain: "light", Transition: "on"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c1.persistAll(); err != nil {
		t.Fatalf("unexpected error persisting: %v", err)
	}
	c1.Stop()

	c2, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error reopening: %v", err)
	}
	defer c2.Stop()

	state, err := c2.GetState(context.Background(), StateFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Nodes) != 1 {
		t.Errorf("expected restored node, got %d nodes", len(state.Nodes))
	}
}
