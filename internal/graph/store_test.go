package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/homecopilot/core/internal/copilotcore"
)

func newTestStore() *Store {
	return NewStore(DefaultBounds())
}

func TestUpsertNodeIsIdempotentOnID(t *testing.T) {
	s := newTestStore()
	n := &Node{ID: "n1", Kind: KindEntity, Label: "Kitchen light", Score: 0.5}

	created, err := s.UpsertNode(n)
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}

	n2 := &Node{ID: "n1", Kind: KindEntity, Label: "Kitchen light v2", Score: 0.8}
	created, err = s.UpsertNode(n2)
	if err != nil || created {
		t.Fatalf("expected update not creation, got created=%v err=%v", created, err)
	}

	got := s.GetNodes(nil, nil, 0)
	if len(got) != 1 || got[0].Label != "Kitchen light v2" {
		t.Errorf("expected updated label, got %+v", got)
	}
}

func TestUpsertEdgeRequiresExistingEndpoints(t *testing.T) {
	s := newTestStore()
	_, err := s.UpsertEdge(&Edge{From: "a", To: "b", EdgeType: EdgeAffects, Weight: 0.5})
	if err == nil {
		t.Fatal("expected error for missing endpoints")
	}
}

func TestNeighborhoodBothEndpointsInSet(t *testing.T) {
	s := newTestStore()
	for _, id := range []string{"a", "b", "c", "d"} {
		s.UpsertNode(&Node{ID: copilotcore.NodeID(id), Kind: KindEntity, Label: id, Score: 0.5})
	}
	s.UpsertEdge(&Edge{From: "a", To: "b", EdgeType: EdgeAffects, Weight: 0.9})
	s.UpsertEdge(&Edge{From: "b", To: "c", EdgeType: EdgeAffects, Weight: 0.9})
	s.UpsertEdge(&Edge{From: "c", To: "d", EdgeType: EdgeAffects, Weight: 0.9})

	nodes, edges, err := s.Neighborhood(context.Background(), "a", 2, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nodeSet := map[copilotcore.NodeID]struct{}{}
	for _, n := range nodes {
		nodeSet[n.ID] = struct{}{}
	}
	for _, e := range edges {
		if _, ok := nodeSet[e.From]; !ok {
			t.Errorf("edge %s endpoint From not in node set", e.ID)
		}
		if _, ok := nodeSet[e.To]; !ok {
			t.Errorf("edge %s endpoint To not in node set", e.ID)
		}
	}
	if _, ok := nodeSet["d"]; ok {
		t.Error("expected node d to be out of reach at hop=2")
	}
}

func TestNeighborhoodEmptyGraphUnknownNode(t *testing.T) {
	s := newTestStore()
	_, _, err := s.Neighborhood(context.Background(), "missing", 1, 0, 0)
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestPruneCapacityBound(t *testing.T) {
	bounds := DefaultBounds()
	s := NewStore(bounds)
	for i := 0; i < 600; i++ {
		id := copilotcore.NodeID(fmt.Sprintf("n%d", i))
		s.UpsertNode(&Node{ID: id, Kind: KindEntity, Label: string(id), Score: float64(i) / 600})
	}

	result, err := s.Prune(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats := s.Stats()
	if stats.Nodes != 500 {
		t.Errorf("expected 500 nodes after prune, got %d (removed %d)", stats.Nodes, result.NodesRemoved)
	}
	for _, n := range s.GetNodes(nil, nil, 0) {
		if n.Score < 100.0/600 {
			t.Errorf("expected surviving node score >= 100/600, got %f", n.Score)
		}
	}
}

func TestPruneRemovesDeadNodesWithNoEdges(t *testing.T) {
	s := newTestStore()
	s.UpsertNode(&Node{ID: "dead", Kind: KindEntity, Label: "dead", Score: 0.01})
	s.UpsertNode(&Node{ID: "alive", Kind: KindEntity, Label: "alive", Score: 0.9})

	result, err := s.Prune(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NodesRemoved != 1 {
		t.Errorf("expected 1 node removed, got %d", result.NodesRemoved)
	}
	stats := s.Stats()
	if stats.Nodes != 1 {
		t.Errorf("expected 1 surviving node, got %d", stats.Nodes)
	}
}

func TestPruneCancellation(t *testing.T) {
	s := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Prune(ctx, 0)
	if !copilotcore.IsKind(err, copilotcore.KindCancelled) {
		t.Errorf("expected cancelled error, got %v", err)
	}
}

func TestEffectiveScoreMonotonicWithoutWrites(t *testing.T) {
	n := &Node{ID: "n1", Score: 1.0, UpdatedAtMs: 0}
	v1 := n.EffectiveScore(1000*3600*12, 24)
	v2 := n.EffectiveScore(1000*3600*24, 24)
	if v2 > v1 {
		t.Errorf("expected effective score to decay over time, got v1=%f v2=%f", v1, v2)
	}
}
