package graph

import (
	"context"
	"sort"

	"github.com/homecopilot/core/internal/copilotcore"
)

// PruneResult reports how many nodes and edges a Prune call removed.
type PruneResult struct {
	NodesRemoved int
	EdgesRemoved int
}

// Prune enforces invariants N1, N2, E1, E2 and the capacity bounds (§3.4):
//
//  1. Edges whose effective_weight < EdgeMinWeight are removed.
//  2. Nodes whose effective_score < NodeMinScore AND have zero remaining
//     incident edges are removed, along with any edges that reference them
//     (referential integrity, invariant E1).
//  3. If the node count still exceeds MaxNodes, nodes are trimmed to
//     capacity ordered by (effective_score desc, updated_at desc).
//  4. If the edge count still exceeds MaxEdges, edges are trimmed to
//     capacity ordered by (effective_weight desc, updated_at desc).
//
// Each step performs at most one full scan of its table. The call observes
// ctx between steps and returns promptly on cancellation.
func (s *Store) Prune(ctx context.Context, nowMs int64) (PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result PruneResult

	if err := checkCancel(ctx); err != nil {
		return result, err
	}
	result.EdgesRemoved += s.removeWeakEdgesLocked(nowMs)

	if err := checkCancel(ctx); err != nil {
		return result, err
	}
	nodesRemoved, edgesFromNodes := s.removeDeadNodesLocked(nowMs)
	result.NodesRemoved += nodesRemoved
	result.EdgesRemoved += edgesFromNodes

	if err := checkCancel(ctx); err != nil {
		return result, err
	}
	result.NodesRemoved += s.trimNodesToCapacityLocked(nowMs)

	if err := checkCancel(ctx); err != nil {
		return result, err
	}
	result.EdgesRemoved += s.trimEdgesToCapacityLocked(nowMs)

	return result, nil
}

func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return copilotcore.Cancelled("prune cancelled")
	default:
		return nil
	}
}

// removeWeakEdgesLocked removes edges below the weight threshold. Caller
// holds the write lock.
func (s *Store) removeWeakEdgesLocked(nowMs int64) int {
	removed := 0
	for id, e := range s.edges {
		if e.EffectiveWeight(nowMs, s.bounds.EdgeHalfLifeH) < s.bounds.EdgeMinWeight {
			s.deleteEdgeLocked(id)
			removed++
		}
	}
	return removed
}

// removeDeadNodesLocked removes nodes below the score threshold with zero
// incident edges, plus any edges still referencing them.
func (s *Store) removeDeadNodesLocked(nowMs int64) (nodesRemoved, edgesRemoved int) {
	for id, n := range s.nodes {
		if n.EffectiveScore(nowMs, s.bounds.NodeHalfLifeH) >= s.bounds.NodeMinScore {
			continue
		}
		if len(s.outAdj[id]) > 0 || len(s.inAdj[id]) > 0 {
			continue
		}
		delete(s.nodes, id)
		nodesRemoved++
	}
	// Referential integrity: any edge whose endpoint no longer exists is removed.
	for id, e := range s.edges {
		if _, ok := s.nodes[e.From]; !ok {
			s.deleteEdgeLocked(id)
			edgesRemoved++
			continue
		}
		if _, ok := s.nodes[e.To]; !ok {
			s.deleteEdgeLocked(id)
			edgesRemoved++
		}
	}
	return nodesRemoved, edgesRemoved
}

func (s *Store) trimNodesToCapacityLocked(nowMs int64) int {
	if len(s.nodes) <= s.bounds.MaxNodes {
		return 0
	}
	type scored struct {
		id    copilotcore.NodeID
		score float64
		upd   int64
	}
	all := make([]scored, 0, len(s.nodes))
	for id, n := range s.nodes {
		all = append(all, scored{id, n.EffectiveScore(nowMs, s.bounds.NodeHalfLifeH), n.UpdatedAtMs})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].upd > all[j].upd
	})

	removed := 0
	for _, sc := range all[s.bounds.MaxNodes:] {
		delete(s.nodes, sc.id)
		for _, eid := range s.outAdj[sc.id] {
			s.deleteEdgeLocked(eid)
		}
		for _, eid := range s.inAdj[sc.id] {
			s.deleteEdgeLocked(eid)
		}
		delete(s.outAdj, sc.id)
		delete(s.inAdj, sc.id)
		removed++
	}
	return removed
}

func (s *Store) trimEdgesToCapacityLocked(nowMs int64) int {
	if len(s.edges) <= s.bounds.MaxEdges {
		return 0
	}
	type scored struct {
		id     copilotcore.EdgeID
		weight float64
		upd    int64
	}
	all := make([]scored, 0, len(s.edges))
	for id, e := range s.edges {
		all = append(all, scored{id, e.EffectiveWeight(nowMs, s.bounds.EdgeHalfLifeH), e.UpdatedAtMs})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].weight != all[j].weight {
			return all[i].weight > all[j].weight
		}
		return all[i].upd > all[j].upd
	})

	removed := 0
	for _, sc := range all[s.bounds.MaxEdges:] {
		s.deleteEdgeLocked(sc.id)
		removed++
	}
	return removed
}

// deleteEdgeLocked removes an edge and its adjacency entries. Caller holds
// the write lock.
func (s *Store) deleteEdgeLocked(id copilotcore.EdgeID) {
	e, ok := s.edges[id]
	if !ok {
		return
	}
	delete(s.edges, id)
	s.outAdj[e.From] = removeEdgeID(s.outAdj[e.From], id)
	s.inAdj[e.To] = removeEdgeID(s.inAdj[e.To], id)
}

func removeEdgeID(ids []copilotcore.EdgeID, target copilotcore.EdgeID) []copilotcore.EdgeID {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
