package graph

import (
	"context"
	"sort"

	"github.com/homecopilot/core/internal/copilotcore"
)

// Neighborhood returns the set of nodes and edges reachable from center
// within hops (1, 2, or 3), applying maxNodes/maxEdges limits by salience.
// Every returned edge has both endpoints in the returned node set
// (invariant I6).
//
// Expansion is performed in two set-valued bulk passes per hop — outbound
// union inbound adjacency lookups across the whole current frontier at
// once — followed by a single bulk node fetch and a single bulk edge fetch
// restricted to the final node set. No per-discovered-node query is issued;
// the N+1 pattern is explicitly forbidden by this shape.
func (s *Store) Neighborhood(ctx context.Context, center copilotcore.NodeID, hops int, maxNodes, maxEdges int) ([]*Node, []*Edge, error) {
	if hops < 1 {
		hops = 1
	}
	if hops > 3 {
		hops = 3
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[center]; !ok {
		return nil, nil, copilotcore.NotFound("node %q not found", center)
	}

	visited := map[copilotcore.NodeID]struct{}{center: {}}
	frontier := []copilotcore.NodeID{center}

	for h := 0; h < hops; h++ {
		select {
		case <-ctx.Done():
			return nil, nil, copilotcore.Cancelled("neighborhood expansion cancelled")
		default:
		}

		discovered := make(map[copilotcore.NodeID]struct{})
		for _, nodeID := range frontier {
			for _, eid := range s.outAdj[nodeID] {
				if e, ok := s.edges[eid]; ok {
					discovered[e.To] = struct{}{}
				}
			}
			for _, eid := range s.inAdj[nodeID] {
				if e, ok := s.edges[eid]; ok {
					discovered[e.From] = struct{}{}
				}
			}
		}

		next := make([]copilotcore.NodeID, 0, len(discovered))
		for id := range discovered {
			if _, seen := visited[id]; !seen {
				visited[id] = struct{}{}
				next = append(next, id)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	// Single bulk node fetch over the final visited set.
	nodes := make([]*Node, 0, len(visited))
	for id := range visited {
		if n, ok := s.nodes[id]; ok {
			cp := *n
			nodes = append(nodes, &cp)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Score > nodes[j].Score })
	if maxNodes > 0 && len(nodes) > maxNodes {
		nodes = nodes[:maxNodes]
	}

	finalSet := make(map[copilotcore.NodeID]struct{}, len(nodes))
	for _, n := range nodes {
		finalSet[n.ID] = struct{}{}
	}

	// Single bulk edge fetch restricted to the final node set.
	edges := make([]*Edge, 0)
	for _, e := range s.edges {
		_, fromOK := finalSet[e.From]
		_, toOK := finalSet[e.To]
		if fromOK && toOK {
			cp := *e
			edges = append(edges, &cp)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Weight > edges[j].Weight })
	if maxEdges > 0 && len(edges) > maxEdges {
		edges = edges[:maxEdges]
	}

	return nodes, edges, nil
}
