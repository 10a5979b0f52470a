package graph

import (
	"sort"
	"sync"
	"time"

	"github.com/homecopilot/core/internal/copilotcore"
)

// Store is the Brain Graph Store: a single-writer, many-reader bounded
// property graph. Readers observe a snapshot consistent for the duration
// of a single operation, achieved by holding the read lock for the whole
// call rather than per-item.
type Store struct {
	mu     sync.RWMutex
	nodes  map[copilotcore.NodeID]*Node
	edges  map[copilotcore.EdgeID]*Edge
	outAdj map[copilotcore.NodeID][]copilotcore.EdgeID
	inAdj  map[copilotcore.NodeID][]copilotcore.EdgeID

	bounds Bounds

	// nowFn is overridable for deterministic tests, mirroring the
	// teacher's TimeSince indirection.
	nowFn func() int64
}

// NewStore creates an empty graph store with the given capacity bounds.
func NewStore(bounds Bounds) *Store {
	return &Store{
		nodes:  make(map[copilotcore.NodeID]*Node),
		edges:  make(map[copilotcore.EdgeID]*Edge),
		outAdj: make(map[copilotcore.NodeID][]copilotcore.EdgeID),
		inAdj:  make(map[copilotcore.NodeID][]copilotcore.EdgeID),
		bounds: bounds,
		nowFn:  func() int64 { return time.Now().UnixMilli() },
	}
}

// Lock/Unlock/RLock/RUnlock are exported so callers composing multiple
// store operations into one atomic unit (e.g. the worker pool) can hold
// the lock across them without reaching into unexported fields.
func (s *Store) Lock()    { s.mu.Lock() }
func (s *Store) Unlock()  { s.mu.Unlock() }
func (s *Store) RLock()   { s.mu.RLock() }
func (s *Store) RUnlock() { s.mu.RUnlock() }

// UpsertNode inserts or updates a node, idempotent on ID. Returns true if
// the node was newly created. Free-text fields are redacted/clamped before
// storage.
func (s *Store) UpsertNode(n *Node) (bool, error) {
	if n.ID == "" {
		return false, copilotcore.InvalidInput("node id must not be empty")
	}
	if err := copilotcore.ValidateLabel(n.Label); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clean := *n
	clean.Label = copilotcore.NormalizeLabel(n.Label)
	clean.Tags = copilotcore.ClampTags(n.Tags)
	clean.Meta = copilotcore.ClampMeta(n.Meta)
	if clean.UpdatedAtMs == 0 {
		clean.UpdatedAtMs = s.nowFn()
	}
	if clean.Score < 0 {
		clean.Score = 0
	}

	_, existed := s.nodes[clean.ID]
	s.nodes[clean.ID] = &clean
	return !existed, nil
}

// UpsertEdge inserts or updates an edge, idempotent on ID (derived from
// from|type|to). Returns true if newly created. Both endpoints must
// already exist (invariant E1 is enforced at prune time for removals, but
// creation requires endpoints to exist so the graph never contains a
// dangling edge even transiently).
func (s *Store) UpsertEdge(e *Edge) (bool, error) {
	if e.From == "" || e.To == "" {
		return false, copilotcore.InvalidInput("edge endpoints must not be empty")
	}
	id := copilotcore.NewEdgeID(e.From, string(e.EdgeType), e.To)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[e.From]; !ok {
		return false, copilotcore.NotFound("edge endpoint %q does not exist", e.From)
	}
	if _, ok := s.nodes[e.To]; !ok {
		return false, copilotcore.NotFound("edge endpoint %q does not exist", e.To)
	}

	clean := *e
	clean.ID = id
	clean.Meta = copilotcore.ClampMeta(e.Meta)
	if clean.UpdatedAtMs == 0 {
		clean.UpdatedAtMs = s.nowFn()
	}

	_, existed := s.edges[id]
	s.edges[id] = &clean
	if !existed {
		s.outAdj[e.From] = append(s.outAdj[e.From], id)
		s.inAdj[e.To] = append(s.inAdj[e.To], id)
	}
	return !existed, nil
}

// GetNodes returns nodes matching the optional kind/domain filters, ordered
// by score descending, capped at limit (0 means unlimited).
func (s *Store) GetNodes(kinds []NodeKind, domains []string, limit int) []*Node {
	kindSet := toSet(kinds)
	domainSet := toStrSet(domains)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if len(kindSet) > 0 {
			if _, ok := kindSet[n.Kind]; !ok {
				continue
			}
		}
		if len(domainSet) > 0 {
			if _, ok := domainSet[n.Domain]; !ok {
				continue
			}
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GetEdges returns edges matching the optional from/to/type filters,
// ordered by weight descending, capped at limit (0 means unlimited).
func (s *Store) GetEdges(from, to *copilotcore.NodeID, types []EdgeType, limit int) []*Edge {
	typeSet := toEdgeTypeSet(types)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if from != nil && e.From != *from {
			continue
		}
		if to != nil && e.To != *to {
			continue
		}
		if len(typeSet) > 0 {
			if _, ok := typeSet[e.EdgeType]; !ok {
				continue
			}
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GetNode returns a copy of the node stored under id, if any.
func (s *Store) GetNode(id copilotcore.NodeID) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	cp := *n
	return &cp, true
}

// Stats reports store-wide counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Nodes:    len(s.nodes),
		Edges:    len(s.edges),
		MaxNodes: s.bounds.MaxNodes,
		MaxEdges: s.bounds.MaxEdges,
	}
}

func toSet(kinds []NodeKind) map[NodeKind]struct{} {
	if len(kinds) == 0 {
		return nil
	}
	m := make(map[NodeKind]struct{}, len(kinds))
	for _, k := range kinds {
		m[k] = struct{}{}
	}
	return m
}

func toStrSet(ss []string) map[string]struct{} {
	if len(ss) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		m[s] = struct{}{}
	}
	return m
}

func toEdgeTypeSet(types []EdgeType) map[EdgeType]struct{} {
	if len(types) == 0 {
		return nil
	}
	m := make(map[EdgeType]struct{}, len(types))
	for _, t := range types {
		m[t] = struct{}{}
	}
	return m
}
