package service

import (
	"context"
	"sort"

	"github.com/homecopilot/core/internal/candidate"
	"github.com/homecopilot/core/internal/concurrency"
	"github.com/homecopilot/core/internal/copilotcore"
	"github.com/homecopilot/core/internal/graph"
	"github.com/homecopilot/core/internal/miner"
)

// StateFilters selects the slice of the graph GetState returns (§6.2).
type StateFilters struct {
	Kinds      []graph.NodeKind
	Domains    []string
	Center     *copilotcore.NodeID
	Hops       int
	LimitNodes int
	LimitEdges int
}

// State is the result of GetState: a consistent node/edge slice as of
// GeneratedAtMs.
type State struct {
	Nodes         []*graph.Node
	Edges         []*graph.Edge
	GeneratedAtMs int64
}

// GetState returns the graph slice described by filters. When Center is
// set, the slice is the Neighborhood of that node out to Hops; otherwise
// it is GetNodes/GetEdges filtered by Kinds/Domains.
func (c *Core) GetState(ctx context.Context, f StateFilters) (*State, error) {
	limitNodes := f.LimitNodes
	if limitNodes <= 0 || limitNodes > 500 {
		limitNodes = 500
	}
	limitEdges := f.LimitEdges
	if limitEdges <= 0 || limitEdges > 1500 {
		limitEdges = 1500
	}

	nowMs := now()
	if f.Center != nil {
		hops := f.Hops
		if hops < 1 || hops > 3 {
			hops = 1
		}
		nodes, edges, err := c.graph.Neighborhood(ctx, *f.Center, hops, limitNodes, limitEdges)
		if err != nil {
			return nil, err
		}
		return &State{Nodes: nodes, Edges: edges, GeneratedAtMs: nowMs}, nil
	}

	nodes := c.graph.GetNodes(f.Kinds, f.Domains, limitNodes)
	edges := c.graph.GetEdges(nil, nil, nil, limitEdges)
	return &State{Nodes: nodes, Edges: edges, GeneratedAtMs: nowMs}, nil
}

// NodeSort selects the GetNodes ordering field.
type NodeSort string

const (
	SortScore     NodeSort = "score"
	SortLabel     NodeSort = "label"
	SortUpdatedAt NodeSort = "updated_at"
)

// NodeOrder selects ascending or descending GetNodes order.
type NodeOrder string

const (
	OrderAsc  NodeOrder = "asc"
	OrderDesc NodeOrder = "desc"
)

// GetNodes returns one page of nodes, sorted per sort/order (§6.2). Pages
// are 1-indexed; perPage is clamped to 100. When a graph projection is
// configured, pagination/sort is pushed to it; a query error or an unset
// projection falls back to sorting the in-memory node set directly.
func (c *Core) GetNodes(page, perPage int, by NodeSort, order NodeOrder) []*graph.Node {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 100
	}

	if c.proj != nil {
		rows, err := c.proj.Page(context.Background(), page, perPage, string(by), string(order))
		if err != nil {
			c.log.Warn().Err(err).Msg("graph projection query failed, falling back to in-memory pagination")
		} else {
			out := make([]*graph.Node, len(rows))
			for i := range rows {
				out[i] = &rows[i]
			}
			return out
		}
	}

	all := c.graph.GetNodes(nil, nil, 0)
	sortNodes(all, by, order)

	start := (page - 1) * perPage
	if start >= len(all) {
		return nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func sortNodes(nodes []*graph.Node, by NodeSort, order NodeOrder) {
	less := func(i, j int) bool {
		switch by {
		case SortLabel:
			return nodes[i].Label < nodes[j].Label
		case SortUpdatedAt:
			return nodes[i].UpdatedAtMs < nodes[j].UpdatedAtMs
		default:
			return nodes[i].Score < nodes[j].Score
		}
	}
	if order != OrderAsc {
		base := less
		less = func(i, j int) bool { return base(j, i) }
	}
	sort.SliceStable(nodes, less)
}

// Prune runs a graph pruning pass synchronously via the worker pool (§6.2),
// enforcing capacity bounds and decay invariants.
func (c *Core) Prune(ctx context.Context) (graph.PruneResult, error) {
	res, err := c.pool.Submit(ctx, concurrency.OpPrune, func(ctx context.Context) (any, error) {
		return c.graph.Prune(ctx, now())
	})
	if err != nil {
		return graph.PruneResult{}, err
	}
	return res.(graph.PruneResult), nil
}

// Patterns returns up to limit mined rules backing pending candidates,
// ranked by Rule.Score() descending (§6.2). limit is clamped to 20.
func (c *Core) Patterns(limit int) []*miner.Rule {
	if limit <= 0 || limit > 20 {
		limit = 20
	}
	pending := candidate.StatePending
	cands := c.candidates.List(&pending)

	rules := make([]*miner.Rule, 0, len(cands))
	for _, cd := range cands {
		if r, ok := cd.Evidence.(*miner.Rule); ok {
			rules = append(rules, r)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Score() > rules[j].Score() })
	if len(rules) > limit {
		rules = rules[:limit]
	}
	return rules
}
