// Package projection mirrors the Brain Graph Store's nodes into an optional
// Postgres-backed table via uptrace/bun, so GetNodes(page, per_page, sort,
// order) can push pagination/sort to a query engine instead of sorting the
// whole in-memory map on every call. The in-memory graph.Store is always the
// source of truth; this package never accepts a write that didn't already
// land there, and Rebuild can always reconstruct the table from scratch.
package projection

import (
	"github.com/uptrace/bun"
)

// nodeRow is the projected shape of a graph.Node row.
type nodeRow struct {
	bun.BaseModel `bun:"table:graph_nodes,alias:gn"`

	ID          string `bun:"id,pk"`
	Kind        string `bun:"kind,notnull"`
	Label       string `bun:"label,notnull"`
	Domain      string `bun:"domain"`
	UpdatedAtMs int64  `bun:"updated_at_ms,notnull"`
	Score       float64 `bun:"score,notnull"`
}
