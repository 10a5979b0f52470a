package projection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/homecopilot/core/internal/copilotcore"
	"github.com/homecopilot/core/internal/graph"
)

// Store is a thin wrapper around a bun.DB holding the graph_nodes mirror.
type Store struct {
	db *bun.DB
}

// Open connects to dsn and ensures the graph_nodes table exists. A nil
// *Store with a nil error is never returned; callers check err.
func Open(ctx context.Context, dsn string) (*Store, error) {
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(30*time.Second),
		pgdriver.WithDialTimeout(10*time.Second),
		pgdriver.WithReadTimeout(10*time.Second),
		pgdriver.WithWriteTimeout(10*time.Second),
	)
	sqldb := sql.OpenDB(connector)
	db := bun.NewDB(sqldb, pgdialect.New())
	db.RegisterModel((*nodeRow)(nil))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("projection: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*nodeRow)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("projection: create table: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Rebuild truncates the mirror and reinserts every node from the in-memory
// graph, in a single transaction. Called periodically by the persist
// daemon, never on the read or write path of IngestEvent.
func (s *Store) Rebuild(ctx context.Context, nodes []*graph.Node) error {
	rows := make([]*nodeRow, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, &nodeRow{
			ID:          string(n.ID),
			Kind:        string(n.Kind),
			Label:       n.Label,
			Domain:      n.Domain,
			UpdatedAtMs: n.UpdatedAtMs,
			Score:       n.Score,
		})
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewTruncateTable().Model((*nodeRow)(nil)).Exec(ctx); err != nil {
			return fmt.Errorf("projection: truncate: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("projection: insert: %w", err)
		}
		return nil
	})
}

// sortColumn maps a service.NodeSort name to its projected column.
func sortColumn(sortField string) string {
	switch sortField {
	case "label":
		return "label"
	case "updated_at":
		return "updated_at_ms"
	default:
		return "score"
	}
}

// Page runs one paginated, sorted query over the mirror. page is 1-indexed;
// order is "asc" or anything else for descending.
func (s *Store) Page(ctx context.Context, page, perPage int, sortField, order string) ([]graph.Node, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 100
	}

	direction := "DESC"
	if order == "asc" {
		direction = "ASC"
	}

	var rows []nodeRow
	err := s.db.NewSelect().
		Model(&rows).
		OrderExpr(fmt.Sprintf("%s %s", sortColumn(sortField), direction)).
		Limit(perPage).
		Offset((page - 1) * perPage).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("projection: page query: %w", err)
	}

	out := make([]graph.Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, graph.Node{
			ID:          copilotcore.NodeID(r.ID),
			Kind:        graph.NodeKind(r.Kind),
			Label:       r.Label,
			Domain:      r.Domain,
			UpdatedAtMs: r.UpdatedAtMs,
			Score:       r.Score,
		})
	}
	return out, nil
}
