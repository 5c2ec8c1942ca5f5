package graph

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"jarmap/util"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists call graphs in SQLite, one graph per archive fingerprint.
// Writing a graph for a fingerprint that already exists replaces it, so
// re-analysis is idempotent.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id         TEXT PRIMARY KEY,
	archive    TEXT NOT NULL,
	key        TEXT NOT NULL,
	class      TEXT,
	in_archive INTEGER NOT NULL,
	UNIQUE(archive, key)
);
CREATE TABLE IF NOT EXISTS edges (
	archive  TEXT NOT NULL,
	caller   TEXT NOT NULL,
	callee   TEXT NOT NULL,
	relation TEXT NOT NULL,
	ord      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_caller ON edges(archive, caller);
CREATE INDEX IF NOT EXISTS idx_edges_callee ON edges(archive, callee);
CREATE INDEX IF NOT EXISTS idx_nodes_archive ON nodes(archive);
`

// OpenStore opens (creating if needed) the SQLite database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveGraph replaces the stored graph for the given archive fingerprint
// with the builder's nodes and edges, preserving edge order.
func (s *Store) SaveGraph(ctx context.Context, archive string, nodes []*Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE archive = ?`, archive); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE archive = ?`, archive); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}

	insNode, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (id, archive, key, class, in_archive) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insNode.Close()
	insEdge, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (archive, caller, callee, relation, ord) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insEdge.Close()

	ord := 0
	for _, n := range nodes {
		class := ""
		if n.Class != nil {
			class = n.Class.ClassName()
		}
		id := util.GenerateNodeID(archive, n.Key)
		if _, err := insNode.ExecContext(ctx, id, archive, n.Key, class, boolToInt(n.InArchive())); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.Key, err)
		}
		for _, callee := range n.Callees {
			if _, err := insEdge.ExecContext(ctx, archive, n.Key, callee.Key, RelationCalls, ord); err != nil {
				return fmt.Errorf("failed to insert edge %s -> %s: %w", n.Key, callee.Key, err)
			}
			ord++
		}
	}

	return tx.Commit()
}

// HasArchive reports whether a graph for the fingerprint is stored.
func (s *Store) HasArchive(ctx context.Context, archive string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nodes WHERE archive = ?`, archive).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query archive: %w", err)
	}
	return n > 0, nil
}

// MethodKeys returns every node key of the archive's graph in insertion
// order.
func (s *Store) MethodKeys(ctx context.Context, archive string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM nodes WHERE archive = ? ORDER BY rowid`, archive)
	if err != nil {
		return nil, fmt.Errorf("failed to query methods: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// Callers returns the keys that invoke the given method, in call-site
// order.
func (s *Store) Callers(ctx context.Context, archive, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT caller FROM edges WHERE archive = ? AND callee = ? ORDER BY ord`, archive, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query callers: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// Callees returns the keys the given method invokes, in call-site order.
func (s *Store) Callees(ctx context.Context, archive, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT callee FROM edges WHERE archive = ? AND caller = ? ORDER BY ord`, archive, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query callees: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// PruneStaleArchives deletes every stored graph whose fingerprint is not
// in keep.
func (s *Store) PruneStaleArchives(ctx context.Context, keep []string) error {
	if len(keep) == 0 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
			return err
		}
		_, err := s.db.ExecContext(ctx, `DELETE FROM edges`)
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
	args := make([]any, len(keep))
	for i, k := range keep {
		args[i] = k
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE archive NOT IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("failed to prune nodes: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM edges WHERE archive NOT IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("failed to prune edges: %w", err)
	}
	return nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
