// Package graphstore reads and writes codegraph.db, the side-store shared
// with an external code-indexer. Unlike pkg/store/logstore, this
// package never creates the file: the core treats it as read-mostly and
// fails with ErrCodegraphNotFound if it is absent or not yet provisioned
// with the expected tables.
package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	"github.com/oldnordic/odincode/pkg/whitelist"
)

// Entity is the persisted representation of a GraphEntity.
type Entity struct {
	ID       int64
	Kind     string
	Name     string
	FilePath *string
	DataJSON string
}

// Edge is the persisted representation of a GraphEdge.
type Edge struct {
	ID       int64
	FromID   int64
	ToID     int64
	EdgeType string
	DataJSON string
}

// Store wraps the codegraph.db connection. Like the log store, all writes
// run through a single connection: the graph store is written only from
// the main execution-recording path, never concurrently.
type Store struct {
	db *sql.DB
}

const requiredTablesCheck = `
SELECT count(*) FROM sqlite_master
WHERE type = 'table' AND name IN ('graph_entities', 'graph_edges');`

// Open opens the graph store at path. It returns ErrCodegraphNotFound if
// the file does not exist, or if it exists but lacks the graph_entities /
// graph_edges tables an indexer would have created.
func Open(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		slog.Warn("graphstore: codegraph.db not found", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s", ErrCodegraphNotFound, path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		slog.Warn("graphstore: failed to open database", "path", path, "error", err)
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreUnreachable, path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		slog.Warn("graphstore: database unreachable", "path", path, "error", err)
		return nil, fmt.Errorf("%w: ping %s: %v", ErrStoreUnreachable, path, err)
	}

	var tableCount int
	if err := db.QueryRowContext(ctx, requiredTablesCheck).Scan(&tableCount); err != nil {
		_ = db.Close()
		slog.Warn("graphstore: failed to inspect schema", "path", path, "error", err)
		return nil, fmt.Errorf("%w: inspect schema: %v", ErrStoreUnreachable, err)
	}
	if tableCount < 2 {
		_ = db.Close()
		slog.Warn("graphstore: codegraph.db missing required tables", "path", path)
		return nil, fmt.Errorf("%w: %s missing graph_entities/graph_edges", ErrCodegraphNotFound, path)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for the evidence-query package.
func (s *Store) DB() *sql.DB {
	return s.db
}

func isValidEntityKind(kind string) bool {
	for _, k := range whitelist.IndexerEntityKinds {
		if k == kind {
			return true
		}
	}
	for _, k := range whitelist.CoreEntityKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func isValidEdgeType(edgeType string) bool {
	for _, e := range whitelist.IndexerEdgeTypes {
		if e == edgeType {
			return true
		}
	}
	for _, e := range whitelist.CoreEdgeTypes {
		if e == edgeType {
			return true
		}
	}
	return false
}

// forbiddenEdge reports whether an edge from a source of fromKind to a
// target of toKind is one of the patterns forbidden outright:
// execution→execution, symbol→execution, diagnostic→execution.
func forbiddenEdge(fromKind, toKind string) bool {
	if toKind == "execution" && (fromKind == "execution" || fromKind == "Symbol" || fromKind == "diagnostic") {
		return true
	}
	return false
}

// InsertExecutionEntity inserts a GraphEntity of kind "execution" whose
// data.execution_id bridges back to the log store. It is the first step
// of record_execution's graph transaction.
func (s *Store) InsertExecutionEntity(ctx context.Context, tx *sql.Tx, executionID string) (int64, error) {
	data, err := json.Marshal(map[string]string{"execution_id": executionID})
	if err != nil {
		return 0, fmt.Errorf("%w: marshal execution entity data: %v", ErrValidationRejected, err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO graph_entities (kind, name, file_path, data_json)
		VALUES ('execution', ?, NULL, ?)`,
		executionID, string(data),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert execution entity: %v", ErrStoreUnreachable, err)
	}
	return res.LastInsertId()
}

// InsertEntity inserts a GraphEntity of an arbitrary whitelisted kind —
// used by the chat loop to create chat_session, chat_message, and
// chat_summary entities alongside the execution entities record_execution
// creates for itself.
func (s *Store) InsertEntity(ctx context.Context, tx *sql.Tx, kind, name string, filePath *string, data any) (int64, error) {
	if !isValidEntityKind(kind) {
		return 0, fmt.Errorf("%w: entity kind %q not allowed", ErrValidationRejected, kind)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: marshal entity data: %v", ErrValidationRejected, err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO graph_entities (kind, name, file_path, data_json)
		VALUES (?, ?, ?, ?)`,
		kind, name, filePath, string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert entity: %v", ErrStoreUnreachable, err)
	}
	return res.LastInsertId()
}

// ResolveEntity finds the most recently inserted entity matching name
// and, if provided, filePath — used to resolve record_execution's
// link targets by name/path before inserting an edge.
func (s *Store) ResolveEntity(ctx context.Context, name string, filePath *string) (Entity, error) {
	var row *sql.Row
	if filePath != nil {
		row = s.db.QueryRowContext(ctx, `
			SELECT id, kind, name, file_path, data_json FROM graph_entities
			WHERE name = ? AND file_path = ? ORDER BY id DESC LIMIT 1`, name, *filePath)
	} else {
		row = s.db.QueryRowContext(ctx, `
			SELECT id, kind, name, file_path, data_json FROM graph_entities
			WHERE name = ? ORDER BY id DESC LIMIT 1`, name)
	}
	return scanEntity(row)
}

// GetEntityByExecutionID returns the execution-kind entity bridging to
// execution log row executionID, or ErrNotFound.
func (s *Store) GetEntityByExecutionID(ctx context.Context, executionID string) (Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, name, file_path, data_json FROM graph_entities
		WHERE kind = 'execution' AND name = ? LIMIT 1`, executionID)
	return scanEntity(row)
}

// UpdateEntityData overwrites the data_json of the most recently inserted
// entity matching kind and name, used to bump a chat_session entity's
// last_interaction_at as the session progresses rather than only at
// creation (see pkg/chat's recordSessionStart/touchSessionActivity).
func (s *Store) UpdateEntityData(ctx context.Context, kind, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: marshal entity data: %v", ErrValidationRejected, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE graph_entities SET data_json = ?
		WHERE id = (
			SELECT id FROM graph_entities WHERE kind = ? AND name = ? ORDER BY id DESC LIMIT 1
		)`, string(payload), kind, name)
	if err != nil {
		return fmt.Errorf("%w: update entity: %v", ErrStoreUnreachable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update entity rows affected: %v", ErrStoreUnreachable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertEdge inserts a graph edge within tx, enforcing the edge-type
// whitelist and the forbidden-pattern rules. fromKind/toKind are
// supplied by the caller (already resolved via ResolveEntity or
// InsertExecutionEntity) to avoid a redundant lookup.
func (s *Store) InsertEdge(ctx context.Context, tx *sql.Tx, fromID, toID int64, fromKind, toKind, edgeType string, data any) error {
	if !isValidEdgeType(edgeType) {
		return fmt.Errorf("%w: edge_type %q not allowed", ErrValidationRejected, edgeType)
	}
	if forbiddenEdge(fromKind, toKind) {
		return fmt.Errorf("%w: edge %s->%s forbidden", ErrValidationRejected, fromKind, toKind)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: marshal edge data: %v", ErrValidationRejected, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO graph_edges (from_id, to_id, edge_type, data_json)
		VALUES (?, ?, ?, ?)`, fromID, toID, edgeType, string(payload))
	if err != nil {
		return fmt.Errorf("%w: insert edge: %v", ErrStoreUnreachable, err)
	}
	return nil
}

// BeginTx starts a graph transaction for record_execution's graph-side
// write.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx: %v", ErrStoreUnreachable, err)
	}
	return tx, nil
}

// EdgesFrom returns all edges originating at fromID, ordered by edge_type
// asc then to_id asc, the secondary order used for graph links.
func (s *Store) EdgesFrom(ctx context.Context, fromID int64) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_id, to_id, edge_type, data_json FROM graph_edges
		WHERE from_id = ?
		ORDER BY edge_type ASC, to_id ASC`, fromID)
	if err != nil {
		return nil, fmt.Errorf("%w: query edges: %v", ErrStoreUnreachable, err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.FromID, &e.ToID, &e.EdgeType, &e.DataJSON); err != nil {
			return nil, fmt.Errorf("%w: scan edge: %v", ErrStoreUnreachable, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntitiesTouchingFile returns File/execution entities associated with
// filePath, used by the evidence package's graph path for executions
// touching a file.
func (s *Store) EntitiesTouchingFile(ctx context.Context, filePath string) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, name, file_path, data_json FROM graph_entities
		WHERE file_path = ?
		ORDER BY id ASC`, filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: query entities: %v", ErrStoreUnreachable, err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Kind, &e.Name, &e.FilePath, &e.DataJSON); err != nil {
			return nil, fmt.Errorf("%w: scan entity: %v", ErrStoreUnreachable, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (Entity, error) {
	var e Entity
	var filePath sql.NullString
	err := row.Scan(&e.ID, &e.Kind, &e.Name, &filePath, &e.DataJSON)
	if err == sql.ErrNoRows {
		return Entity{}, ErrNotFound
	}
	if err != nil {
		return Entity{}, fmt.Errorf("%w: scan entity: %v", ErrStoreUnreachable, err)
	}
	if filePath.Valid {
		e.FilePath = &filePath.String
	}
	return e, nil
}
