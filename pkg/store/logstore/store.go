// Package logstore implements the core's own append-only execution log:
// a single SQLite file under the configured root directory,
// auto-created if missing, holding the executions and execution_artifacts
// tables. It never shares its schema with an external process — contrast
// with pkg/store/graphstore, which reads a store an external indexer owns.
package logstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registers "sqlite"

	"github.com/oldnordic/odincode/pkg/whitelist"
)

// ExecutionRow is the persisted representation of an Execution.
type ExecutionRow struct {
	ID           string
	ToolName     string
	ArgumentsJSON string // canonicalized via pkg/canon before storage
	TimestampMs  int64
	Success      bool
	ExitCode     *int64
	DurationMs   *int64
	ErrorMessage *string
}

// ArtifactRow is the persisted representation of an Artifact.
type ArtifactRow struct {
	ExecutionID  string
	ArtifactType string
	ContentJSON  string
}

// Store wraps the execution_log.db connection. All writes are serialized
// through a single connection (SetMaxOpenConns(1)): the log store has a
// single writer at a time, serialized on the caller's own thread.
type Store struct {
	db *sql.DB
}

// Open opens (creating if missing) the log store file at path and applies
// the fixed schema. Auto-creation is unconditional — the log store is the
// core's own, unlike the graph store which must pre-exist.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		slog.Warn("logstore: failed to open database", "path", path, "error", err)
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreUnreachable, path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		slog.Warn("logstore: database unreachable", "path", path, "error", err)
		return nil, fmt.Errorf("%w: ping %s: %v", ErrStoreUnreachable, path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		slog.Warn("logstore: failed to enable foreign keys", "path", path, "error", err)
		return nil, fmt.Errorf("%w: enable foreign keys: %v", ErrStoreUnreachable, err)
	}

	for _, stmt := range splitStatements(schemaSQL()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			slog.Warn("logstore: failed to apply schema", "path", path, "error", err)
			return nil, fmt.Errorf("%w: apply schema: %v", ErrStoreUnreachable, err)
		}
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for the evidence-query package,
// which issues read-only SQL directly against this store.
func (s *Store) DB() *sql.DB {
	return s.db
}

// InsertExecutionWithArtifacts performs the first half of the dual-write
// protocol: begin a log transaction, insert the execution row, insert all
// artifact rows, commit. On any failure the transaction rolls back and
// nothing is written — callers must not have made any graph-store call
// yet when this returns an error.
func (s *Store) InsertExecutionWithArtifacts(ctx context.Context, exec ExecutionRow, artifacts []ArtifactRow) error {
	if !whitelist.IsValidLogToolName(exec.ToolName) {
		return fmt.Errorf("%w: tool_name %q not in whitelist", ErrValidationRejected, exec.ToolName)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Warn("logstore: failed to begin transaction", "execution_id", exec.ID, "error", err)
		return fmt.Errorf("%w: begin tx: %v", ErrStoreUnreachable, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO executions
			(id, tool_name, arguments_json, timestamp_ms, success, exit_code, duration_ms, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.ToolName, exec.ArgumentsJSON, exec.TimestampMs, boolToInt(exec.Success),
		exec.ExitCode, exec.DurationMs, exec.ErrorMessage,
	)
	if err != nil {
		slog.Warn("logstore: failed to insert execution row", "execution_id", exec.ID, "error", err)
		return fmt.Errorf("%w: insert execution: %v", ErrValidationRejected, err)
	}

	for _, a := range artifacts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO execution_artifacts (execution_id, artifact_type, content_json)
			VALUES (?, ?, ?)`,
			exec.ID, a.ArtifactType, a.ContentJSON,
		)
		if err != nil {
			slog.Warn("logstore: failed to insert artifact row", "execution_id", exec.ID, "artifact_type", a.ArtifactType, "error", err)
			return fmt.Errorf("%w: insert artifact %s: %v", ErrValidationRejected, a.ArtifactType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Warn("logstore: transaction commit failed", "execution_id", exec.ID, "error", err)
		return fmt.Errorf("%w: commit: %v", ErrStoreUnreachable, err)
	}
	return nil
}

// GetExecution returns the execution row for id, or ErrNotFound.
func (s *Store) GetExecution(ctx context.Context, id string) (ExecutionRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tool_name, arguments_json, timestamp_ms, success, exit_code, duration_ms, error_message
		FROM executions WHERE id = ?`, id)
	return scanExecution(row)
}

// GetArtifacts returns all artifacts for an execution, ordered by
// artifact_type ascending, the evidence package's primary sort order.
func (s *Store) GetArtifacts(ctx context.Context, executionID string) ([]ArtifactRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT execution_id, artifact_type, content_json
		FROM execution_artifacts
		WHERE execution_id = ?
		ORDER BY artifact_type ASC, id ASC`, executionID)
	if err != nil {
		return nil, fmt.Errorf("%w: query artifacts: %v", ErrStoreUnreachable, err)
	}
	defer rows.Close()

	var out []ArtifactRow
	for rows.Next() {
		var a ArtifactRow
		if err := rows.Scan(&a.ExecutionID, &a.ArtifactType, &a.ContentJSON); err != nil {
			return nil, fmt.Errorf("%w: scan artifact: %v", ErrStoreUnreachable, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (ExecutionRow, error) {
	var e ExecutionRow
	var success int
	var exitCode, durationMs sql.NullInt64
	var errMsg sql.NullString
	err := row.Scan(&e.ID, &e.ToolName, &e.ArgumentsJSON, &e.TimestampMs, &success, &exitCode, &durationMs, &errMsg)
	if err == sql.ErrNoRows {
		return ExecutionRow{}, ErrNotFound
	}
	if err != nil {
		return ExecutionRow{}, fmt.Errorf("%w: scan execution: %v", ErrStoreUnreachable, err)
	}
	e.Success = success != 0
	if exitCode.Valid {
		e.ExitCode = &exitCode.Int64
	}
	if durationMs.Valid {
		e.DurationMs = &durationMs.Int64
	}
	if errMsg.Valid {
		e.ErrorMessage = &errMsg.String
	}
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NowMs returns the current wall clock in milliseconds since the Unix
// epoch, the unit timestamp_ms is stored in throughout the core.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// splitStatements splits a block of ";"-terminated SQL statements emitted
// by schemaSQL for sequential ExecContext calls (database/sql drivers
// generally do not support multi-statement Exec).
func splitStatements(block string) []string {
	var out []string
	var cur []byte
	for i := 0; i < len(block); i++ {
		c := block[i]
		cur = append(cur, c)
		if c == ';' {
			out = append(out, string(cur))
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
