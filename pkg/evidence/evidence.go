// Package evidence implements the eight deterministic, read-only
// evidence queries: every query carries a
// mandatory total ordering (primary sort, then a unique id tie-break) so
// two invocations against the same underlying data return byte-identical
// row sequences.
package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/store/graphstore"
	"github.com/oldnordic/odincode/pkg/store/logstore"
)

// DataSource records whether a row relying on the graph store was
// actually answered via the graph, or degraded to argument-parsing
// because the graph store was unreachable.
type DataSource string

const (
	DataSourceGraph    DataSource = "graph"
	DataSourceFallback DataSource = "fallback"
)

// mutationTools are the tool names whose successful execution counts as
// a "fix" for Q8's temporal-adjacency search — the tools capable of
// changing file contents.
var mutationTools = []string{"file_write", "file_create", "file_edit", "splice_patch", "splice_plan"}

// Evidence answers Q1-Q8 against a Memory's log and graph stores.
type Evidence struct {
	mem *memory.Memory
}

// New constructs an Evidence query handle over an already-open Memory.
func New(mem *memory.Memory) *Evidence {
	return &Evidence{mem: mem}
}

// ExecutionResult is the row shape shared by Q1, Q2, Q3.
type ExecutionResult struct {
	ID            string
	ToolName      string
	ArgumentsJSON string
	TimestampMs   int64
	Success       bool
	ExitCode      *int64
	DurationMs    *int64
	ErrorMessage  *string
}

func fromLogRow(r logstore.ExecutionRow) ExecutionResult {
	return ExecutionResult{
		ID: r.ID, ToolName: r.ToolName, ArgumentsJSON: r.ArgumentsJSON,
		TimestampMs: r.TimestampMs, Success: r.Success,
		ExitCode: r.ExitCode, DurationMs: r.DurationMs, ErrorMessage: r.ErrorMessage,
	}
}

// Q1: executions of a tool within a time range, oldest first.
func (e *Evidence) Q1(ctx context.Context, toolName string, since, until int64, limit int) ([]ExecutionResult, error) {
	rows, err := e.mem.Log().DB().QueryContext(ctx, `
		SELECT id, tool_name, arguments_json, timestamp_ms, success, exit_code, duration_ms, error_message
		FROM executions
		WHERE tool_name = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, id ASC
		LIMIT ?`, toolName, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("evidence: Q1: %w", err)
	}
	return scanExecutions(rows)
}

// Q2: failures of a tool since a timestamp, newest first.
func (e *Evidence) Q2(ctx context.Context, toolName string, since int64, limit int) ([]ExecutionResult, error) {
	rows, err := e.mem.Log().DB().QueryContext(ctx, `
		SELECT id, tool_name, arguments_json, timestamp_ms, success, exit_code, duration_ms, error_message
		FROM executions
		WHERE tool_name = ? AND timestamp_ms >= ? AND success = 0
		ORDER BY timestamp_ms DESC, id DESC
		LIMIT ?`, toolName, since, limit)
	if err != nil {
		return nil, fmt.Errorf("evidence: Q2: %w", err)
	}
	return scanExecutions(rows)
}

// Q3: executions that produced an artifact containing diagnosticCode,
// oldest first. Diagnostic artifacts are stored as opaque JSON; matching
// is literal substring match on the serialized code field, never a
// semantic or fuzzy search.
func (e *Evidence) Q3(ctx context.Context, diagnosticCode string, limit int) ([]ExecutionResult, error) {
	needle := fmt.Sprintf(`"code":"%s"`, diagnosticCode)
	rows, err := e.mem.Log().DB().QueryContext(ctx, `
		SELECT DISTINCT e.id, e.tool_name, e.arguments_json, e.timestamp_ms, e.success, e.exit_code, e.duration_ms, e.error_message
		FROM executions e
		JOIN execution_artifacts a ON a.execution_id = e.id
		WHERE a.artifact_type = 'diagnostics' AND a.content_json LIKE ?
		ORDER BY e.timestamp_ms ASC, e.id ASC
		LIMIT ?`, "%"+needle+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("evidence: Q3: %w", err)
	}
	return scanExecutions(rows)
}

// FileTouchResult is a Q4/Q6 row: an execution plus how it was matched to
// the file (graph edge, or fallback argument-parsing).
type FileTouchResult struct {
	Execution  ExecutionResult
	DataSource DataSource
}

// Q4: executions touching filePath since a timestamp, newest first,
// answered via the graph store when reachable and falling back to
// argument-parsing over arguments_json otherwise.
func (e *Evidence) Q4(ctx context.Context, filePath string, since int64, limit int) ([]FileTouchResult, error) {
	graphRows, graphErr := e.queryByGraph(ctx, filePath, since, limit)
	if graphErr == nil {
		return graphRows, nil
	}
	slog.Warn("evidence: graph store unreachable for Q4, degrading to argument-parsing fallback", "file_path", filePath, "error", graphErr)
	return e.queryByArgumentFallback(ctx, filePath, since, limit)
}

// Q6: the single most recent outcome for filePath, via the same
// graph-then-fallback resolution as Q4.
func (e *Evidence) Q6(ctx context.Context, filePath string) (*FileTouchResult, error) {
	rows, err := e.Q4(ctx, filePath, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (e *Evidence) queryByGraph(ctx context.Context, filePath string, since int64, limit int) ([]FileTouchResult, error) {
	entities, err := e.mem.Graph().EntitiesTouchingFile(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("evidence: Q4 graph path: %w", err)
	}
	if len(entities) == 0 {
		return nil, graphstore.ErrNotFound
	}

	seen := map[string]bool{}
	var execIDs []string

	// Entities touching a file carry no back-reference to the executions
	// that affected them, so resolve via execution entities whose edges
	// target one of the matched entity ids.
	targetIDs := make(map[int64]bool, len(entities))
	for _, t := range entities {
		targetIDs[t.ID] = true
	}

	executionEntities, err := e.allExecutionEntities(ctx)
	if err != nil {
		return nil, err
	}
	for _, execEnt := range executionEntities {
		edges, err := e.mem.Graph().EdgesFrom(ctx, execEnt.ID)
		if err != nil {
			continue
		}
		for _, edge := range edges {
			if targetIDs[edge.ToID] {
				seen[execEnt.Name] = true
				break
			}
		}
	}
	for id := range seen {
		execIDs = append(execIDs, id)
	}

	var out []FileTouchResult
	for _, id := range execIDs {
		row, err := e.mem.Log().GetExecution(ctx, id)
		if err != nil {
			continue
		}
		if row.TimestampMs < since {
			continue
		}
		out = append(out, FileTouchResult{Execution: fromLogRow(row), DataSource: DataSourceGraph})
	}
	sortFileTouches(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if len(out) == 0 {
		return nil, graphstore.ErrNotFound
	}
	return out, nil
}

func (e *Evidence) allExecutionEntities(ctx context.Context) ([]graphstore.Entity, error) {
	rows, err := e.mem.Graph().DB().QueryContext(ctx, `
		SELECT id, kind, name, file_path, data_json FROM graph_entities WHERE kind = 'execution'`)
	if err != nil {
		return nil, fmt.Errorf("evidence: list execution entities: %w", err)
	}
	defer rows.Close()
	var out []graphstore.Entity
	for rows.Next() {
		var ent graphstore.Entity
		var filePath *string
		if err := rows.Scan(&ent.ID, &ent.Kind, &ent.Name, &filePath, &ent.DataJSON); err != nil {
			return nil, fmt.Errorf("evidence: scan execution entity: %w", err)
		}
		ent.FilePath = filePath
		out = append(out, ent)
	}
	return out, rows.Err()
}

// queryByArgumentFallback degrades Q4/Q6 to literal substring matching
// over arguments_json when the graph path cannot answer. Callers always
// see DataSourceFallback on the returned rows, so the degradation is
// never silently hidden from the query result.
func (e *Evidence) queryByArgumentFallback(ctx context.Context, filePath string, since int64, limit int) ([]FileTouchResult, error) {
	needle := fmt.Sprintf(`"%s"`, filePath)
	rows, err := e.mem.Log().DB().QueryContext(ctx, `
		SELECT id, tool_name, arguments_json, timestamp_ms, success, exit_code, duration_ms, error_message
		FROM executions
		WHERE arguments_json LIKE ? AND timestamp_ms >= ?
		ORDER BY timestamp_ms DESC, id DESC
		LIMIT ?`, "%"+needle+"%", since, limit)
	if err != nil {
		return nil, fmt.Errorf("evidence: Q4 fallback: %w", err)
	}
	execs, err := scanExecutions(rows)
	if err != nil {
		return nil, err
	}
	out := make([]FileTouchResult, len(execs))
	for i, ex := range execs {
		out[i] = FileTouchResult{Execution: ex, DataSource: DataSourceFallback}
	}
	return out, nil
}

// FullRecord is Q5's return shape: a full execution plus its artifacts
// and graph links.
type FullRecord struct {
	Execution ExecutionResult
	Artifacts []logstore.ArtifactRow
	Links     []graphstore.Edge
}

// Q5: full record for one execution id, artifacts ordered by
// artifact_type asc, graph links ordered by edge_type asc then target id
// asc.
func (e *Evidence) Q5(ctx context.Context, executionID string) (*FullRecord, error) {
	row, err := e.mem.Log().GetExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("evidence: Q5: %w", err)
	}
	artifacts, err := e.mem.Log().GetArtifacts(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("evidence: Q5 artifacts: %w", err)
	}

	var links []graphstore.Edge
	if ent, err := e.mem.Graph().GetEntityByExecutionID(ctx, executionID); err == nil {
		links, err = e.mem.Graph().EdgesFrom(ctx, ent.ID)
		if err != nil {
			links = nil
		}
	}

	return &FullRecord{Execution: fromLogRow(row), Artifacts: artifacts, Links: links}, nil
}

// RecurringDiagnostic is a Q7 row: a (code, file) pair that occurred at
// least threshold times since a timestamp.
type RecurringDiagnostic struct {
	Code  string
	File  string
	Count int
}

// Q7: diagnostics recurring at or above threshold since a timestamp,
// ordered by count desc, code asc, file asc.
func (e *Evidence) Q7(ctx context.Context, threshold int, since int64) ([]RecurringDiagnostic, error) {
	rows, err := e.mem.Log().DB().QueryContext(ctx, `
		SELECT a.content_json, e.timestamp_ms
		FROM execution_artifacts a
		JOIN executions e ON e.id = a.execution_id
		WHERE a.artifact_type = 'diagnostics' AND e.timestamp_ms >= ?`, since)
	if err != nil {
		return nil, fmt.Errorf("evidence: Q7: %w", err)
	}
	defer rows.Close()

	type key struct{ code, file string }
	counts := map[key]int{}
	for rows.Next() {
		var contentJSON string
		var ts int64
		if err := rows.Scan(&contentJSON, &ts); err != nil {
			return nil, fmt.Errorf("evidence: Q7 scan: %w", err)
		}
		for _, d := range parseDiagnostics(contentJSON) {
			counts[key{d.Code, d.File}]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("evidence: Q7 rows: %w", err)
	}

	var out []RecurringDiagnostic
	for k, c := range counts {
		if c >= threshold {
			out = append(out, RecurringDiagnostic{Code: k.code, File: k.file, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].File < out[j].File
	})
	return out, nil
}

// DiagnosticFixPair is a Q8 row: a diagnostic occurrence and the nearest
// mutation execution strictly after it. It documents temporal adjacency
// only — never a causal claim.
type DiagnosticFixPair struct {
	DiagnosticExecutionID string
	DiagnosticTimestampMs int64
	FixExecutionID        string
	FixTimestampMs        int64
}

// Q8: for each occurrence of diagnosticCode (optionally scoped to file)
// since a timestamp, the nearest mutation-tool execution that happened
// strictly after it. Ordered by diagnostic timestamp asc, then fix
// timestamp asc.
func (e *Evidence) Q8(ctx context.Context, diagnosticCode string, file *string, since int64) ([]DiagnosticFixPair, error) {
	diagExecs, err := e.Q3(ctx, diagnosticCode, 0)
	if err != nil {
		return nil, fmt.Errorf("evidence: Q8: %w", err)
	}

	placeholders := make([]string, len(mutationTools))
	args := make([]any, 0, len(mutationTools)+1)
	for i, t := range mutationTools {
		placeholders[i] = "?"
		args = append(args, t)
	}
	query := fmt.Sprintf(`
		SELECT id, tool_name, arguments_json, timestamp_ms, success, exit_code, duration_ms, error_message
		FROM executions
		WHERE tool_name IN (%s) AND timestamp_ms > ?
		ORDER BY timestamp_ms ASC, id ASC`, strings.Join(placeholders, ","))

	var out []DiagnosticFixPair
	for _, d := range diagExecs {
		if d.TimestampMs < since {
			continue
		}
		if file != nil && !strings.Contains(d.ArgumentsJSON, fmt.Sprintf(`"%s"`, *file)) {
			continue
		}
		rowArgs := append(append([]any{}, args...), d.TimestampMs)
		rows, err := e.mem.Log().DB().QueryContext(ctx, query, rowArgs...)
		if err != nil {
			return nil, fmt.Errorf("evidence: Q8 fix lookup: %w", err)
		}
		fixes, err := scanExecutions(rows)
		if err != nil {
			return nil, err
		}
		if len(fixes) == 0 {
			continue
		}
		nearest := fixes[0]
		out = append(out, DiagnosticFixPair{
			DiagnosticExecutionID: d.ID,
			DiagnosticTimestampMs: d.TimestampMs,
			FixExecutionID:        nearest.ID,
			FixTimestampMs:        nearest.TimestampMs,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DiagnosticTimestampMs != out[j].DiagnosticTimestampMs {
			return out[i].DiagnosticTimestampMs < out[j].DiagnosticTimestampMs
		}
		return out[i].FixTimestampMs < out[j].FixTimestampMs
	})
	return out, nil
}

// ChatSessionActivity is a StaleSessions row: a chat_session graph entity
// and the last_interaction_at timestamp recorded against it. Sessions
// with no recorded interaction yet report LastInteractionMs as 0, not an
// error — a brand-new session has only just started.
type ChatSessionActivity struct {
	SessionID         string
	LastInteractionMs int64
}

// StaleSessions supplements the fixed Q1-Q8 set with an observability
// query over chat_session entities (grounded on
// tarsy's AlertSession/Chat orphan-detection fields, see DESIGN.md):
// every chat_session whose last_interaction_at is at or before
// cutoffMs, ordered oldest-first so the longest-idle session sorts
// first.
func (e *Evidence) StaleSessions(ctx context.Context, cutoffMs int64) ([]ChatSessionActivity, error) {
	rows, err := e.mem.Graph().DB().QueryContext(ctx, `
		SELECT name, data_json FROM graph_entities WHERE kind = 'chat_session'`)
	if err != nil {
		return nil, fmt.Errorf("evidence: stale sessions: %w", err)
	}
	defer rows.Close()

	var out []ChatSessionActivity
	for rows.Next() {
		var name, dataJSON string
		if err := rows.Scan(&name, &dataJSON); err != nil {
			return nil, fmt.Errorf("evidence: stale sessions scan: %w", err)
		}
		var data struct {
			LastInteractionAt int64 `json:"last_interaction_at"`
		}
		_ = json.Unmarshal([]byte(dataJSON), &data)
		if data.LastInteractionAt <= cutoffMs {
			out = append(out, ChatSessionActivity{SessionID: name, LastInteractionMs: data.LastInteractionAt})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("evidence: stale sessions rows: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastInteractionMs != out[j].LastInteractionMs {
			return out[i].LastInteractionMs < out[j].LastInteractionMs
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out, nil
}

type diagnosticEntry struct {
	Code string `json:"code"`
	File string `json:"file"`
}

// parseDiagnostics best-effort decodes a diagnostics artifact body as
// either a single object or an array of objects; unparseable content
// yields no entries rather than an error, since content_json's only DB
// guarantee is syntactic JSON validity, not this particular shape.
func parseDiagnostics(contentJSON string) []diagnosticEntry {
	var arr []diagnosticEntry
	if err := json.Unmarshal([]byte(contentJSON), &arr); err == nil {
		return arr
	}
	var single diagnosticEntry
	if err := json.Unmarshal([]byte(contentJSON), &single); err == nil {
		return []diagnosticEntry{single}
	}
	return nil
}

func sortFileTouches(rows []FileTouchResult) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Execution.TimestampMs != rows[j].Execution.TimestampMs {
			return rows[i].Execution.TimestampMs > rows[j].Execution.TimestampMs
		}
		return rows[i].Execution.ID > rows[j].Execution.ID
	})
}

type queryRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanExecutions(rows queryRows) ([]ExecutionResult, error) {
	defer rows.Close()
	var out []ExecutionResult
	for rows.Next() {
		var r logstore.ExecutionRow
		var success int
		var exitCode, durationMs *int64
		var errMsg *string
		if err := rows.Scan(&r.ID, &r.ToolName, &r.ArgumentsJSON, &r.TimestampMs, &success, &exitCode, &durationMs, &errMsg); err != nil {
			return nil, fmt.Errorf("evidence: scan execution: %w", err)
		}
		r.Success = success != 0
		r.ExitCode = exitCode
		r.DurationMs = durationMs
		r.ErrorMessage = errMsg
		out = append(out, fromLogRow(r))
	}
	return out, rows.Err()
}
