package evidence_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/oldnordic/odincode/pkg/canon"
	"github.com/oldnordic/odincode/pkg/evidence"
	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func provisionMinimalCodegraph(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`
		CREATE TABLE graph_entities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			file_path TEXT,
			data_json TEXT NOT NULL
		);
		CREATE TABLE graph_edges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_id INTEGER NOT NULL,
			to_id INTEGER NOT NULL,
			edge_type TEXT NOT NULL,
			data_json TEXT NOT NULL
		);`)
	require.NoError(t, err)
}

func openTestMemory(t *testing.T) *memory.Memory {
	t.Helper()
	dir := t.TempDir()
	provisionMinimalCodegraph(t, filepath.Join(dir, "codegraph.db"))
	m, err := memory.Open(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestQ1_OrdersByTimestampThenIDAscending(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()
	ev := evidence.New(m)

	var lastID string
	for i := 0; i < 3; i++ {
		r, err := m.RecordExecution(ctx, memory.CoreFields{
			ToolName: "file_read", Arguments: canon.Args{"path": "a.go"}, Success: true,
		}, nil, nil)
		require.NoError(t, err)
		lastID = r.ExecutionID
	}
	_ = lastID

	rows, err := ev.Q1(ctx, "file_read", 0, 9_999_999_999_999, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i-1].TimestampMs, rows[i].TimestampMs)
	}
}

func TestQ2_ReturnsOnlyFailures(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()
	ev := evidence.New(m)

	_, err := m.RecordExecution(ctx, memory.CoreFields{ToolName: "bash_exec", Arguments: canon.Args{"command": "ok"}, Success: true}, nil, nil)
	require.NoError(t, err)
	errMsg := "exit 1"
	_, err = m.RecordExecution(ctx, memory.CoreFields{ToolName: "bash_exec", Arguments: canon.Args{"command": "fail"}, Success: false, ErrorMessage: &errMsg}, nil, nil)
	require.NoError(t, err)

	rows, err := ev.Q2(ctx, "bash_exec", 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Success)
}

func TestQ5_ReturnsFullRecordWithArtifacts(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()
	ev := evidence.New(m)

	r, err := m.RecordExecution(ctx, memory.CoreFields{
		ToolName: "file_read", Arguments: canon.Args{"path": "a.go"}, Success: true,
	}, []memory.ArtifactInput{{ArtifactType: "stdout", Content: "hello"}}, nil)
	require.NoError(t, err)

	full, err := ev.Q5(ctx, r.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "file_read", full.Execution.ToolName)
	require.Len(t, full.Artifacts, 1)
	assert.Equal(t, "stdout", full.Artifacts[0].ArtifactType)
}

func TestQ4_FallsBackToArgumentParsingWhenGraphLinkMissing(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()
	ev := evidence.New(m)

	_, err := m.RecordExecution(ctx, memory.CoreFields{
		ToolName: "file_edit", Arguments: canon.Args{"path": "main.go"}, Success: true,
	}, nil, nil) // no links: graph path finds no entities touching main.go
	require.NoError(t, err)

	rows, err := ev.Q4(ctx, "main.go", 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, evidence.DataSourceFallback, rows[0].DataSource)
}

func TestQ7_GroupsRecurringDiagnosticsAboveThreshold(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()
	ev := evidence.New(m)

	for i := 0; i < 2; i++ {
		_, err := m.RecordExecution(ctx, memory.CoreFields{
			ToolName: "lsp_check", Arguments: canon.Args{"path": "a.go"}, Success: true,
		}, []memory.ArtifactInput{
			{ArtifactType: "diagnostics", Content: []map[string]string{{"code": "E001", "file": "a.go"}}},
		}, nil)
		require.NoError(t, err)
	}

	rows, err := ev.Q7(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "E001", rows[0].Code)
	assert.Equal(t, 2, rows[0].Count)
}

func TestQ8_FindsNearestMutationAfterDiagnostic(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()
	ev := evidence.New(m)

	_, err := m.RecordExecution(ctx, memory.CoreFields{
		ToolName: "lsp_check", Arguments: canon.Args{"path": "a.go"}, Success: true,
	}, []memory.ArtifactInput{
		{ArtifactType: "diagnostics", Content: []map[string]string{{"code": "E001", "file": "a.go"}}},
	}, nil)
	require.NoError(t, err)

	_, err = m.RecordExecution(ctx, memory.CoreFields{
		ToolName: "file_edit", Arguments: canon.Args{"path": "a.go"}, Success: true,
	}, nil, nil)
	require.NoError(t, err)

	pairs, err := ev.Q8(ctx, "E001", nil, 0)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Less(t, pairs[0].DiagnosticTimestampMs, pairs[0].FixTimestampMs+1)
}

func TestStaleSessions_ReturnsOnlySessionsAtOrBeforeCutoff(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()
	ev := evidence.New(m)

	tx, err := m.Graph().BeginTx(ctx)
	require.NoError(t, err)
	_, err = m.Graph().InsertEntity(ctx, tx, "chat_session", "stale-one", nil, map[string]any{"last_interaction_at": int64(100)})
	require.NoError(t, err)
	_, err = m.Graph().InsertEntity(ctx, tx, "chat_session", "fresh-one", nil, map[string]any{"last_interaction_at": int64(9000)})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	rows, err := ev.StaleSessions(ctx, 500)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "stale-one", rows[0].SessionID)
	assert.Equal(t, int64(100), rows[0].LastInteractionMs)
}
