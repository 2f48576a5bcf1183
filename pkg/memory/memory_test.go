package memory_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/oldnordic/odincode/pkg/canon"
	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/store/graphstore"
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

func TestOpen_FailsWithCodegraphNotFoundWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	_, err := memory.Open(context.Background(), dir)
	assert.ErrorIs(t, err, graphstore.ErrCodegraphNotFound)
}

func TestOpen_SucceedsWhenCodegraphProvisioned(t *testing.T) {
	dir := t.TempDir()
	provisionMinimalCodegraph(t, filepath.Join(dir, "codegraph.db"))

	m, err := memory.Open(context.Background(), dir)
	require.NoError(t, err)
	defer m.Close()
}

func TestRecordExecution_WritesBothStores(t *testing.T) {
	dir := t.TempDir()
	provisionMinimalCodegraph(t, filepath.Join(dir, "codegraph.db"))

	m, err := memory.Open(context.Background(), dir)
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	result, err := m.RecordExecution(ctx, memory.CoreFields{
		ToolName:  "file_read",
		Arguments: canon.Args{"path": "README.md"},
		Success:   true,
	}, []memory.ArtifactInput{
		{ArtifactType: "stdout", Content: "package main"},
	}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ExecutionID)
	assert.True(t, result.GraphEntityAvailable)

	row, err := m.Log().GetExecution(ctx, result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "file_read", row.ToolName)

	ent, err := m.Graph().GetEntityByExecutionID(ctx, result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "execution", ent.Kind)
}

func TestRecordExecution_UnresolvableLinkLeavesGraphUnavailableButLogStands(t *testing.T) {
	dir := t.TempDir()
	provisionMinimalCodegraph(t, filepath.Join(dir, "codegraph.db"))

	m, err := memory.Open(context.Background(), dir)
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	result, err := m.RecordExecution(ctx, memory.CoreFields{
		ToolName:  "file_edit",
		Arguments: canon.Args{"path": "missing.go"},
		Success:   true,
	}, nil, []memory.Link{
		{EdgeType: "AFFECTED", TargetName: "does-not-exist.go"},
	})
	require.NoError(t, err, "graph-side failure must not fail RecordExecution")
	assert.False(t, result.GraphEntityAvailable)

	row, err := m.Log().GetExecution(ctx, result.ExecutionID)
	require.NoError(t, err)
	assert.True(t, row.Success)
}

func TestRecordExecution_RejectsUnknownToolBeforeAnyWrite(t *testing.T) {
	dir := t.TempDir()
	provisionMinimalCodegraph(t, filepath.Join(dir, "codegraph.db"))

	m, err := memory.Open(context.Background(), dir)
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	_, err = m.RecordExecution(ctx, memory.CoreFields{
		ToolName:  "nonexistent_tool",
		Arguments: canon.Args{},
		Success:   true,
	}, nil, nil)
	assert.Error(t, err)
}
