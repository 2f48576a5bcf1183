package graphstore_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

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

func TestOpen_MissingFileFailsWithCodegraphNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := graphstore.Open(context.Background(), filepath.Join(dir, "codegraph.db"))
	assert.ErrorIs(t, err, graphstore.ErrCodegraphNotFound)
}

func TestOpen_FileWithoutTablesFailsWithCodegraphNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codegraph.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE unrelated (id INTEGER);")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = graphstore.Open(context.Background(), path)
	assert.ErrorIs(t, err, graphstore.ErrCodegraphNotFound)
}

func TestOpen_MinimalProvisionedStoreSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codegraph.db")
	provisionMinimalCodegraph(t, path)

	s, err := graphstore.Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()
	assert.NotNil(t, s.DB())
}

func TestInsertExecutionEntityAndResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codegraph.db")
	provisionMinimalCodegraph(t, path)

	s, err := graphstore.Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)

	id, err := s.InsertExecutionEntity(ctx, tx, "exec-123")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Greater(t, id, int64(0))

	ent, err := s.GetEntityByExecutionID(ctx, "exec-123")
	require.NoError(t, err)
	assert.Equal(t, "execution", ent.Kind)
}

func TestInsertEdge_RejectsForbiddenExecutionToExecution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codegraph.db")
	provisionMinimalCodegraph(t, path)

	s, err := graphstore.Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	id1, err := s.InsertExecutionEntity(ctx, tx, "exec-1")
	require.NoError(t, err)
	id2, err := s.InsertExecutionEntity(ctx, tx, "exec-2")
	require.NoError(t, err)

	err = s.InsertEdge(ctx, tx, id1, id2, "execution", "execution", "EXECUTED_ON", map[string]string{})
	assert.ErrorIs(t, err, graphstore.ErrValidationRejected)
}

func TestInsertEdge_RejectsUnknownEdgeType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codegraph.db")
	provisionMinimalCodegraph(t, path)

	s, err := graphstore.Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	id1, err := s.InsertExecutionEntity(ctx, tx, "exec-1")
	require.NoError(t, err)

	err = s.InsertEdge(ctx, tx, id1, id1, "execution", "File", "TELEPORTS_TO", map[string]string{})
	assert.ErrorIs(t, err, graphstore.ErrValidationRejected)
}

func TestUpdateEntityData_OverwritesMostRecentMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codegraph.db")
	provisionMinimalCodegraph(t, path)

	s, err := graphstore.Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	_, err = s.InsertEntity(ctx, tx, "chat_session", "sess-1", nil, map[string]any{"start_time_ms": int64(1)})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	err = s.UpdateEntityData(ctx, "chat_session", "sess-1", map[string]any{"start_time_ms": int64(1), "last_interaction_at": int64(42)})
	require.NoError(t, err)

	ent, err := s.ResolveEntity(ctx, "sess-1", nil)
	require.NoError(t, err)
	assert.Contains(t, ent.DataJSON, `"last_interaction_at":42`)
}

func TestUpdateEntityData_NoMatchReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codegraph.db")
	provisionMinimalCodegraph(t, path)

	s, err := graphstore.Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	err = s.UpdateEntityData(context.Background(), "chat_session", "does-not-exist", map[string]any{})
	assert.ErrorIs(t, err, graphstore.ErrNotFound)
}
