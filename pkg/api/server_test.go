package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldnordic/odincode/pkg/api"
	"github.com/oldnordic/odincode/pkg/config"
	"github.com/oldnordic/odincode/pkg/evidence"
	"github.com/oldnordic/odincode/pkg/llmadapter"
	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/tool"
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

func newTestServer(t *testing.T) *api.Server {
	t.Helper()
	dir := t.TempDir()
	provisionMinimalCodegraph(t, filepath.Join(dir, "codegraph.db"))

	mem, err := memory.Open(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	ev := evidence.New(mem)
	toolCfg := tool.Config{Root: dir, Graph: mem.Graph(), Evidence: ev}

	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("[lm]\nmode = \"disabled\"\n"), 0o600))
	cfg, err := config.Initialize(context.Background(), dir)
	require.NoError(t, err)

	return api.NewServer(cfg, mem, ev, toolCfg, func(config.LMConfig) (llmadapter.Adapter, error) {
		return &llmadapter.Disabled{}, nil
	})
}

func TestHandleHealth_ReportsConfiguredLMMode(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, string(config.LMModeDisabled), body["lm_mode"])
}

func TestHandleQ1_EmptyStoreReturnsEmptyArray(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/evidence/q1?tool=file_read&limit=10", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestHandleSubmitPlan_PlainTextDegradesToDisplayTextPlan(t *testing.T) {
	s := newTestServer(t)
	body := strings.NewReader(`{"input":"just say hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/plans", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Steps []struct {
			Tool string `json:"tool"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Steps, 1)
	assert.Equal(t, "display_text", resp.Steps[0].Tool)
}

func TestHandleAuthorizePlan_RejectedNeverRuns(t *testing.T) {
	s := newTestServer(t)
	body := strings.NewReader(`{"plan":{"plan_id":"p1","intent":"Explain","steps":[{"step_id":"s1","tool":"display_text","arguments":{"text":"hi"},"precondition":"none","requires_confirmation":false}]},"approved":false}`)
	req := httptest.NewRequest(http.MethodPost, "/plans/authorize", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Rejected", resp["status"])
}
