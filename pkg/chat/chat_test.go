package chat_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/oldnordic/odincode/pkg/chat"
	"github.com/oldnordic/odincode/pkg/llmadapter"
	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/tool"
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
			id INTEGER PRIMARY KEY AUTOINCREMENT, kind TEXT NOT NULL, name TEXT NOT NULL,
			file_path TEXT, data_json TEXT NOT NULL);
		CREATE TABLE graph_edges (
			id INTEGER PRIMARY KEY AUTOINCREMENT, from_id INTEGER NOT NULL, to_id INTEGER NOT NULL,
			edge_type TEXT NOT NULL, data_json TEXT NOT NULL);`)
	require.NoError(t, err)
}

func openTestMemory(t *testing.T) (*memory.Memory, string) {
	t.Helper()
	dir := t.TempDir()
	provisionMinimalCodegraph(t, filepath.Join(dir, "codegraph.db"))
	m, err := memory.Open(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, dir
}

func newTestSession(t *testing.T, mem *memory.Memory) *chat.Session {
	t.Helper()
	sess, err := chat.NewSession(context.Background(), chat.Config{Memory: mem}, "sess-"+t.Name())
	require.NoError(t, err)
	return sess
}

func TestHandleUserMessage_PlainTextEndsTurn(t *testing.T) {
	mem, dir := openTestMemory(t)
	fake := llmadapter.NewFakeText("hello there")
	cfg := chat.Config{Memory: mem, Tool: tool.Config{Root: dir}, Adapter: fake}
	sess := newTestSession(t, mem)

	result, err := chat.HandleUserMessage(context.Background(), cfg, sess, "hi")
	require.NoError(t, err)
	assert.Equal(t, chat.OutcomeText, result.Outcome)
	assert.Equal(t, "hello there", result.Text)
}

// TestHandleUserMessage_GatedToolRequiresApproval checks that a Gated
// tool call pauses the turn for approval instead of running immediately.
func TestHandleUserMessage_GatedToolRequiresApproval(t *testing.T) {
	mem, dir := openTestMemory(t)
	target := filepath.Join(dir, "a.txt")
	fake := llmadapter.NewFakeToolCall("file_write", `{"path":"`+target+`","contents":"x"}`, "Let me write that.")
	cfg := chat.Config{Memory: mem, Tool: tool.Config{Root: dir}, Adapter: fake}
	sess := newTestSession(t, mem)

	result, err := chat.HandleUserMessage(context.Background(), cfg, sess, "write a.txt")
	require.NoError(t, err)
	require.Equal(t, chat.OutcomeApprovalRequired, result.Outcome)
	require.NotNil(t, result.Approval)
	assert.Equal(t, "file_write", result.Approval.Tool)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "tool must not run before approval")

	fake.Chunks = []llmadapter.Chunk{llmadapter.TextChunk{Content: "done"}, llmadapter.FinishChunk{Reason: "stop"}}
	approveResult, err := chat.ResolveApproval(context.Background(), cfg, sess, chat.ApprovalDecision{Approved: true, Scope: chat.ScopeOnce})
	require.NoError(t, err)
	assert.Equal(t, chat.OutcomeText, approveResult.Outcome)

	_, statErr = os.Stat(target)
	assert.NoError(t, statErr, "approved tool call must have run")
}

// TestHandleUserMessage_ForbiddenToolEndsTurnWithoutInvocation checks
// that a Forbidden tool request ends the turn without ever dispatching.
func TestHandleUserMessage_ForbiddenToolEndsTurnWithoutInvocation(t *testing.T) {
	mem, dir := openTestMemory(t)
	fake := llmadapter.NewFakeToolCall("splice_patch", `{"path":"a.txt","patch":"x"}`, "")
	cfg := chat.Config{Memory: mem, Tool: tool.Config{Root: dir}, Adapter: fake}
	sess := newTestSession(t, mem)

	result, err := chat.HandleUserMessage(context.Background(), cfg, sess, "refactor this")
	require.NoError(t, err)
	assert.Equal(t, chat.OutcomeForbidden, result.Outcome)

	row := mem.Log().DB().QueryRowContext(context.Background(), `SELECT count(*) FROM executions WHERE tool_name = 'splice_patch'`)
	var count int
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 0, count, "no log row for a forbidden tool")
}

func TestHandleUserMessage_DeniedApprovalInjectsDenialAndContinues(t *testing.T) {
	mem, dir := openTestMemory(t)
	target := filepath.Join(dir, "b.txt")
	fake := llmadapter.NewFakeToolCall("file_write", `{"path":"`+target+`","contents":"x"}`, "")
	cfg := chat.Config{Memory: mem, Tool: tool.Config{Root: dir}, Adapter: fake}
	sess := newTestSession(t, mem)

	result, err := chat.HandleUserMessage(context.Background(), cfg, sess, "write b.txt")
	require.NoError(t, err)
	require.Equal(t, chat.OutcomeApprovalRequired, result.Outcome)

	fake.Chunks = []llmadapter.Chunk{llmadapter.TextChunk{Content: "ok, skipping"}, llmadapter.FinishChunk{Reason: "stop"}}
	denyResult, err := chat.ResolveApproval(context.Background(), cfg, sess, chat.ApprovalDecision{Approved: false})
	require.NoError(t, err)
	assert.Equal(t, chat.OutcomeText, denyResult.Outcome)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "denied tool must never run")
}

// sequencedAdapter replays a fixed sequence of single-call fakes, one
// per Stream invocation — used where a test needs the simulated LM to
// behave differently across the several requests one turn chain issues.
type sequencedAdapter struct {
	calls []*llmadapter.Fake
	next  int
}

func (s *sequencedAdapter) Stream(ctx context.Context, req llmadapter.Request) (<-chan llmadapter.Chunk, error) {
	f := s.calls[s.next]
	if s.next < len(s.calls)-1 {
		s.next++
	}
	return f.Stream(ctx, req)
}

func (s *sequencedAdapter) Close() error { return nil }

func TestHandleUserMessage_SessionAllGatedSkipsFurtherApprovals(t *testing.T) {
	mem, dir := openTestMemory(t)
	target := filepath.Join(dir, "c.txt")
	target2 := filepath.Join(dir, "d.txt")

	adapter := &sequencedAdapter{calls: []*llmadapter.Fake{
		llmadapter.NewFakeToolCall("file_write", `{"path":"`+target+`","contents":"x"}`, ""),
		llmadapter.NewFakeText("first write done"),
		llmadapter.NewFakeToolCall("file_write", `{"path":"`+target2+`","contents":"y"}`, ""),
		llmadapter.NewFakeText("second write done"),
	}}
	cfg := chat.Config{Memory: mem, Tool: tool.Config{Root: dir}, Adapter: adapter}
	sess := newTestSession(t, mem)

	result, err := chat.HandleUserMessage(context.Background(), cfg, sess, "write c.txt")
	require.NoError(t, err)
	require.Equal(t, chat.OutcomeApprovalRequired, result.Outcome)

	_, err = chat.ResolveApproval(context.Background(), cfg, sess, chat.ApprovalDecision{Approved: true, Scope: chat.ScopeSessionAllGated})
	require.NoError(t, err)

	result2, err := chat.HandleUserMessage(context.Background(), cfg, sess, "write d.txt too")
	require.NoError(t, err)
	assert.Equal(t, chat.OutcomeText, result2.Outcome, "session-wide grant must skip the second approval")

	_, statErr := os.Stat(target2)
	assert.NoError(t, statErr, "second gated write must have run without pausing")
}
