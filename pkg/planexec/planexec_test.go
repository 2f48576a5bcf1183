package planexec_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/plan"
	"github.com/oldnordic/odincode/pkg/planexec"
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

// TestRun_ReadPlanSucceeds verifies a single successful read step records
// an execution and reports Completed.
func TestRun_ReadPlanSucceeds(t *testing.T) {
	m, dir := openTestMemory(t)
	readmePath := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(readmePath, []byte("hello"), 0o644))

	p := &plan.Plan{
		PlanID: "p1",
		Intent: plan.IntentRead,
		Steps: []plan.Step{
			{StepID: "s1", Tool: "file_read", Arguments: map[string]string{"path": readmePath}, Precondition: plan.PreconditionFileExists},
		},
	}
	approved := planexec.ApprovedPlan{Plan: p, Authorization: plan.Authorization{PlanID: "p1", Status: plan.AuthorizationApproved}}

	result, err := planexec.Run(context.Background(), approved, planexec.Config{Root: dir, Memory: m}, nil, planexec.Hooks{})
	require.NoError(t, err)
	assert.Equal(t, planexec.StatusCompleted, result.Status)
	require.Len(t, result.StepResults, 1)
	assert.True(t, result.StepResults[0].Success)
	assert.NotEmpty(t, result.StepResults[0].ExecutionID)
}

// TestRun_PreconditionFailureHaltsPlan verifies a failed precondition
// stops the plan before the step's tool is ever invoked.
func TestRun_PreconditionFailureHaltsPlan(t *testing.T) {
	m, dir := openTestMemory(t)

	p := &plan.Plan{
		PlanID: "p2",
		Intent: plan.IntentRead,
		Steps: []plan.Step{
			{StepID: "s1", Tool: "file_read", Arguments: map[string]string{"path": filepath.Join(dir, "nope.txt")}, Precondition: plan.PreconditionFileExists},
			{StepID: "s2", Tool: "display_text", Arguments: map[string]string{"text": "done"}, Precondition: plan.PreconditionNone},
		},
	}
	approved := planexec.ApprovedPlan{Plan: p, Authorization: plan.Authorization{PlanID: "p2", Status: plan.AuthorizationApproved}}

	result, err := planexec.Run(context.Background(), approved, planexec.Config{Root: dir, Memory: m}, nil, planexec.Hooks{})
	require.NoError(t, err)
	assert.Equal(t, planexec.StatusFailed, result.Status)
	require.Len(t, result.StepResults, 1)
	assert.False(t, result.StepResults[0].Success)
}

func TestRun_RejectsUnapprovedAuthorization(t *testing.T) {
	m, dir := openTestMemory(t)
	p := &plan.Plan{PlanID: "p3", Intent: plan.IntentRead, Steps: []plan.Step{{StepID: "s1", Tool: "display_text", Arguments: map[string]string{"text": "x"}}}}
	approved := planexec.ApprovedPlan{Plan: p, Authorization: plan.Authorization{PlanID: "p3", Status: plan.AuthorizationPending}}

	_, err := planexec.Run(context.Background(), approved, planexec.Config{Root: dir, Memory: m}, nil, planexec.Hooks{})
	assert.ErrorIs(t, err, planexec.ErrNotAuthorized)
}

func TestRun_RejectsPlanIDMismatch(t *testing.T) {
	m, dir := openTestMemory(t)
	p := &plan.Plan{PlanID: "p4", Intent: plan.IntentRead, Steps: []plan.Step{{StepID: "s1", Tool: "display_text", Arguments: map[string]string{"text": "x"}}}}
	approved := planexec.ApprovedPlan{Plan: p, Authorization: plan.Authorization{PlanID: "different", Status: plan.AuthorizationApproved}}

	_, err := planexec.Run(context.Background(), approved, planexec.Config{Root: dir, Memory: m}, nil, planexec.Hooks{})
	assert.ErrorIs(t, err, planexec.ErrPlanIDMismatch)
}

func TestRun_ConfirmationDeniedStopsStep(t *testing.T) {
	m, dir := openTestMemory(t)
	p := &plan.Plan{
		PlanID: "p5",
		Intent: plan.IntentMutate,
		Steps: []plan.Step{
			{StepID: "s1", Tool: "file_write", Arguments: map[string]string{"path": filepath.Join(dir, "x.txt"), "contents": "y"}, RequiresConfirmation: true},
		},
	}
	approved := planexec.ApprovedPlan{Plan: p, Authorization: plan.Authorization{PlanID: "p5", Status: plan.AuthorizationApproved}}

	result, err := planexec.Run(context.Background(), approved, planexec.Config{Root: dir, Memory: m, Tool: tool.Config{}}, func(plan.Step) bool { return false }, planexec.Hooks{})
	require.NoError(t, err)
	assert.Equal(t, planexec.StatusFailed, result.Status)
	assert.False(t, result.StepResults[0].Success)

	_, statErr := os.Stat(filepath.Join(dir, "x.txt"))
	assert.True(t, os.IsNotExist(statErr), "denied confirmation must not invoke the tool")
}
