package plan_test

import (
	"testing"

	"github.com/oldnordic/odincode/pkg/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioAPlan = `{"plan_id":"p1","intent":"Read","steps":[{"step_id":"s1","tool":"file_read","arguments":{"path":"README.md"},"precondition":"file exists","requires_confirmation":false}],"evidence_referenced":[]}`

func TestParse_ValidJSONPlan(t *testing.T) {
	p, err := plan.Parse(scenarioAPlan)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.PlanID)
	assert.Equal(t, plan.IntentRead, p.Intent)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, "file_read", p.Steps[0].Tool)
}

func TestParse_FencedJSONPlan(t *testing.T) {
	fenced := "```json\n" + scenarioAPlan + "\n```"
	p, err := plan.Parse(fenced)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.PlanID)
}

func TestParse_PlainTextDegradesToDisplayTextPlan(t *testing.T) {
	p, err := plan.Parse("just explain what this file does")
	require.NoError(t, err)
	assert.Equal(t, plan.IntentExplain, p.Intent)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, "display_text", p.Steps[0].Tool)
	assert.Equal(t, "just explain what this file does", p.Steps[0].Arguments["text"])
}

func TestParse_MalformedJSONLookingLikePlanDegradesToTextPlan(t *testing.T) {
	p, err := plan.Parse(`{"plan_id": "p1", "steps": [}`)
	require.NoError(t, err, "malformed JSON starting with { must degrade, not error")
	assert.Equal(t, "display_text", p.Steps[0].Tool)
}

func TestParse_IsIdempotentForIdenticalText(t *testing.T) {
	p1, err := plan.Parse("same text")
	require.NoError(t, err)
	p2, err := plan.Parse("same text")
	require.NoError(t, err)
	assert.Equal(t, p1.PlanID, p2.PlanID)
}

func TestParse_UnknownToolFailsValidation(t *testing.T) {
	_, err := plan.Parse(`{"plan_id":"p1","intent":"Read","steps":[{"step_id":"s1","tool":"delete_everything","arguments":{},"precondition":"none","requires_confirmation":false}],"evidence_referenced":[]}`)
	require.Error(t, err)
	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, plan.KindUnknownTool, verr.Kind)
}

func TestParse_MissingRequiredArgumentFailsValidation(t *testing.T) {
	_, err := plan.Parse(`{"plan_id":"p1","intent":"Read","steps":[{"step_id":"s1","tool":"file_read","arguments":{},"precondition":"none","requires_confirmation":false}],"evidence_referenced":[]}`)
	require.Error(t, err)
	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, plan.KindMissingArgument, verr.Kind)
}

func TestParse_UnknownPreconditionFailsValidation(t *testing.T) {
	_, err := plan.Parse(`{"plan_id":"p1","intent":"Read","steps":[{"step_id":"s1","tool":"file_read","arguments":{"path":"a"},"precondition":"moon alignment","requires_confirmation":false}],"evidence_referenced":[]}`)
	require.Error(t, err)
	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, plan.KindUnknownPrecondition, verr.Kind)
}

func TestParse_EmptyPlanIDFailsValidation(t *testing.T) {
	_, err := plan.Parse(`{"plan_id":"","intent":"Read","steps":[{"step_id":"s1","tool":"file_read","arguments":{"path":"a"},"precondition":"none","requires_confirmation":false}],"evidence_referenced":[]}`)
	require.Error(t, err)
	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, plan.KindEmptyPlanID, verr.Kind)
}

func TestParse_EmptyStepsRejected(t *testing.T) {
	_, err := plan.Parse(`{"plan_id":"p1","intent":"Read","steps":[],"evidence_referenced":[]}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrEmptyPlan)
}

func TestParseStrict_ReturnsJSONParseErrorInsteadOfDegrading(t *testing.T) {
	_, err := plan.ParseStrict(`{"plan_id": "p1", "steps": [}`)
	require.Error(t, err)
	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, plan.KindJSONParse, verr.Kind)
}

func TestSerialize_RoundTripsToItself(t *testing.T) {
	p, err := plan.Parse(scenarioAPlan)
	require.NoError(t, err)

	s1, err := plan.Serialize(p)
	require.NoError(t, err)

	p2, err := plan.Parse(s1)
	require.NoError(t, err)

	s2, err := plan.Serialize(p2)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
}
