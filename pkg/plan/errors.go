package plan

import "errors"

// ValidationError carries the typed validation failure kinds:
// UnknownTool, MissingArgument, UnknownPrecondition, EmptyPlanId,
// JsonParse. It is never returned for the graceful-degradation path —
// malformed-but-plan-shaped input degrades to a text plan instead of
// failing.
type ValidationError struct {
	Kind    string
	Detail  string
	StepID  string
	ToolOrField string
}

func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return e.Kind + ": " + e.Detail + " (step " + e.StepID + ")"
	}
	return e.Kind + ": " + e.Detail
}

func newValidationError(kind, detail, stepID, field string) *ValidationError {
	return &ValidationError{Kind: kind, Detail: detail, StepID: stepID, ToolOrField: field}
}

// Error kind constants, matched against ValidationError.Kind.
const (
	KindUnknownTool        = "UnknownTool"
	KindMissingArgument    = "MissingArgument"
	KindUnknownPrecondition = "UnknownPrecondition"
	KindEmptyPlanID        = "EmptyPlanId"
	KindJSONParse          = "JsonParse"
	KindUnknownIntent      = "UnknownIntent"
	KindEmptyPlan          = "InvalidPlan"
)

// ErrEmptyPlan is returned when a plan has zero steps.
var ErrEmptyPlan = errors.New("plan: empty plan rejected")
