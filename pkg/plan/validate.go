package plan

import (
	"fmt"

	"github.com/oldnordic/odincode/pkg/whitelist"
)

// Validate enforces the plan schema's rules: non-empty plan_id; intent is a known
// variant; every step.tool is whitelisted; precondition is a known
// variant; argument keys required by the tool are present. It returns the
// first violation found, scanning steps in order.
func Validate(p *Plan) error {
	if p.PlanID == "" {
		return newValidationError(KindEmptyPlanID, "plan_id must not be empty", "", "")
	}
	if len(p.Steps) == 0 {
		return ErrEmptyPlan
	}
	if !p.Intent.valid() {
		return newValidationError(KindUnknownIntent, fmt.Sprintf("unknown intent %q", p.Intent), "", "")
	}

	for _, step := range p.Steps {
		if !whitelist.IsWhitelisted(step.Tool) {
			return newValidationError(KindUnknownTool, fmt.Sprintf("tool %q not whitelisted", step.Tool), step.StepID, step.Tool)
		}
		if !step.Precondition.valid() {
			return newValidationError(KindUnknownPrecondition, fmt.Sprintf("unknown precondition %q", step.Precondition), step.StepID, "")
		}
		for _, key := range requiredArguments[step.Tool] {
			if _, ok := step.Arguments[key]; !ok {
				return newValidationError(KindMissingArgument, key, step.StepID, step.Tool)
			}
		}
	}
	return nil
}
