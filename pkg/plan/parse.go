package plan

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
)

// Parse accepts either a JSON object matching the Plan schema (optionally
// wrapped in a fenced code block) or plain text, and always returns a
// Plan — this is the entry point used by the chat loop and CLI, which
// never surface a parse error for malformed plan-shaped input. Instead:
// JSON that parses and validates returns that Plan; JSON that parses but
// fails validation returns the typed ValidationError; anything else
// (including JSON that looks like a plan but fails to parse) degrades to
// a synthesized text-display plan.
func Parse(input string) (*Plan, error) {
	candidate := strings.TrimSpace(stripFences(input))

	if strings.HasPrefix(candidate, "{") {
		p, err := unmarshalPlan(candidate)
		if err == nil {
			if verr := Validate(p); verr != nil {
				return nil, verr
			}
			return p, nil
		}
		// Malformed JSON that looks like a plan degrades gracefully
		// rather than erroring; graceful degradation is part of this
		// function's contract, not an escape hatch.
	}

	return synthesizeTextPlan(input), nil
}

// ParseStrict parses input as JSON only, returning a KindJSONParse
// ValidationError on any syntax failure instead of degrading. It exists
// for callers (e.g. an evidence/debug endpoint replaying a stored plan
// artifact) that need a hard failure rather than silent degradation.
func ParseStrict(input string) (*Plan, error) {
	candidate := strings.TrimSpace(stripFences(input))
	p, err := unmarshalPlan(candidate)
	if err != nil {
		return nil, newValidationError(KindJSONParse, err.Error(), "", "")
	}
	if verr := Validate(p); verr != nil {
		return nil, verr
	}
	return p, nil
}

func unmarshalPlan(candidate string) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal([]byte(candidate), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// stripFences removes a single enclosing ``` or ```json fenced block, if
// present, leaving the inner content untouched otherwise.
func stripFences(input string) string {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "```") {
		return input
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return input
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		return input
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// synthesizeTextPlan builds the degenerate fallback plan: one
// display_text step with intent Explain. plan_id is a deterministic hash
// of the input text, so re-parsing identical text yields the same
// plan_id rather than a fresh one each call.
func synthesizeTextPlan(text string) *Plan {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	planID := fmt.Sprintf("text-%x", h.Sum64())

	return &Plan{
		PlanID: planID,
		Intent: IntentExplain,
		Steps: []Step{
			{
				StepID:               "s1",
				Tool:                 "display_text",
				Arguments:            map[string]string{"text": text},
				Precondition:         PreconditionNone,
				RequiresConfirmation: false,
			},
		},
		EvidenceReferenced: nil,
	}
}
