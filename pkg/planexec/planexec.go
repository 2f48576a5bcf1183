// Package planexec implements the plan executor: it runs an
// authorized plan sequentially against the tool invoker, recording every
// step to execution memory, with no retry, rollback, reorder, or skip.
package planexec

import (
	"context"
	"log/slog"
	"time"

	"github.com/oldnordic/odincode/pkg/canon"
	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/plan"
	"github.com/oldnordic/odincode/pkg/store/graphstore"
	"github.com/oldnordic/odincode/pkg/tool"
)

// Config carries the collaborators a plan execution needs: the memory
// handle to record against, the tool-dispatch configuration, and the
// root/graph handles preconditions resolve against.
type Config struct {
	Root   string
	Graph  *graphstore.Store
	Memory *memory.Memory
	Tool   tool.Config
}

// ApprovedPlan pairs a validated Plan with its authorization.
type ApprovedPlan struct {
	Plan          *plan.Plan
	Authorization plan.Authorization
}

// Status is ExecutionResult.status.
type Status string

const (
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
)

// StepResult records the outcome of one step.
type StepResult struct {
	StepID       string
	Tool         string
	Arguments    map[string]string
	Success      bool
	ExecutionID  string
	ErrorMessage string
	DurationMs   int64
}

// ExecutionResult is what Run returns.
type ExecutionResult struct {
	PlanID          string
	Status          Status
	StepResults     []StepResult
	TotalDurationMs int64
}

// ConfirmFunc is the injected confirmation callback for steps with
// requires_confirmation = true. Returning false denies.
type ConfirmFunc func(step plan.Step) bool

// Hooks are the plan executor's step lifecycle events, fired around each
// step's start and its completion or failure. Any hook may be nil.
type Hooks struct {
	OnStepStart    func(step plan.Step)
	OnStepComplete func(result StepResult)
	OnStepFailed   func(result StepResult)
}

// Run executes approved sequentially against cfg, calling confirm for any
// step with requires_confirmation = true. It enforces the preamble
// (authorization must be Approved and match plan_id), then the per-step
// loop: evaluate precondition, confirm if required, invoke the
// tool, record the execution, emit hooks, and stop at the first failure.
func Run(ctx context.Context, approved ApprovedPlan, cfg Config, confirm ConfirmFunc, hooks Hooks) (ExecutionResult, error) {
	p := approved.Plan
	auth := approved.Authorization

	if auth.Status != plan.AuthorizationApproved {
		return ExecutionResult{}, ErrNotAuthorized
	}
	if auth.PlanID != p.PlanID {
		return ExecutionResult{}, ErrPlanIDMismatch
	}

	start := time.Now()
	result := ExecutionResult{PlanID: p.PlanID, Status: StatusCompleted}

	for _, step := range p.Steps {
		if hooks.OnStepStart != nil {
			hooks.OnStepStart(step)
		}

		ok, reason := evaluatePrecondition(ctx, step, cfg)
		if !ok {
			slog.Warn("planexec: precondition failed, halting plan", "plan_id", p.PlanID, "step_id", step.StepID, "tool", step.Tool, "reason", reason)
			stepResult := StepResult{StepID: step.StepID, Tool: step.Tool, Arguments: step.Arguments, Success: false, ErrorMessage: reason}
			result.StepResults = append(result.StepResults, stepResult)
			result.Status = StatusFailed
			if hooks.OnStepFailed != nil {
				hooks.OnStepFailed(stepResult)
			}
			break
		}

		if step.RequiresConfirmation {
			if confirm == nil || !confirm(step) {
				slog.Warn("planexec: confirmation denied, halting plan", "plan_id", p.PlanID, "step_id", step.StepID, "tool", step.Tool)
				stepResult := StepResult{StepID: step.StepID, Tool: step.Tool, Arguments: step.Arguments, Success: false, ErrorMessage: "confirmation denied"}
				result.StepResults = append(result.StepResults, stepResult)
				result.Status = StatusFailed
				if hooks.OnStepFailed != nil {
					hooks.OnStepFailed(stepResult)
				}
				break
			}
		}

		invocation, invokeErr := tool.Invoke(ctx, step.Tool, step.Arguments, cfg.Tool)
		if invokeErr != nil {
			slog.Warn("planexec: tool invocation failed, halting plan", "plan_id", p.PlanID, "step_id", step.StepID, "tool", step.Tool, "error", invokeErr)
			stepResult := StepResult{StepID: step.StepID, Tool: step.Tool, Arguments: step.Arguments, Success: false, ErrorMessage: invokeErr.Error()}
			result.StepResults = append(result.StepResults, stepResult)
			result.Status = StatusFailed
			if hooks.OnStepFailed != nil {
				hooks.OnStepFailed(stepResult)
			}
			break
		}

		artifacts := stepArtifacts(invocation)
		var links []memory.Link
		if invocation.AffectedPath != "" {
			links = append(links, memory.Link{EdgeType: "AFFECTED", TargetName: invocation.AffectedPath, TargetFilePath: &invocation.AffectedPath})
		}

		var exitCodePtr *int64
		var durationPtr *int64 = &invocation.DurationMs
		var errMsgPtr *string
		if invocation.ErrorMessage != "" {
			errMsgPtr = &invocation.ErrorMessage
		}

		recordResult, recErr := cfg.Memory.RecordExecution(ctx, memory.CoreFields{
			ToolName:     step.Tool,
			Arguments:    canon.Args(step.Arguments),
			Success:      invocation.Success,
			ExitCode:     exitCodePtr,
			DurationMs:   durationPtr,
			ErrorMessage: errMsgPtr,
		}, artifacts, links)
		if recErr != nil {
			slog.Warn("planexec: failed to record execution, halting plan", "plan_id", p.PlanID, "step_id", step.StepID, "tool", step.Tool, "error", recErr)
			stepResult := StepResult{StepID: step.StepID, Tool: step.Tool, Arguments: step.Arguments, Success: false, ErrorMessage: recErr.Error()}
			result.StepResults = append(result.StepResults, stepResult)
			result.Status = StatusFailed
			if hooks.OnStepFailed != nil {
				hooks.OnStepFailed(stepResult)
			}
			break
		}

		stepResult := StepResult{
			StepID:       step.StepID,
			Tool:         step.Tool,
			Arguments:    step.Arguments,
			Success:      invocation.Success,
			ExecutionID:  recordResult.ExecutionID,
			ErrorMessage: invocation.ErrorMessage,
			DurationMs:   invocation.DurationMs,
		}
		result.StepResults = append(result.StepResults, stepResult)

		if !invocation.Success {
			slog.Warn("planexec: step reported failure, halting plan", "plan_id", p.PlanID, "step_id", step.StepID, "tool", step.Tool, "error", invocation.ErrorMessage)
			result.Status = StatusFailed
			if hooks.OnStepFailed != nil {
				hooks.OnStepFailed(stepResult)
			}
			break
		}
		if hooks.OnStepComplete != nil {
			hooks.OnStepComplete(stepResult)
		}
	}

	result.TotalDurationMs = time.Since(start).Milliseconds()
	return result, nil
}

func stepArtifacts(inv tool.Invocation) []memory.ArtifactInput {
	var artifacts []memory.ArtifactInput
	if inv.Stdout != "" {
		artifacts = append(artifacts, memory.ArtifactInput{ArtifactType: "stdout", Content: inv.Stdout})
	}
	if inv.Stderr != "" {
		artifacts = append(artifacts, memory.ArtifactInput{ArtifactType: "stderr", Content: inv.Stderr})
	}
	if len(inv.Diagnostics) > 0 {
		artifacts = append(artifacts, memory.ArtifactInput{ArtifactType: "diagnostics", Content: inv.Diagnostics})
	}
	return artifacts
}
