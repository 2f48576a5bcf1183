package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oldnordic/odincode/pkg/plan"
	"github.com/oldnordic/odincode/pkg/planexec"
)

// planCmd runs one-shot plan execution mode: read a plan
// file, parse it strictly (a malformed plan file is a hard error here,
// unlike the chat loop's graceful degradation), authorize it, and run it
// to completion via pkg/planexec.Run.
func planCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "plan <plan-file.json>",
		Short: "Execute a single authorized plan against the tool whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading plan file: %w", err)
			}

			p, err := plan.ParseStrict(string(raw))
			if err != nil {
				return fmt.Errorf("plan did not validate: %w", err)
			}

			if !yes && !confirmPlan(p) {
				return fmt.Errorf("plan execution cancelled")
			}

			approved := planexec.ApprovedPlan{
				Plan:          p,
				Authorization: plan.Authorization{PlanID: p.PlanID, Status: plan.AuthorizationApproved},
			}
			execCfg := planexec.Config{Root: b.cfg.RootDir(), Graph: b.mem.Graph(), Memory: b.mem, Tool: b.toolCfg}

			result, err := planexec.Run(cmd.Context(), approved, execCfg, confirmStep, planexec.Hooks{
				OnStepStart:    func(s plan.Step) { fmt.Printf("-> %s (%s)\n", s.StepID, s.Tool) },
				OnStepComplete: func(r planexec.StepResult) { fmt.Printf("   ok (%dms)\n", r.DurationMs) },
				OnStepFailed:   func(r planexec.StepResult) { fmt.Printf("   failed: %s\n", r.ErrorMessage) },
			})
			if err != nil {
				return fmt.Errorf("plan execution error: %w", err)
			}

			fmt.Printf("plan %s: %s (%d steps, %dms)\n", result.PlanID, result.Status, len(result.StepResults), result.TotalDurationMs)
			if result.Status != planexec.StatusCompleted {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the plan-level confirmation prompt")
	return cmd
}

func confirmPlan(p *plan.Plan) bool {
	fmt.Printf("About to run plan %q (%s) with %d step(s). Proceed? [y/N]: ", p.PlanID, p.Intent, len(p.Steps))
	return readYesNo()
}

// confirmStep is the planexec.ConfirmFunc for steps that require
// confirmation before dispatch.
func confirmStep(step plan.Step) bool {
	fmt.Printf("Step %s calls %s with %v. Proceed? [y/N]: ", step.StepID, step.Tool, step.Arguments)
	return readYesNo()
}

func readYesNo() bool {
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
