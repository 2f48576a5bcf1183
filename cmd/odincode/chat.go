package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/oldnordic/odincode/pkg/chat"
)

// chatCmd runs the interactive chat mode as a terminal REPL: a thin
// driver over pkg/chat's HandleUserMessage / ResolveApproval, prompting
// y/n for a Gated tool call exactly as pkg/config's preflight wizard
// prompts for configuration fields.
func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session against the configured language model",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()

			adapter, err := buildAdapter(b.cfg.LM())
			if err != nil {
				return fmt.Errorf("language model adapter: %w", err)
			}

			chatCfg := chat.Config{
				Memory:    b.mem,
				Tool:      b.toolCfg,
				Adapter:   adapter,
				Model:     b.cfg.LM().Model,
				LMTimeout: b.cfg.LM().Timeout(0),
			}
			sess, err := chat.NewSession(cmd.Context(), chatCfg, uuid.NewString())
			if err != nil {
				return fmt.Errorf("starting chat session: %w", err)
			}

			return runChatRepl(cmd, chatCfg, sess)
		},
	}
}

func runChatRepl(cmd *cobra.Command, cfg chat.Config, sess *chat.Session) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("OdinCode chat. Type a message, or Ctrl-D to quit.")
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		result, err := chat.HandleUserMessage(cmd.Context(), cfg, sess, line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		if err := driveOutcome(cmd, cfg, sess, result); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

// driveOutcome prints a turn's result and, for a Gated tool call,
// prompts for approval and resolves it — looping until the turn settles
// on plain text, a forbidden-tool explanation, or the max-steps rail.
func driveOutcome(cmd *cobra.Command, cfg chat.Config, sess *chat.Session, result chat.TurnResult) error {
	for {
		switch result.Outcome {
		case chat.OutcomeText:
			fmt.Println(result.Text)
			return nil
		case chat.OutcomeForbidden:
			fmt.Println(result.Text)
			return nil
		case chat.OutcomeMaxStepsExceeded:
			fmt.Println("(stopped: too many automatic tool steps in this turn)")
			return nil
		case chat.OutcomeApprovalRequired:
			approval := result.Approval
			fmt.Printf("Approval required: %s %v\n", approval.Tool, approval.Arguments)
			fmt.Print("Approve [y]es / [n]o / [a]lways for this tool this session: ")
			reader := bufio.NewReader(os.Stdin)
			line, _ := reader.ReadString('\n')
			line = strings.TrimSpace(strings.ToLower(line))

			decision := chat.ApprovalDecision{Scope: chat.ScopeOnce}
			switch line {
			case "y", "yes":
				decision.Approved = true
			case "a", "always":
				decision.Approved = true
				decision.Scope = chat.ScopeSessionAllGated
			default:
				decision.Approved = false
			}

			next, err := chat.ResolveApproval(cmd.Context(), cfg, sess, decision)
			if err != nil {
				return err
			}
			result = next
		default:
			return fmt.Errorf("chat: unknown turn outcome %q", result.Outcome)
		}
	}
}
