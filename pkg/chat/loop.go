package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oldnordic/odincode/pkg/canon"
	"github.com/oldnordic/odincode/pkg/llmadapter"
	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/tool"
	"github.com/oldnordic/odincode/pkg/whitelist"
)

// HandleUserMessage is the session lifecycle entry point:
// persist the user message, build the frame stack, spawn an LM request,
// and drive the tool dispatch decision tree until the turn ends in
// plain text, a pending approval, or a safety-rail stop.
func HandleUserMessage(ctx context.Context, cfg Config, sess *Session, userText string) (TurnResult, error) {
	if _, err := persistMessage(ctx, cfg.Memory, sess.ID, "user", userText); err != nil {
		return TurnResult{}, err
	}
	sess.autoSteps = 0
	return runTurn(ctx, cfg, sess)
}

// ResolveApproval continues a turn paused at a Gated tool-call. If
// approved, the tool executes exactly as an Auto step would; if
// denied, a denial message is injected and the loop continues rather
// than ending the turn.
func ResolveApproval(ctx context.Context, cfg Config, sess *Session, decision ApprovalDecision) (TurnResult, error) {
	pending := sess.pending
	if pending == nil {
		return TurnResult{}, ErrNoPendingApproval
	}
	sess.pending = nil

	if err := recordApprovalDecision(ctx, cfg.Memory, sess.ID, pending.Tool, pending.Arguments, decision.Approved); err != nil {
		return TurnResult{}, err
	}

	if !decision.Approved {
		if _, err := persistMessage(ctx, cfg.Memory, sess.ID, "tool", fmt.Sprintf("[%s denied by user]", pending.Tool)); err != nil {
			return TurnResult{}, err
		}
		return runTurn(ctx, cfg, sess)
	}

	sess.grantApproval(pending.Tool, decision)
	if err := executeToolStep(ctx, cfg, sess, pending.Tool, pending.Arguments); err != nil {
		return TurnResult{}, err
	}
	return runTurn(ctx, cfg, sess)
}

// runTurn spawns one LM request against the current frame stack and
// applies the tool dispatch decision tree to its result. It recurses
// (via executeToolStep's caller) for each Auto step, bounded by
// MaxAutoSteps.
func runTurn(ctx context.Context, cfg Config, sess *Session) (TurnResult, error) {
	if sess.autoSteps > MaxAutoSteps {
		return TurnResult{Outcome: OutcomeMaxStepsExceeded}, nil
	}

	frame, err := BuildFrame(ctx, cfg.Memory, sess.ID)
	if err != nil {
		return TurnResult{}, err
	}

	text, reasoning, err := streamTurn(ctx, cfg, sess, frame)
	if err != nil {
		return TurnResult{}, err
	}

	assistantMsg, err := persistMessage(ctx, cfg.Memory, sess.ID, "assistant", text)
	if err != nil {
		return TurnResult{}, err
	}
	if reasoning != "" {
		if err := persistReasoning(ctx, cfg.Memory, assistantMsg.ExecutionID, reasoning); err != nil {
			return TurnResult{}, err
		}
	}

	if err := maybeCompact(ctx, cfg, sess); err != nil {
		return TurnResult{}, err
	}

	call := parseToolCall(text)
	if call == nil {
		// No TOOL_CALL: block found, so the turn ends and the loop
		// surfaces the text to the user.
		return TurnResult{Outcome: OutcomeText, Text: text}, nil
	}

	switch classify(call.Tool) {
	case whitelist.CategoryForbidden:
		explanation := fmt.Sprintf("The tool %q requires an authorized plan and cannot run from chat. Draft a plan to perform this action.", call.Tool)
		if _, err := persistMessage(ctx, cfg.Memory, sess.ID, "tool", explanation); err != nil {
			return TurnResult{}, err
		}
		return TurnResult{Outcome: OutcomeForbidden, Text: explanation}, nil

	case whitelist.CategoryGated:
		if sess.preApproved(call.Tool) {
			sess.autoSteps++
			if err := executeToolStep(ctx, cfg, sess, call.Tool, call.Arguments); err != nil {
				return TurnResult{}, err
			}
			return runTurn(ctx, cfg, sess)
		}
		sess.pending = &PendingApproval{SessionID: sess.ID, StepIndex: sess.autoSteps, Tool: call.Tool, Arguments: call.Arguments}
		return TurnResult{Outcome: OutcomeApprovalRequired, Approval: sess.pending}, nil

	default: // CategoryAuto
		sess.autoSteps++
		if sess.autoSteps > MaxAutoSteps {
			return TurnResult{Outcome: OutcomeMaxStepsExceeded}, nil
		}
		if err := executeToolStep(ctx, cfg, sess, call.Tool, call.Arguments); err != nil {
			return TurnResult{}, err
		}
		return runTurn(ctx, cfg, sess)
	}
}

// executeToolStep invokes toolName synchronously, records the
// execution against memory, and injects the result as a synthetic tool
// message into the frame stack — the only way a tool
// result re-enters the conversation is via a persisted chat_message,
// never an in-memory shortcut, so the next BuildFrame call sees it too.
func executeToolStep(ctx context.Context, cfg Config, sess *Session, toolName string, args map[string]string) error {
	invocation, invokeErr := tool.Invoke(ctx, toolName, args, cfg.Tool)
	if invokeErr != nil {
		_, err := persistMessage(ctx, cfg.Memory, sess.ID, "tool", fmt.Sprintf("%s failed: %s", toolName, invokeErr.Error()))
		return err
	}

	artifacts := toolArtifacts(invocation)
	var links []memory.Link
	if invocation.AffectedPath != "" {
		links = append(links, memory.Link{EdgeType: "AFFECTED", TargetName: invocation.AffectedPath, TargetFilePath: &invocation.AffectedPath})
	}

	var errMsgPtr *string
	if invocation.ErrorMessage != "" {
		errMsgPtr = &invocation.ErrorMessage
	}
	durationMs := invocation.DurationMs

	if _, err := cfg.Memory.RecordExecution(ctx, memory.CoreFields{
		ToolName:     toolName,
		Arguments:    canon.Args(args),
		Success:      invocation.Success,
		DurationMs:   &durationMs,
		ErrorMessage: errMsgPtr,
	}, artifacts, links); err != nil {
		return err
	}

	summary := invocation.Stdout
	if !invocation.Success {
		summary = fmt.Sprintf("%s: %s", toolName, invocation.ErrorMessage)
	}
	_, err := persistMessage(ctx, cfg.Memory, sess.ID, "tool", summary)
	return err
}

func toolArtifacts(inv tool.Invocation) []memory.ArtifactInput {
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

// persistReasoning stores a separable reasoning channel as its own
// artifact against the assistant message's execution, never folded into
// user-visible content and never re-injected into a later frame.
func persistReasoning(ctx context.Context, mem *memory.Memory, executionID, reasoning string) error {
	// Attached as its own side-channel execution rather than mutating the
	// already-committed assistant-message execution: executions are
	// append-only and never mutated after the fact.
	_, err := mem.RecordExecution(ctx, memory.CoreFields{
		ToolName:  "chat_message",
		Arguments: canon.Args{"kind": "reasoning", "for_execution_id": executionID},
		Success:   true,
	}, []memory.ArtifactInput{{ArtifactType: "reasoning_content", Content: reasoning}}, nil)
	return err
}

// streamTurn spawns one bounded LM request — the adapter's own Stream
// goroutine is the short-lived background task for it — and consumes
// its channel in full, separating the reasoning channel from
// user-visible text. Chunks are consumed FIFO in delivery order and
// handed to consumeStream, which gates them against sess's current
// generation so a turn that has already been superseded on this session
// cannot deliver its leftover chunks into the new one.
func streamTurn(ctx context.Context, cfg Config, sess *Session, frame []llmadapter.Message) (text, reasoning string, err error) {
	if cfg.Adapter == nil {
		return "", "", fmt.Errorf("chat: no language model adapter configured")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.lmTimeout())
	defer cancel()

	turn := sess.generation.Add(1)

	ch, err := cfg.Adapter.Stream(ctx, llmadapter.Request{Model: cfg.Model, Messages: frame})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrLmProtocolError, err)
	}

	return consumeStream(ctx, sess, turn, ch)
}

// consumeStream drains ch, the channel backing one in-flight LM
// request, and assembles its text and reasoning content. Every chunk is
// checked against sess.generation at the point it arrives: if a newer
// turn has already started on this session, the generation sess carries
// no longer matches turn, and the chunk is dropped instead of being
// folded into the wrong turn's result. This is the session's only
// in-flight turn today, so the drop path is latent until a future
// caller starts overlapping turns on the same session (for example a
// client that sends a new message before the previous one finished
// streaming); the check exists so that case fails safe rather than
// silently merging two turns' output.
func consumeStream(ctx context.Context, sess *Session, turn int64, ch <-chan llmadapter.Chunk) (text, reasoning string, err error) {
	var textBuf, reasonBuf []byte
	sawFinish := false
	for chunk := range ch {
		if sess.generation.Load() != turn {
			slog.Warn("chat: dropped chunk from a superseded turn", "session_id", sess.ID, "turn", turn)
			continue
		}
		switch c := chunk.(type) {
		case llmadapter.TextChunk:
			textBuf = append(textBuf, c.Content...)
		case llmadapter.ReasoningChunk:
			reasonBuf = append(reasonBuf, c.Content...)
		case llmadapter.ToolCallChunk:
			// A structured tool-call delta from a provider that supports
			// one is folded into the same TOOL_CALL: textual form the
			// parser already understands, so dispatch has one code path.
			textBuf = append(textBuf, []byte(toolCallChunkToText(c))...)
		case llmadapter.FinishChunk:
			sawFinish = true
		case llmadapter.ErrorChunk:
			return "", "", fmt.Errorf("%w: %s", ErrLmProtocolError, c.Message)
		}
	}
	if ctx.Err() != nil {
		return "", "", fmt.Errorf("%w: %v", ErrLmTimeout, ctx.Err())
	}
	if !sawFinish {
		return "", "", ErrChannelDisconnected
	}

	return string(textBuf), string(reasonBuf), nil
}

// toolCallChunkToText renders a structured ToolCallChunk as a
// TOOL_CALL: block in the same indented key/value form a text-only
// provider would produce, so parseToolCall has one input shape
// regardless of whether the adapter emitted structured or free-text
// tool calls.
func toolCallChunkToText(c llmadapter.ToolCallChunk) string {
	var args map[string]any
	_ = json.Unmarshal([]byte(c.ArgumentsJSON), &args)

	var b strings.Builder
	b.WriteString("\nTOOL_CALL:\ntool: ")
	b.WriteString(c.Name)
	b.WriteString("\nargs:\n")
	for k, v := range args {
		fmt.Fprintf(&b, "  %s: %v\n", k, v)
	}
	return b.String()
}
