package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/oldnordic/odincode/pkg/canon"
	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/store/logstore"
)

// Message is one entry of a session's reconstructed history, recovered
// by replaying chat_message executions from the
// log rather than held as its own table.
type Message struct {
	SessionID   string
	Role        string
	Content     string
	TimestampMs int64
	ExecutionID string
}

// recordSessionStart inserts a chat_session graph entity and returns the
// session's start time. The log itself needs no row for session start —
// the first chat_message execution is the first durable evidence of the
// session — so a failure to reach the graph store here only means the
// session entity is unavailable for graph-path evidence queries, not
// that the session cannot proceed.
func recordSessionStart(ctx context.Context, mem *memory.Memory, sessionID string) (int64, error) {
	startMs := logstore.NowMs()
	tx, err := mem.Graph().BeginTx(ctx)
	if err != nil {
		slog.Warn("chat: graph store unreachable, chat_session entity not recorded", "session_id", sessionID, "error", err)
		return startMs, nil
	}
	if _, err := mem.Graph().InsertEntity(ctx, tx, "chat_session", sessionID, nil, map[string]any{"start_time_ms": startMs}); err != nil {
		_ = tx.Rollback()
		slog.Warn("chat: failed to insert chat_session entity", "session_id", sessionID, "error", err)
		return startMs, nil
	}
	_ = tx.Commit()
	return startMs, nil
}

// touchSessionActivity bumps the session's chat_session entity with its
// most recent message timestamp, so a long-idle session can be identified
// by evidence queries without tracking any in-process state (tarsy's
// AlertSession.last_interaction_at, narrowed to single-process OdinCode
// with no accompanying pod_id — there is only ever one process). A
// failure here never blocks the chat turn itself, for the same reason
// recordSessionStart's graph write is best-effort, but it is logged so
// the gap is observable rather than masked.
func touchSessionActivity(ctx context.Context, mem *memory.Memory, sessionID string, lastInteractionMs int64) {
	existing, err := mem.Graph().ResolveEntity(ctx, sessionID, nil)
	data := map[string]any{}
	if err == nil {
		_ = json.Unmarshal([]byte(existing.DataJSON), &data)
	}
	data["last_interaction_at"] = lastInteractionMs
	if err := mem.Graph().UpdateEntityData(ctx, "chat_session", sessionID, data); err != nil {
		slog.Warn("chat: failed to update chat_session activity timestamp", "session_id", sessionID, "error", err)
	}
}

// persistMessage records one chat message as a chat_message execution,
// with its
// content stored as a chat_user_message / chat_assistant_message /
// chat_tool_message-shaped artifact and session_id/role carried in the
// canonicalized arguments so loadMessages can filter and order them.
func persistMessage(ctx context.Context, mem *memory.Memory, sessionID, role, content string) (Message, error) {
	var artifactType string
	switch role {
	case "assistant":
		artifactType = "chat_assistant_message"
	case "tool":
		artifactType = "chat_tool_message"
	default:
		artifactType = "chat_user_message"
	}

	result, err := mem.RecordExecution(ctx, memory.CoreFields{
		ToolName:  "chat_message",
		Arguments: canon.Args{"session_id": sessionID, "role": role},
		Success:   true,
	}, []memory.ArtifactInput{{ArtifactType: artifactType, Content: content}}, nil)
	if err != nil {
		return Message{}, fmt.Errorf("chat: persist message: %w", err)
	}

	touchSessionActivity(ctx, mem, sessionID, result.TimestampMs)

	return Message{
		SessionID:   sessionID,
		Role:        role,
		Content:     content,
		TimestampMs: result.TimestampMs,
		ExecutionID: result.ExecutionID,
	}, nil
}

// recordApprovalDecision records an approval_granted or approval_denied
// artifact against the session, as a side-channel
// execution rather than a tool invocation — approvals are never
// themselves whitelisted tool calls.
func recordApprovalDecision(ctx context.Context, mem *memory.Memory, sessionID, toolName string, args map[string]string, approved bool) error {
	artifactType := "approval_denied"
	if approved {
		artifactType = "approval_granted"
	}
	_, err := mem.RecordExecution(ctx, memory.CoreFields{
		ToolName:  "chat_message",
		Arguments: canon.Args{"session_id": sessionID, "kind": "approval", "tool": toolName},
		Success:   true,
	}, []memory.ArtifactInput{{ArtifactType: artifactType, Content: map[string]any{"tool": toolName, "arguments": args}}}, nil)
	return err
}

// loadMessages replays every chat_message execution belonging to
// sessionID, in timestamp order, reconstructing Message values from
// each execution's arguments and its single content artifact. It issues
// raw SQL directly against the log store's connection, the same pattern
// pkg/tool's graph handlers use against the graph store: the chat loop
// and frame stack may read the log store's
// schema directly rather than only through pkg/evidence's eight fixed
// queries.
func loadMessages(ctx context.Context, mem *memory.Memory, sessionID string) ([]Message, error) {
	rows, err := mem.Log().DB().QueryContext(ctx, `
		SELECT e.id, e.arguments_json, e.timestamp_ms, a.artifact_type, a.content_json
		FROM executions e
		JOIN execution_artifacts a ON a.execution_id = e.id
		WHERE e.tool_name = 'chat_message'
		  AND e.arguments_json LIKE ?
		  AND a.artifact_type IN ('chat_user_message', 'chat_assistant_message', 'chat_tool_message')
		  -- role is read from e.arguments_json, not inferred from artifact_type,
		  -- so this IN-list only needs to exclude unrelated chat_message rows
		  -- (e.g. reasoning_content side-channel executions).
		ORDER BY e.timestamp_ms ASC, e.id ASC`,
		"%\"session_id\":\""+sessionID+"\"%")
	if err != nil {
		return nil, fmt.Errorf("chat: load messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var id, argumentsJSON, artifactType, contentJSON string
		var tsMs int64
		if err := rows.Scan(&id, &argumentsJSON, &tsMs, &artifactType, &contentJSON); err != nil {
			return nil, fmt.Errorf("chat: scan message: %w", err)
		}
		role, err := roleFromArguments(argumentsJSON)
		if err != nil {
			continue
		}
		content, err := unquoteJSONString(contentJSON)
		if err != nil {
			continue
		}
		out = append(out, Message{SessionID: sessionID, Role: role, Content: content, TimestampMs: tsMs, ExecutionID: id})
	}
	return out, rows.Err()
}

// roleFromArguments extracts the "role" key from a canonicalized
// arguments JSON object without a full decode, mirroring the
// substring-based reasoning pkg/evidence's fallback queries already use
// for argument parsing when the expected key is absent.
func roleFromArguments(argumentsJSON string) (string, error) {
	const marker = `"role":"`
	i := indexOf(argumentsJSON, marker)
	if i < 0 {
		return "", fmt.Errorf("chat: no role in arguments %q", argumentsJSON)
	}
	rest := argumentsJSON[i+len(marker):]
	j := indexOf(rest, `"`)
	if j < 0 {
		return "", fmt.Errorf("chat: unterminated role in arguments %q", argumentsJSON)
	}
	return rest[:j], nil
}

func unquoteJSONString(contentJSON string) (string, error) {
	var s string
	if err := json.Unmarshal([]byte(contentJSON), &s); err == nil {
		return s, nil
	}
	// content was marshaled from a non-string value (e.g. a tool
	// invocation summary); surface it verbatim.
	return contentJSON, nil
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
