package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/oldnordic/odincode/pkg/canon"
	"github.com/oldnordic/odincode/pkg/llmadapter"
	"github.com/oldnordic/odincode/pkg/memory"
)

// compactionCutoff describes the most recent compaction recorded for a
// session, if any.
type compactionCutoff struct {
	found       bool
	upToMs      int64
	summaryText string
}

// latestCompactionCutoff finds the most recently recorded chat_compaction
// execution for sessionID, if one exists.
func latestCompactionCutoff(ctx context.Context, mem *memory.Memory, sessionID string) (compactionCutoff, error) {
	row := mem.Log().DB().QueryRowContext(ctx, `
		SELECT e.timestamp_ms, a.content_json
		FROM executions e
		JOIN execution_artifacts a ON a.execution_id = e.id
		WHERE e.tool_name = 'chat_compaction'
		  AND e.arguments_json LIKE ?
		  AND a.artifact_type = 'chat_summary'
		ORDER BY e.timestamp_ms DESC, e.id DESC
		LIMIT 1`, "%\"session_id\":\""+sessionID+"\"%")

	var tsMs int64
	var contentJSON string
	if err := row.Scan(&tsMs, &contentJSON); err != nil {
		return compactionCutoff{}, nil
	}
	summary, err := unquoteJSONString(contentJSON)
	if err != nil {
		return compactionCutoff{}, nil
	}
	return compactionCutoff{found: true, upToMs: tsMs, summaryText: summary}, nil
}

// BuildFrame reconstructs the LM-visible message sequence for a session:
// the chat system prompt, then persisted messages
// in timestamp order, with any compacted prefix substituted by its
// stored summary and a marker message. It is rebuilt on every call —
// never cached as authoritative state.
func BuildFrame(ctx context.Context, mem *memory.Memory, sessionID string) ([]llmadapter.Message, error) {
	messages, err := loadMessages(ctx, mem, sessionID)
	if err != nil {
		return nil, err
	}

	cutoff, err := latestCompactionCutoff(ctx, mem, sessionID)
	if err != nil {
		return nil, err
	}

	frame := []llmadapter.Message{{Role: llmadapter.RoleSystem, Content: SystemPrompt}}
	if cutoff.found {
		frame = append(frame, llmadapter.Message{
			Role:    llmadapter.RoleSystem,
			Content: "[earlier conversation compacted]\n" + cutoff.summaryText,
		})
	}

	for _, m := range messages {
		if cutoff.found && m.TimestampMs <= cutoff.upToMs {
			continue
		}
		frame = append(frame, llmadapter.Message{Role: llmadapter.Role(m.Role), Content: m.Content})
	}

	return frame, nil
}

// maybeCompact checks whether sess has exceeded the compaction thresholds
// and, if so, synthesizes a summary via a
// synchronous LM call over the compactable prefix, persists it, and
// marks the session compacted. It is called after finalizing any
// assistant message, never mid-turn.
func maybeCompact(ctx context.Context, cfg Config, sess *Session) error {
	messages, err := loadMessages(ctx, cfg.Memory, sess.ID)
	if err != nil {
		return err
	}

	cutoff, err := latestCompactionCutoff(ctx, cfg.Memory, sess.ID)
	if err != nil {
		return err
	}

	var uncompacted []Message
	for _, m := range messages {
		if cutoff.found && m.TimestampMs <= cutoff.upToMs {
			continue
		}
		uncompacted = append(uncompacted, m)
	}

	if len(uncompacted) <= CompactionMessageThreshold {
		return nil
	}
	if cfg.Adapter == nil {
		return nil
	}

	compactable := uncompacted[:len(uncompacted)-CompactionKeepRecent]
	if len(compactable) == 0 {
		return nil
	}

	summary, err := summarize(ctx, cfg, compactable)
	if err != nil {
		return fmt.Errorf("chat: compaction summary: %w", err)
	}

	upToMs := compactable[len(compactable)-1].TimestampMs

	var links []memory.Link
	for _, m := range compactable {
		links = append(links, memory.Link{EdgeType: "COMPACTED_TO", TargetName: m.ExecutionID})
	}

	_, err = cfg.Memory.RecordExecution(ctx, memory.CoreFields{
		ToolName:  "chat_compaction",
		Arguments: canon.Args{"session_id": sess.ID, "up_to_ms": fmt.Sprintf("%d", upToMs)},
		Success:   true,
	}, []memory.ArtifactInput{{ArtifactType: "chat_summary", Content: summary}}, links)
	if err != nil {
		return fmt.Errorf("chat: persist compaction: %w", err)
	}

	sess.compacted = true
	return nil
}

// summarize performs the frame stack's synchronous LM compaction call,
// one of the points in the loop where control suspends on a blocking
// network call.
func summarize(ctx context.Context, cfg Config, compactable []Message) (string, error) {
	var b strings.Builder
	for _, m := range compactable {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.lmTimeout())
	defer cancel()

	ch, err := cfg.Adapter.Stream(ctx, llmadapter.Request{
		Model: cfg.Model,
		Messages: []llmadapter.Message{
			{Role: llmadapter.RoleSystem, Content: "Summarize the following conversation excerpt concisely, preserving any facts or decisions a later turn may need."},
			{Role: llmadapter.RoleUser, Content: b.String()},
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for chunk := range ch {
		switch c := chunk.(type) {
		case llmadapter.TextChunk:
			text.WriteString(c.Content)
		case llmadapter.ErrorChunk:
			return "", fmt.Errorf("%s", c.Message)
		}
	}
	return text.String(), nil
}
