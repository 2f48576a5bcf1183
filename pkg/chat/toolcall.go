package chat

import "strings"

// detectedToolCall is the result of scanning a finished assistant turn
// for a TOOL_CALL: block.
type detectedToolCall struct {
	Tool      string
	Arguments map[string]string
}

// parseToolCall scans text for a single "TOOL_CALL:" block of the form:
//
//	TOOL_CALL:
//	tool: <name>
//	args:
//	  <key>: <value>
//	  <key>: <value>
//
// At most one block is honored — at most one tool call
// is allowed per assistant turn; a second TOOL_CALL: marker anywhere in the
// text is ignored, not merged. Returns (nil, text) if no block is found,
// where text is the full input unchanged.
func parseToolCall(text string) *detectedToolCall {
	idx := strings.Index(text, "TOOL_CALL:")
	if idx < 0 {
		return nil
	}

	lines := strings.Split(text[idx:], "\n")
	var tool string
	args := map[string]string{}
	inArgs := false

	for _, raw := range lines[1:] {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "tool:"):
			tool = strings.TrimSpace(strings.TrimPrefix(trimmed, "tool:"))
		case trimmed == "args:":
			inArgs = true
		case inArgs && strings.HasPrefix(line, "  "):
			key, value, ok := strings.Cut(trimmed, ":")
			if !ok {
				continue
			}
			args[strings.TrimSpace(key)] = strings.TrimSpace(value)
		default:
			// A non-indented, non-"args:" line ends the block —
			// anything after it is ordinary trailing text, not part
			// of this tool call.
			if tool != "" {
				return &detectedToolCall{Tool: tool, Arguments: args}
			}
		}
	}

	if tool == "" {
		return nil
	}
	return &detectedToolCall{Tool: tool, Arguments: args}
}
