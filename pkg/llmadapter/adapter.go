// Package llmadapter defines the language-model streaming contract:
// given a message list, produce either a full
// response or a stream of text deltas, optional tool-call deltas, an
// optional reasoning channel, and a final finish event with optional
// token usage. The adapters themselves (external HTTP, local
// OpenAI-compatible HTTP) are collaborators — only this contract is
// normative; the core never depends on a specific provider's wire
// format outside its own adapter implementation.
package llmadapter

import "context"

// Role is a conversation message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the structured array transmitted to the LM —
// messages are never concatenated into a single user message.
type Message struct {
	Role       Role
	Content    string
	ToolCallID string // set on RoleTool messages
	ToolName   string // set on RoleTool messages
}

// Request is one LM call.
type Request struct {
	Messages []Message
	Model    string
}

// ChunkType identifies the kind of streaming chunk (grounded on the
// teacher's channel-based streaming Chunk design).
type ChunkType string

const (
	ChunkTypeText      ChunkType = "text"
	ChunkTypeReasoning ChunkType = "reasoning"
	ChunkTypeToolCall  ChunkType = "tool_call"
	ChunkTypeUsage     ChunkType = "usage"
	ChunkTypeFinish    ChunkType = "finish"
	ChunkTypeError     ChunkType = "error"
)

// Chunk is the interface for all streaming chunk types.
type Chunk interface {
	Type() ChunkType
}

// TextChunk is an incremental piece of user-visible assistant text.
type TextChunk struct{ Content string }

// ReasoningChunk carries a separable reasoning channel, if the provider
// exposes one. It must never be re-injected into subsequent frames —
// callers persist it as a reasoning_content artifact and strip
// it from user-visible content.
type ReasoningChunk struct{ Content string }

// ToolCallChunk signals the assistant wants to call a tool. The chat
// loop scans the finished text for a TOOL_CALL: block rather than
// relying on a structured tool-call API, but adapters that do receive a
// structured tool-call delta from their provider surface it here too.
type ToolCallChunk struct {
	Name          string
	ArgumentsJSON string
}

// UsageChunk reports token consumption, if the provider supplies it.
type UsageChunk struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// FinishChunk is the terminal event of a successful stream.
type FinishChunk struct{ Reason string }

// ErrorChunk signals a terminal adapter-side failure.
type ErrorChunk struct {
	Message   string
	Retryable bool
}

func (c TextChunk) Type() ChunkType      { return ChunkTypeText }
func (c ReasoningChunk) Type() ChunkType { return ChunkTypeReasoning }
func (c ToolCallChunk) Type() ChunkType  { return ChunkTypeToolCall }
func (c UsageChunk) Type() ChunkType     { return ChunkTypeUsage }
func (c FinishChunk) Type() ChunkType    { return ChunkTypeFinish }
func (c ErrorChunk) Type() ChunkType     { return ChunkTypeError }

// Adapter is the contract every LM collaborator implements. Stream
// returns a channel closed when the stream completes (after a Finish or
// Error chunk); errors during setup (bad config, unreachable endpoint)
// are returned directly rather than as a channel event.
type Adapter interface {
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
	Close() error
}
