package llmadapter

import "context"

// Fake is a deterministic in-process adapter for tests that must not
// depend on a live LM endpoint. It
// replays a fixed sequence of chunks for every call, regardless of the
// request content.
type Fake struct {
	Chunks []Chunk
	Err    error
	Calls  []Request
	closed bool
}

// NewFakeText builds a Fake that streams a single text response
// followed by a finish event — the common case for scripted tests.
func NewFakeText(text string) *Fake {
	return &Fake{Chunks: []Chunk{TextChunk{Content: text}, FinishChunk{Reason: "stop"}}}
}

// NewFakeToolCall builds a Fake that streams assistant text containing
// an embedded TOOL_CALL: block, for exercising the chat loop's tool
// dispatch without a live LM.
func NewFakeToolCall(toolName, argumentsJSON, precedingText string) *Fake {
	return &Fake{
		Chunks: []Chunk{
			TextChunk{Content: precedingText},
			ToolCallChunk{Name: toolName, ArgumentsJSON: argumentsJSON},
			FinishChunk{Reason: "tool_call"},
		},
	}
}

func (f *Fake) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	f.Calls = append(f.Calls, req)
	if f.Err != nil {
		return nil, f.Err
	}

	out := make(chan Chunk, len(f.Chunks))
	for _, c := range f.Chunks {
		select {
		case <-ctx.Done():
			close(out)
			return out, nil
		case out <- c:
		}
	}
	close(out)
	return out, nil
}

func (f *Fake) Close() error {
	f.closed = true
	return nil
}

// Closed reports whether Close has been called, for test assertions.
func (f *Fake) Closed() bool { return f.closed }
