package llmadapter_test

import (
	"context"
	"testing"

	"github.com/oldnordic/odincode/pkg/llmadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan llmadapter.Chunk) []llmadapter.Chunk {
	t.Helper()
	var chunks []llmadapter.Chunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	return chunks
}

func TestFake_StreamsScriptedTextThenFinish(t *testing.T) {
	f := llmadapter.NewFakeText("hello world")
	ch, err := f.Stream(context.Background(), llmadapter.Request{Messages: []llmadapter.Message{{Role: llmadapter.RoleUser, Content: "hi"}}})
	require.NoError(t, err)

	chunks := drain(t, ch)
	require.Len(t, chunks, 2)
	assert.Equal(t, llmadapter.ChunkTypeText, chunks[0].Type())
	assert.Equal(t, "hello world", chunks[0].(llmadapter.TextChunk).Content)
	assert.Equal(t, llmadapter.ChunkTypeFinish, chunks[1].Type())
	require.Len(t, f.Calls, 1)
}

func TestFake_StreamsToolCallBlock(t *testing.T) {
	f := llmadapter.NewFakeToolCall("file_read", `{"path":"README.md"}`, "Let me check that.")
	ch, err := f.Stream(context.Background(), llmadapter.Request{})
	require.NoError(t, err)

	chunks := drain(t, ch)
	require.Len(t, chunks, 3)
	toolChunk, ok := chunks[1].(llmadapter.ToolCallChunk)
	require.True(t, ok)
	assert.Equal(t, "file_read", toolChunk.Name)
	assert.Equal(t, `{"path":"README.md"}`, toolChunk.ArgumentsJSON)
}

func TestFake_ReturnsConfiguredErrorInsteadOfStreaming(t *testing.T) {
	f := &llmadapter.Fake{Err: assertError("boom")}
	_, err := f.Stream(context.Background(), llmadapter.Request{})
	assert.Error(t, err)
}

func TestFake_CloseMarksClosed(t *testing.T) {
	f := llmadapter.NewFakeText("x")
	assert.False(t, f.Closed())
	require.NoError(t, f.Close())
	assert.True(t, f.Closed())
}

func TestDisabled_StreamAlwaysErrsWithErrDisabled(t *testing.T) {
	d := llmadapter.Disabled{}
	_, err := d.Stream(context.Background(), llmadapter.Request{})
	assert.ErrorIs(t, err, llmadapter.ErrDisabled)
	assert.NoError(t, d.Close())
}

type assertError string

func (e assertError) Error() string { return string(e) }
