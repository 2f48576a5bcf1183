package logstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/oldnordic/odincode/pkg/store/logstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *logstore.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := logstore.Open(context.Background(), filepath.Join(dir, "execution_log.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_AutoCreatesSchema(t *testing.T) {
	s := openTestStore(t)
	assert.NotNil(t, s.DB())
}

func TestInsertExecutionWithArtifacts_Succeeds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	exec := logstore.ExecutionRow{
		ID:            "11111111111111111111111111111111",
		ToolName:      "file_read",
		ArgumentsJSON: `{"path":"a.go"}`,
		TimestampMs:   logstore.NowMs(),
		Success:       true,
	}
	artifacts := []logstore.ArtifactRow{
		{ExecutionID: exec.ID, ArtifactType: "stdout", ContentJSON: `"package main"`},
	}

	err := s.InsertExecutionWithArtifacts(ctx, exec, artifacts)
	require.NoError(t, err)

	got, err := s.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, exec.ToolName, got.ToolName)
	assert.True(t, got.Success)

	gotArtifacts, err := s.GetArtifacts(ctx, exec.ID)
	require.NoError(t, err)
	require.Len(t, gotArtifacts, 1)
	assert.Equal(t, "stdout", gotArtifacts[0].ArtifactType)
}

func TestInsertExecutionWithArtifacts_RejectsUnknownTool(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	exec := logstore.ExecutionRow{
		ID:            "22222222222222222222222222222222",
		ToolName:      "delete_everything",
		ArgumentsJSON: `{}`,
		TimestampMs:   logstore.NowMs(),
		Success:       true,
	}

	err := s.InsertExecutionWithArtifacts(ctx, exec, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, logstore.ErrValidationRejected)

	_, err = s.GetExecution(ctx, exec.ID)
	assert.ErrorIs(t, err, logstore.ErrNotFound)
}

func TestInsertExecutionWithArtifacts_RejectsTimestampOutsideWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	exec := logstore.ExecutionRow{
		ID:            "33333333333333333333333333333333",
		ToolName:      "file_read",
		ArgumentsJSON: `{}`,
		TimestampMs:   1,
		Success:       true,
	}

	err := s.InsertExecutionWithArtifacts(ctx, exec, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, logstore.ErrValidationRejected)
}

func TestInsertExecutionWithArtifacts_RejectsInvalidArtifactJSON(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	exec := logstore.ExecutionRow{
		ID:            "44444444444444444444444444444444",
		ToolName:      "file_read",
		ArgumentsJSON: `{}`,
		TimestampMs:   logstore.NowMs(),
		Success:       true,
	}
	bad := []logstore.ArtifactRow{
		{ExecutionID: exec.ID, ArtifactType: "stdout", ContentJSON: `{not json`},
	}

	err := s.InsertExecutionWithArtifacts(ctx, exec, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, logstore.ErrValidationRejected)

	_, err = s.GetExecution(ctx, exec.ID)
	assert.ErrorIs(t, err, logstore.ErrNotFound, "a rejected artifact must roll back the execution row too")
}

func TestInsertExecutionWithArtifacts_RejectsUnknownArtifactType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	exec := logstore.ExecutionRow{
		ID:            "55555555555555555555555555555555",
		ToolName:      "file_read",
		ArgumentsJSON: `{}`,
		TimestampMs:   logstore.NowMs(),
		Success:       true,
	}
	bad := []logstore.ArtifactRow{
		{ExecutionID: exec.ID, ArtifactType: "screenshot", ContentJSON: `"x"`},
	}

	err := s.InsertExecutionWithArtifacts(ctx, exec, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, logstore.ErrValidationRejected)
}

func TestGetExecution_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetExecution(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, logstore.ErrNotFound)
}
