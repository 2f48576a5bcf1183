// Package memory implements the Execution Memory component: it owns the
// log store and graph store at a single root directory and exposes the
// record_execution contract as the one place a tool invocation, a
// chat turn, or an LM call becomes a durable row.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/oldnordic/odincode/pkg/canon"
	"github.com/oldnordic/odincode/pkg/store/graphstore"
	"github.com/oldnordic/odincode/pkg/store/logstore"
)

const (
	logFileName   = "execution_log.db"
	graphFileName = "codegraph.db"
)

// CoreFields are the caller-supplied fields of an execution row; id and
// timestamp_ms are assigned by RecordExecution.
type CoreFields struct {
	ToolName     string
	Arguments    canon.Args
	Success      bool
	ExitCode     *int64
	DurationMs   *int64
	ErrorMessage *string
}

// ArtifactInput is a caller-supplied artifact to attach to an execution.
// Content is marshaled to JSON before storage; pass an already-JSON string
// result unchanged by wrapping it in json.RawMessage.
type ArtifactInput struct {
	ArtifactType string
	Content      any
}

// Link is an ordered graph-attachment request: resolve an entity by
// name/path and connect it to the new execution entity with edge_type.
type Link struct {
	EdgeType       string
	TargetName     string
	TargetFilePath *string
}

// RecordResult is what RecordExecution returns on success. GraphEntityAvailable
// is false when step 2 of the dual-write protocol could not complete — the
// log row still stands, but evidence queries relying on the graph must
// flag their answer as data_source = "fallback".
type RecordResult struct {
	ExecutionID          string
	TimestampMs          int64
	GraphEntityAvailable bool
}

// Memory owns the log store and graph store opened at a shared root
// directory.
type Memory struct {
	log   *logstore.Store
	graph *graphstore.Store
}

// Open opens both stores rooted at dir. The log store is auto-created if
// missing; the graph store must already exist with the expected tables or
// Open fails with graphstore.ErrCodegraphNotFound.
func Open(ctx context.Context, dir string) (*Memory, error) {
	graph, err := graphstore.Open(ctx, filepath.Join(dir, graphFileName))
	if err != nil {
		return nil, err
	}

	log, err := logstore.Open(ctx, filepath.Join(dir, logFileName))
	if err != nil {
		_ = graph.Close()
		return nil, err
	}

	return &Memory{log: log, graph: graph}, nil
}

// Close releases both underlying store connections.
func (m *Memory) Close() error {
	logErr := m.log.Close()
	graphErr := m.graph.Close()
	if logErr != nil {
		return logErr
	}
	return graphErr
}

// Log exposes the log store for the evidence-query package.
func (m *Memory) Log() *logstore.Store {
	return m.log
}

// Graph exposes the graph store for the evidence-query package.
func (m *Memory) Graph() *graphstore.Store {
	return m.graph
}

// RecordExecution performs the two-phase dual-write protocol:
//
//  1. Log transaction: insert the execution row and its artifacts, commit.
//     Any failure here rolls back and nothing is written to either store.
//  2. Graph transaction: insert an execution entity, resolve each link's
//     target by name/path, insert the edge. Any failure here leaves the
//     log commit standing and is reported via GraphEntityAvailable and a
//     logged warning — this is the first-class, never-masked "dual-write gap".
func (m *Memory) RecordExecution(ctx context.Context, fields CoreFields, artifacts []ArtifactInput, links []Link) (RecordResult, error) {
	id, err := newExecutionID()
	if err != nil {
		return RecordResult{}, err
	}
	ts := logstore.NowMs()

	argsJSON := canon.Canonicalize(fields.Arguments)

	artifactRows := make([]logstore.ArtifactRow, 0, len(artifacts))
	for _, a := range artifacts {
		payload, err := json.Marshal(a.Content)
		if err != nil {
			return RecordResult{}, fmt.Errorf("memory: marshal artifact %s: %w", a.ArtifactType, err)
		}
		artifactRows = append(artifactRows, logstore.ArtifactRow{
			ExecutionID:  id,
			ArtifactType: a.ArtifactType,
			ContentJSON:  string(payload),
		})
	}

	execRow := logstore.ExecutionRow{
		ID:            id,
		ToolName:      fields.ToolName,
		ArgumentsJSON: argsJSON,
		TimestampMs:   ts,
		Success:       fields.Success,
		ExitCode:      fields.ExitCode,
		DurationMs:    fields.DurationMs,
		ErrorMessage:  fields.ErrorMessage,
	}

	if err := m.log.InsertExecutionWithArtifacts(ctx, execRow, artifactRows); err != nil {
		return RecordResult{}, err
	}

	available := m.writeGraphSide(ctx, id, links)

	return RecordResult{ExecutionID: id, TimestampMs: ts, GraphEntityAvailable: available}, nil
}

// writeGraphSide performs record_execution's step 2. Any failure demotes
// the return value to false rather than propagating — the log
// commit from step 1 already stands and must not be undone — but is
// logged so the gap between the two stores is observable, not masked.
func (m *Memory) writeGraphSide(ctx context.Context, executionID string, links []Link) bool {
	tx, err := m.graph.BeginTx(ctx)
	if err != nil {
		slog.Warn("memory: dual-write gap, graph store unreachable", "execution_id", executionID, "error", err)
		return false
	}

	entityID, err := m.graph.InsertExecutionEntity(ctx, tx, executionID)
	if err != nil {
		_ = tx.Rollback()
		slog.Warn("memory: dual-write gap, failed to insert execution entity", "execution_id", executionID, "error", err)
		return false
	}

	for _, link := range links {
		target, err := m.graph.ResolveEntity(ctx, link.TargetName, link.TargetFilePath)
		if err != nil {
			_ = tx.Rollback()
			slog.Warn("memory: dual-write gap, link target unresolved", "execution_id", executionID, "target", link.TargetName, "error", err)
			return false
		}
		if err := m.graph.InsertEdge(ctx, tx, entityID, target.ID, "execution", target.Kind, link.EdgeType, map[string]string{}); err != nil {
			_ = tx.Rollback()
			slog.Warn("memory: dual-write gap, failed to insert edge", "execution_id", executionID, "edge_type", link.EdgeType, "error", err)
			return false
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Warn("memory: dual-write gap, graph transaction commit failed", "execution_id", executionID, "error", err)
		return false
	}
	return true
}
