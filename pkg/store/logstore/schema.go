package logstore

import (
	"fmt"
	"strings"

	"github.com/oldnordic/odincode/pkg/whitelist"
)

// schemaSQL returns the DDL applied when a log store is opened. It is
// re-run (IDEMPOTENT, via IF NOT EXISTS) every time Open is called, the same
// way nevindra-oasis's sqlite stores initialize their schema inline rather
// than through a versioned migration runner — there is exactly one shape
// for this file, not a history of shapes to migrate between.
func schemaSQL() string {
	return strings.Join([]string{
		createExecutionsTable,
		createArtifactsTable,
		indexExecutionsToolTimestamp,
		indexExecutionsTimestamp,
		indexArtifactsExecution,
		toolWhitelistTrigger(),
		timestampWindowTrigger,
		artifactTypeTrigger(),
		artifactJSONTrigger,
	}, "\n")
}

const createExecutionsTable = `
CREATE TABLE IF NOT EXISTS executions (
	id            TEXT PRIMARY KEY,
	tool_name     TEXT NOT NULL,
	arguments_json TEXT NOT NULL,
	timestamp_ms  INTEGER NOT NULL,
	success       INTEGER NOT NULL,
	exit_code     INTEGER,
	duration_ms   INTEGER,
	error_message TEXT
);`

const createArtifactsTable = `
CREATE TABLE IF NOT EXISTS execution_artifacts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	execution_id  TEXT NOT NULL REFERENCES executions(id),
	artifact_type TEXT NOT NULL,
	content_json  TEXT NOT NULL
);`

const indexExecutionsToolTimestamp = `
CREATE INDEX IF NOT EXISTS idx_executions_tool_ts ON executions(tool_name, timestamp_ms, id);`

const indexExecutionsTimestamp = `
CREATE INDEX IF NOT EXISTS idx_executions_ts ON executions(timestamp_ms, id);`

const indexArtifactsExecution = `
CREATE INDEX IF NOT EXISTS idx_artifacts_execution ON execution_artifacts(execution_id, artifact_type);`

// toolWhitelistTrigger enforces that tool_name is one of the whitelisted
// tools or an approved side-channel name, as a DB-level backstop behind
// the Go-level whitelist check.
func toolWhitelistTrigger() string {
	names := append(append([]string{}, whitelist.Tools...), whitelist.SideChannelToolNames...)
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("'%s'", n)
	}
	list := strings.Join(quoted, ", ")
	return fmt.Sprintf(`
DROP TRIGGER IF EXISTS trg_executions_tool_whitelist;
CREATE TRIGGER trg_executions_tool_whitelist
BEFORE INSERT ON executions
WHEN NEW.tool_name NOT IN (%s)
BEGIN
	SELECT RAISE(ABORT, 'tool_name not in whitelist');
END;`, list)
}

// timestampWindowTrigger rejects timestamps outside the sane absolute
// window: 2020-01-01 <= t <= now + 24h. 1577836800000 is
// 2020-01-01T00:00:00Z in epoch milliseconds.
const timestampWindowTrigger = `
DROP TRIGGER IF EXISTS trg_executions_timestamp_window;
CREATE TRIGGER trg_executions_timestamp_window
BEFORE INSERT ON executions
WHEN NEW.timestamp_ms < 1577836800000
  OR NEW.timestamp_ms > (CAST(strftime('%s', 'now') AS INTEGER) * 1000 + 86400000)
BEGIN
	SELECT RAISE(ABORT, 'timestamp_ms outside sane window');
END;`

// artifactTypeTrigger enforces the closed artifact_type vocabulary.
func artifactTypeTrigger() string {
	quoted := make([]string, len(whitelist.ArtifactTypes))
	for i, t := range whitelist.ArtifactTypes {
		quoted[i] = fmt.Sprintf("'%s'", t)
	}
	list := strings.Join(quoted, ", ")
	return fmt.Sprintf(`
DROP TRIGGER IF EXISTS trg_artifacts_type_whitelist;
CREATE TRIGGER trg_artifacts_type_whitelist
BEFORE INSERT ON execution_artifacts
WHEN NEW.artifact_type NOT IN (%s)
BEGIN
	SELECT RAISE(ABORT, 'artifact_type not in allowed set');
END;`, list)
}

// artifactJSONTrigger rejects artifact rows whose content is not
// syntactically valid JSON.
const artifactJSONTrigger = `
DROP TRIGGER IF EXISTS trg_artifacts_json_valid;
CREATE TRIGGER trg_artifacts_json_valid
BEFORE INSERT ON execution_artifacts
WHEN json_valid(NEW.content_json) = 0
BEGIN
	SELECT RAISE(ABORT, 'content_json is not valid JSON');
END;`
