// Package whitelist holds the closed, compile-time tool and artifact-type
// vocabularies shared by the execution memory, the tool invoker, and the
// plan validator. It exists as its own leaf package so that the memory
// package can validate against the whitelist without depending on the
// tool invoker — memory and tool each depend only downward on whitelist,
// never on each other.
//
// The tool set is a closed, tagged variant. Adding a tool means editing
// this file, its category in pkg/tool, and any precondition handling in
// pkg/plan — never a runtime plugin registry.
package whitelist

// Tools is the immutable whitelist of tool names a Step or chat tool-call
// may reference. It is never extended at runtime.
var Tools = []string{
	"bash_exec",
	"display_text",
	"execution_summary",
	"file_create",
	"file_edit",
	"file_glob",
	"file_read",
	"file_search",
	"file_write",
	"git_diff",
	"git_log",
	"git_status",
	"lsp_check",
	"memory_query",
	"references_from_file_to_symbol_name",
	"references_to_symbol_name",
	"splice_patch",
	"splice_plan",
	"symbols_in_file",
	"wc",
}

// SideChannelToolNames are additional values the log store accepts for
// tool_name on executions that record non-tool activity (chat turns, LLM
// preflight, compaction) — never whitelisted for plan steps or chat tool
// calls, only for direct calls to record_execution from the chat loop and
// frame stack.
var SideChannelToolNames = []string{
	"chat_message",
	"chat_compaction",
	"llm_preflight",
	"llm_plan",
	"llm_explain",
	"chat_summary",
}

// ArtifactTypes is the closed set of Artifact.artifact_type values.
var ArtifactTypes = []string{
	"stdout",
	"stderr",
	"diagnostics",
	"prompt",
	"plan",
	"validation_error",
	"llm_preflight",
	"llm_plan_stream",
	"plan_edit",
	"adapter_call",
	"adapter_response",
	"adapter_stream_chunk",
	"adapter_error",
	"chat_user_message",
	"chat_assistant_message",
	"chat_tool_message",
	"chat_session",
	"chat_summary",
	"approval_granted",
	"approval_denied",
	"reasoning_content",
}

// GraphEntityKinds are the disjoint namespaces for GraphEntity.kind:
// code-indexer owns File/Symbol/Reference, the core owns the rest.
var (
	IndexerEntityKinds = []string{"File", "Symbol", "Reference"}
	CoreEntityKinds    = []string{"execution", "chat_session", "chat_message", "chat_summary"}
)

// GraphEdgeTypes are the allowed GraphEdge.edge_type values.
var (
	IndexerEdgeTypes = []string{"DEFINES", "REFERENCES"}
	CoreEdgeTypes    = []string{
		"EXECUTED_ON",
		"AFFECTED",
		"PRODUCED",
		"REFERENCED",
		"RESPONDED_WITH",
		"ASKED_ABOUT",
		"MENTIONED_FILE",
		"COMPACTED_TO",
		"SUMMARY_OF",
	}
)

// ToolCategory classifies how a whitelisted tool may be invoked from chat.
type ToolCategory string

const (
	// CategoryAuto tools execute without approval: read-only or purely
	// observational.
	CategoryAuto ToolCategory = "auto"
	// CategoryGated tools require explicit user approval before execution
	// in chat mode.
	CategoryGated ToolCategory = "gated"
	// CategoryForbidden tools are never invoked from chat; they require an
	// explicit authorized plan. Unknown tools default to Forbidden.
	CategoryForbidden ToolCategory = "forbidden"
)

var gatedTools = map[string]bool{
	"file_write":  true,
	"file_create": true,
	"file_edit":   true,
}

var forbiddenTools = map[string]bool{
	"splice_patch": true,
	"splice_plan":  true,
}

// CategoryFor returns the chat dispatch category of a tool name. Tools not
// in the whitelist default to Forbidden.
func CategoryFor(toolName string) ToolCategory {
	if !IsWhitelisted(toolName) {
		return CategoryForbidden
	}
	if forbiddenTools[toolName] {
		return CategoryForbidden
	}
	if gatedTools[toolName] {
		return CategoryGated
	}
	return CategoryAuto
}

// IsWhitelisted reports whether name is one of the 20 whitelisted tools.
func IsWhitelisted(name string) bool {
	for _, t := range Tools {
		if t == name {
			return true
		}
	}
	return false
}

// IsValidLogToolName reports whether name is acceptable as an
// executions.tool_name value: a whitelisted tool, or an approved
// side-channel name.
func IsValidLogToolName(name string) bool {
	if IsWhitelisted(name) {
		return true
	}
	for _, t := range SideChannelToolNames {
		if t == name {
			return true
		}
	}
	return false
}

// IsValidArtifactType reports whether t is one of the allowed artifact
// types.
func IsValidArtifactType(t string) bool {
	for _, a := range ArtifactTypes {
		if a == t {
			return true
		}
	}
	return false
}
