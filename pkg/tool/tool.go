// Package tool implements the tool invoker: a pure dispatch
// layer mapping a whitelisted tool name and argument map to a concrete
// operation. Arguments are passed verbatim — no sanitization, no path
// expansion — the caller (plan executor or chat loop) is responsible for
// resolving preconditions before dispatch.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/oldnordic/odincode/pkg/evidence"
	"github.com/oldnordic/odincode/pkg/redact"
	"github.com/oldnordic/odincode/pkg/store/graphstore"
	"github.com/oldnordic/odincode/pkg/whitelist"
)

// defaultRedactor scrubs secret-shaped substrings (API keys, tokens,
// passwords) out of every tool's stdout/stderr before a caller persists
// it as a log artifact; artifacts are stored as plain JSON with no
// built-in redaction of their own. One shared instance is safe for concurrent
// use since Service.Redact is a pure function over its compiled
// patterns.
var defaultRedactor = redact.New()

// Diagnostic is one entry of a lsp_check result.
type Diagnostic struct {
	Code    string `json:"code"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
	Severity string `json:"severity"`
}

// Invocation is the uniform result of dispatching any whitelisted tool:
// success, stdout, stderr, error_message, affected_path, duration_ms,
// diagnostics.
type Invocation struct {
	Success      bool
	Stdout       string
	Stderr       string
	ErrorMessage string
	AffectedPath string
	DurationMs   int64
	Diagnostics  []Diagnostic
}

// Config carries the external collaborators and process settings a tool
// handler may need. All fields are optional; handlers that need an unset
// one fail distinctively rather than silently degrading.
type Config struct {
	// Root is the configured root directory, used to resolve
	// root-relative preconditions (e.g. "codegraph.db present").
	Root string
	// Graph is the open graph store, or nil if unreachable.
	Graph *graphstore.Store
	// Evidence answers memory_query / execution_summary by querying the
	// log and graph stores; the tool invoker depends on the evidence
	// package, never the reverse.
	Evidence *evidence.Evidence
	// SpliceBinaryPath is the external span-safe refactoring binary
	// invoked by splice_patch/splice_plan.
	SpliceBinaryPath string
	// LSPCheckCommand is the external diagnostics binary invoked by
	// lsp_check.
	LSPCheckCommand string
	// Shell is the shell used to run bash_exec commands.
	Shell string
	// Timeout bounds every subprocess invocation. Zero means no bound.
	Timeout time.Duration
	// Redact scrubs secret-shaped substrings from stdout/stderr before
	// they are returned to the caller. Defaults to defaultRedactor when
	// nil, never to a no-op — a caller must construct redact.New() with
	// an explicitly empty pattern set to opt out.
	Redact *redact.Service
}

func (c Config) redactor() *redact.Service {
	if c.Redact != nil {
		return c.Redact
	}
	return defaultRedactor
}

func (c Config) shell() string {
	if c.Shell != "" {
		return c.Shell
	}
	return "/bin/sh"
}

func (c Config) lspCommand() string {
	if c.LSPCheckCommand != "" {
		return c.LSPCheckCommand
	}
	return "gopls"
}

func (c Config) spliceBinary() string {
	if c.SpliceBinaryPath != "" {
		return c.SpliceBinaryPath
	}
	return "splice"
}

type handlerFunc func(ctx context.Context, args map[string]string, cfg Config) (Invocation, error)

var dispatchTable = map[string]handlerFunc{
	"file_read":                           handleFileRead,
	"file_write":                          handleFileWrite,
	"file_create":                         handleFileCreate,
	"file_edit":                           handleFileEdit,
	"file_search":                         handleFileSearch,
	"file_glob":                           handleFileGlob,
	"splice_patch":                        handleSplicePatch,
	"splice_plan":                         handleSplicePlan,
	"symbols_in_file":                     handleSymbolsInFile,
	"references_to_symbol_name":           handleReferencesToSymbolName,
	"references_from_file_to_symbol_name": handleReferencesFromFileToSymbolName,
	"lsp_check":                           handleLSPCheck,
	"bash_exec":                           handleBashExec,
	"git_status":                          handleGitStatus,
	"git_diff":                            handleGitDiff,
	"git_log":                             handleGitLog,
	"wc":                                  handleWC,
	"display_text":                        handleDisplayText,
	"memory_query":                        handleMemoryQuery,
	"execution_summary":                   handleExecutionSummary,
}

// Invoke dispatches toolName against args. Unknown names (including
// known-but-not-whitelisted names) fail with ErrToolNotFound before any
// side effect — callers that need whitelist enforcement should check
// whitelist.IsWhitelisted first; Invoke itself only guards its own
// dispatch table.
func Invoke(ctx context.Context, toolName string, args map[string]string, cfg Config) (Invocation, error) {
	if !whitelist.IsWhitelisted(toolName) {
		return Invocation{}, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
	}
	handler, ok := dispatchTable[toolName]
	if !ok {
		return Invocation{}, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
	}

	start := time.Now()
	result, err := handler(ctx, args, cfg)
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		return Invocation{}, err
	}

	redactor := cfg.redactor()
	result.Stdout = redactor.Redact(result.Stdout)
	result.Stderr = redactor.Redact(result.Stderr)
	result.ErrorMessage = redactor.Redact(result.ErrorMessage)

	return result, nil
}

func requireArg(args map[string]string, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	return v, nil
}
