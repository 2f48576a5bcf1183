// Package chat implements the chat tool loop and its frame stack: a
// streaming language-model conversation that may
// call whitelisted tools, gated by per-tool approval, with its message
// history rebuilt on every request as a projection of the execution log
// rather than held as independent authoritative state.
//
// The loop is single-threaded cooperative: HandleUserMessage and
// ResolveApproval never run concurrently with each other or with a plan
// execution against the same session. Each LM request spawns one
// short-lived background task — the
// adapter's own Stream goroutine; this package consumes its channel
// synchronously and in full before returning, so from the caller's
// perspective a turn either completes, asks for approval, or errors.
package chat

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oldnordic/odincode/pkg/llmadapter"
	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/tool"
	"github.com/oldnordic/odincode/pkg/whitelist"
)

// SystemPrompt is the chat system prompt prepended to every frame stack.
// It exists specifically to suppress planning/chat prompt divergence:
// models tuned on planning-mode output
// must be steered back to TOOL_CALL: form.
const SystemPrompt = `You are operating in chat mode, not planning mode.
Never emit a JSON plan. If you need to use a tool, emit a single block
of the exact form:

TOOL_CALL:
tool: <tool_name>
args:
  <key>: <value>

At most one TOOL_CALL block per turn. If no tool is needed, respond
with plain text.`

// MaxAutoSteps bounds the number of Auto-classified tool invocations the
// loop will chain within a single user turn before ending it with an
// error, a safety rail against runaway tool chains.
const MaxAutoSteps = 10

// DefaultLMTimeout is the bounded total timeout every LM network request
// carries by default, configurable per Config.
const DefaultLMTimeout = 30 * time.Second

// CompactionMessageThreshold and CompactionKeepRecent are the frame
// stack's default compaction trigger.
const (
	CompactionMessageThreshold = 50
	CompactionKeepRecent       = 10
)

// ApprovalScope is a per-session grant recorded after a Gated tool is
// approved.
type ApprovalScope int

const (
	// ScopeOnce approves exactly one pending invocation of a specific
	// tool and does not apply to any later call.
	ScopeOnce ApprovalScope = iota
	// ScopeSessionAllGated approves every Gated tool for the remainder
	// of the session. Approvals never survive a session boundary.
	ScopeSessionAllGated
)

// PendingApproval is what the loop surfaces when a Gated tool-call is
// detected. The caller resolves it via ResolveApproval.
type PendingApproval struct {
	SessionID string
	StepIndex int
	Tool      string
	Arguments map[string]string
}

// ApprovalDecision is the caller's answer to a PendingApproval.
type ApprovalDecision struct {
	Approved bool
	Scope    ApprovalScope
}

// TurnOutcome classifies how HandleUserMessage / ResolveApproval ended.
type TurnOutcome string

const (
	// OutcomeText means the assistant produced a final text response
	// with no further tool call — the turn is over.
	OutcomeText TurnOutcome = "text"
	// OutcomeApprovalRequired means the loop is paused awaiting a
	// decision via ResolveApproval.
	OutcomeApprovalRequired TurnOutcome = "approval_required"
	// OutcomeForbidden means the assistant requested a Forbidden (or
	// unknown) tool; the turn ended with an explanatory message and no
	// invocation was attempted.
	OutcomeForbidden TurnOutcome = "forbidden"
	// OutcomeMaxStepsExceeded means the Auto-step safety rail tripped.
	OutcomeMaxStepsExceeded TurnOutcome = "max_steps_exceeded"
)

// TurnResult is returned by HandleUserMessage and ResolveApproval.
type TurnResult struct {
	Outcome  TurnOutcome
	Text     string
	Approval *PendingApproval
}

// Config carries the collaborators a chat loop needs.
type Config struct {
	Memory  *memory.Memory
	Tool    tool.Config
	Adapter llmadapter.Adapter
	Model   string
	// LMTimeout bounds every Stream call. Zero selects DefaultLMTimeout.
	LMTimeout time.Duration
}

func (c Config) lmTimeout() time.Duration {
	if c.LMTimeout > 0 {
		return c.LMTimeout
	}
	return DefaultLMTimeout
}

// Session is one chat conversation. It holds only the small amount of
// state that cannot be recovered from the log between requests: the
// session identifier, the running approval grant, and the in-flight
// turn's step counter. Message history itself is never cached here —
// every request rebuilds it from the log.
type Session struct {
	ID                   string
	StartTimeMs          int64
	sessionAllowAllGated bool
	onceApprovals        map[string]bool
	autoSteps            int
	pending              *PendingApproval
	compacted            bool
	// generation increments every time this session starts a new LM
	// request. A streaming chunk is only accepted if the generation it
	// was issued under still matches; a superseded turn's leftover
	// chunks are dropped rather than folded into the wrong turn's text.
	generation atomic.Int64
}

// NewSession starts a new chat session, recording a chat_session
// execution and graph entity.
func NewSession(ctx context.Context, cfg Config, sessionID string) (*Session, error) {
	startMs, err := recordSessionStart(ctx, cfg.Memory, sessionID)
	if err != nil {
		return nil, err
	}
	return &Session{ID: sessionID, StartTimeMs: startMs, onceApprovals: map[string]bool{}}, nil
}

// grantApproval records a decision's effect on the session's running
// approval state. ScopeOnce only covers the specific tool named in the
// current pending approval.
func (s *Session) grantApproval(toolName string, decision ApprovalDecision) {
	if !decision.Approved {
		return
	}
	switch decision.Scope {
	case ScopeSessionAllGated:
		s.sessionAllowAllGated = true
	default:
		s.onceApprovals[toolName] = true
	}
}

// preApproved reports whether toolName may execute without pausing for
// a fresh approval, given prior grants in this session.
func (s *Session) preApproved(toolName string) bool {
	if s.sessionAllowAllGated {
		return true
	}
	return s.onceApprovals[toolName]
}

// classify is the first step of the tool dispatch decision tree,
// folding in the rule that an unknown tool defaults to Forbidden.
func classify(toolName string) whitelist.ToolCategory {
	return whitelist.CategoryFor(toolName)
}
