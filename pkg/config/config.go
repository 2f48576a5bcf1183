// Package config loads and validates OdinCode's root-directory-scoped
// config.toml, following tarsy's
// pkg/config layering — a typed umbrella Config, a loader entry point, a
// merge step against built-in defaults, and field-level validation — but
// adapted from tarsy's multi-file YAML shape to a single TOML document,
// since OdinCode has one deployment (a root directory), not a shared
// cluster of agents/chains/MCP servers.
package config

import "time"

// LMMode selects which language-model adapter implementation is wired
// in. Unlike tarsy's LLMBackend, the empty string is never
// valid here — the mode must be explicit so a missing config.toml field
// fails loudly rather than silently defaulting to "disabled".
type LMMode string

const (
	LMModeExternal LMMode = "external"
	LMModeLocal    LMMode = "local"
	LMModeDisabled LMMode = "disabled"
)

// IsValid reports whether m is one of the three recognized modes.
func (m LMMode) IsValid() bool {
	switch m {
	case LMModeExternal, LMModeLocal, LMModeDisabled:
		return true
	default:
		return false
	}
}

// LMConfig is the [lm] table of config.toml.
type LMConfig struct {
	Mode LMMode `toml:"mode"`

	// Provider names the external/local backend flavor, e.g. "anthropic"
	// for LMModeExternal or an OpenAI-compatible server name for
	// LMModeLocal. Ignored when Mode is LMModeDisabled.
	Provider string `toml:"provider,omitempty"`

	// BaseURL is required for LMModeLocal (an OpenAI-compatible HTTP
	// endpoint) and optional for LMModeExternal (defaults to the
	// provider SDK's own default endpoint).
	BaseURL string `toml:"base_url,omitempty"`

	// APIKeyRef is an env:NAME reference, never a raw secret and
	// never a literal key. Resolve() turns this into the actual value.
	APIKeyRef string `toml:"api_key,omitempty"`

	Model string `toml:"model,omitempty"`

	// TimeoutSeconds is optional; zero means the adapter's own default
	// (pkg/llmadapter.DefaultLMTimeout) applies.
	TimeoutSeconds int `toml:"timeout_seconds,omitempty"`
}

// Timeout returns the configured LM request timeout, or fallback if none
// was set in config.toml.
func (l LMConfig) Timeout(fallback time.Duration) time.Duration {
	if l.TimeoutSeconds <= 0 {
		return fallback
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// ResolveAPIKey resolves APIKeyRef against the environment at adapter
// construction time — never cached on the
// Config itself, so a later-rotated environment variable takes effect on
// the next process start without rewriting config.toml.
func (l LMConfig) ResolveAPIKey() (string, error) {
	if l.APIKeyRef == "" {
		return "", nil
	}
	return ResolveEnvRef(l.APIKeyRef)
}

// RootConfig is the [root] table of config.toml.
type RootConfig struct {
	// Dir is the directory holding execution_log.db, codegraph.db, and
	// config.toml itself. Defaults to the
	// current working directory when omitted.
	Dir string `toml:"dir,omitempty"`
}

// ChatConfig is the [chat] table of config.toml, tuning the session
// lifecycle limits the chat package defines as package constants.
type ChatConfig struct {
	// MaxAutoSteps overrides pkg/chat.MaxAutoSteps when positive.
	MaxAutoSteps int `toml:"max_auto_steps,omitempty"`

	// CompactionMessageThreshold overrides pkg/chat.CompactionMessageThreshold
	// when positive.
	CompactionMessageThreshold int `toml:"compaction_message_threshold,omitempty"`
}

// Document is the root of config.toml, mirroring tarsy's TarsyYAMLConfig
// as the single struct the TOML decoder targets directly.
type Document struct {
	Root RootConfig `toml:"root"`
	LM   LMConfig   `toml:"lm"`
	Chat ChatConfig `toml:"chat"`
}

// Config is the umbrella object returned by Load/Initialize, following
// tarsy's pkg/config.Config shape: a typed document plus the directory it
// was loaded from, with convenience accessors rather than exposing the
// raw Document to callers.
type Config struct {
	configDir string
	doc       Document
}

// ConfigDir returns the directory config.toml was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }

// RootDir returns the configured persisted-state root directory,
// defaulting to ConfigDir when [root].dir was not set.
func (c *Config) RootDir() string {
	if c.doc.Root.Dir == "" {
		return c.configDir
	}
	return c.doc.Root.Dir
}

// LM returns the [lm] table.
func (c *Config) LM() LMConfig { return c.doc.LM }

// Chat returns the [chat] table.
func (c *Config) Chat() ChatConfig { return c.doc.Chat }
