// Package redact adapts tarsy's pkg/masking regex-redaction engine
// (pkg/masking/pattern.go, pkg/masking/service.go) to OdinCode's domain:
// tool stdout/stderr artifacts routinely carry secrets a shell command
// printed (an API key in a curl
// command, a token embedded in a log line). Unlike tarsy, OdinCode has no
// per-MCP-server DataMasking config or pattern-group indirection — there
// is one tool whitelist, not a registry of servers — so this package
// collapses tarsy's Service/registry/pattern-group layering into a single
// stateless Redact call over a fixed, always-on pattern set. The
// code-based Masker interface (tarsy's KubernetesSecretMasker) has no
// analogue here since OdinCode tool output is never structured Kubernetes
// manifests; only the regex half of tarsy's engine is carried forward.
package redact

import "regexp"

// Pattern is a pre-compiled regex with its replacement text, mirroring
// tarsy's CompiledPattern.
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// defaultPatterns carries forward the subset of tarsy's
// pkg/config/builtin.go MaskingPatterns that apply to generic shell and
// API tool output, dropping the Kubernetes/Slack/SSH-specific patterns
// that have no home in OdinCode's domain (no K8s CA data, no Slack
// tokens ever flow through a tool invocation here).
var defaultPatterns = []Pattern{
	{
		Name:        "api_key",
		Regex:       regexp.MustCompile(`(?i)(?:api[_-]?key|apikey)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})["']?`),
		Replacement: `api_key=[MASKED_API_KEY]`,
	},
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)(?:password|pwd|pass)["']?\s*[:=]\s*["']?([^"'\s\n]{6,})["']?`),
		Replacement: `password=[MASKED_PASSWORD]`,
	},
	{
		Name:        "private_key_block",
		Regex:       regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`),
		Replacement: `[MASKED_PRIVATE_KEY_BLOCK]`,
	},
	{
		Name:        "bearer_token",
		Regex:       regexp.MustCompile(`(?i)(?:token|bearer|jwt)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`),
		Replacement: `token=[MASKED_TOKEN]`,
	},
	{
		Name:        "private_key_field",
		Regex:       regexp.MustCompile(`(?i)(?:private[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`),
		Replacement: `private_key=[MASKED_PRIVATE_KEY]`,
	},
	{
		Name:        "secret_key",
		Regex:       regexp.MustCompile(`(?i)(?:secret[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`),
		Replacement: `secret_key=[MASKED_SECRET_KEY]`,
	},
	{
		Name:        "aws_access_key_id",
		Regex:       regexp.MustCompile(`(?i)(?:aws[_-]?access[_-]?key[_-]?id)["']?\s*[:=]\s*["']?(AKIA[A-Z0-9]{16})["']?`),
		Replacement: `aws_access_key_id=[MASKED_AWS_KEY]`,
	},
	{
		Name:        "aws_secret_access_key",
		Regex:       regexp.MustCompile(`(?i)(?:aws[_-]?secret[_-]?access[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
		Replacement: `aws_secret_access_key=[MASKED_AWS_SECRET]`,
	},
	{
		Name:        "github_token",
		Regex:       regexp.MustCompile(`(?i)(?:github[_-]?token|gh[ps]_[A-Za-z0-9_]{36,255})`),
		Replacement: `[MASKED_GITHUB_TOKEN]`,
	},
}

// Service applies a fixed pattern set to tool output. Stateless beyond
// its compiled patterns, so a single Service is safe for concurrent use
// — the same guarantee tarsy's MaskingService documents.
type Service struct {
	patterns []Pattern
}

// New returns a Service with the built-in pattern set. extra patterns,
// if any, are appended and applied after the built-ins, letting a
// deployment add domain-specific secret shapes without forking this
// package.
func New(extra ...Pattern) *Service {
	patterns := make([]Pattern, 0, len(defaultPatterns)+len(extra))
	patterns = append(patterns, defaultPatterns...)
	patterns = append(patterns, extra...)
	return &Service{patterns: patterns}
}

// Redact applies every configured pattern to content in order. Unlike
// tarsy's MaskToolResult (which is fail-closed on a masker panic because
// it also juggles code-based Maskers), this path is pure regex
// replacement over a fixed, pre-validated pattern set — there is no
// dynamic per-server pattern compilation step, so there is no failure
// mode to fail closed against.
func (s *Service) Redact(content string) string {
	if content == "" {
		return content
	}
	out := content
	for _, p := range s.patterns {
		out = p.Regex.ReplaceAllString(out, p.Replacement)
	}
	return out
}
