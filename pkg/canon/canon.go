// Package canon implements canonicalization of tool argument maps:
// keys sorted, no insignificant whitespace in serialization, string values
// preserved verbatim. Canonicalization is the basis for argument equality,
// for deterministic log display, and for comparing two plan executions.
package canon

import (
	"encoding/json"
	"sort"
	"strings"
)

// Args is a key→string argument mapping, as carried by Step.Arguments and
// ToolCall.Arguments throughout the core.
type Args map[string]string

// Canonicalize serializes args as a JSON object with keys sorted
// lexicographically and no insignificant whitespace. Calling Canonicalize
// twice on the same map (or on its own output, reparsed) yields identical
// bytes — canonicalization is idempotent.
func Canonicalize(args Args) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(mustMarshalString(k))
		b.WriteByte(':')
		b.Write(mustMarshalString(args[k]))
	}
	b.WriteByte('}')
	return b.String()
}

func mustMarshalString(s string) []byte {
	// encoding/json.Marshal on a string never errors.
	out, _ := json.Marshal(s)
	return out
}

// Equal reports whether two argument maps are equal under canonicalization.
func Equal(a, b Args) bool {
	return Canonicalize(a) == Canonicalize(b)
}

// SortedKeys returns the argument keys in the canonical (sorted) order, for
// callers that need to iterate deterministically without re-serializing.
func SortedKeys(args Args) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
