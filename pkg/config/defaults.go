package config

// DefaultDocument returns the built-in defaults config.toml is merged
// against, so the chat/LM tables are never silently absent, mirroring
// tarsy's DefaultQueueConfig()-then-mergo.Merge pattern in loader.go: a
// fully populated struct merged with the user's document so unset TOML
// fields fall back to known-good values instead of Go zero values.
func DefaultDocument() Document {
	return Document{
		LM: LMConfig{
			Mode: LMModeDisabled,
		},
		Chat: ChatConfig{
			MaxAutoSteps:               10,
			CompactionMessageThreshold: 50,
		},
	}
}
