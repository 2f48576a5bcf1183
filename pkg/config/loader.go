package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// ConfigFileName is config.toml's fixed name under the root directory.
const ConfigFileName = "config.toml"

// Initialize loads, merges, and validates config.toml under rootDir,
// following tarsy's pkg/config/loader.go Initialize entry point: load,
// merge built-ins, validate, return a ready-to-use Config. A .env file
// alongside config.toml is loaded first (best-effort, exactly as tarsy's
// cmd/tarsy/main.go does before config.Initialize), so an env:NAME
// reference in config.toml can resolve against it without requiring the
// variable to already be in the process environment.
func Initialize(ctx context.Context, rootDir string) (*Config, error) {
	log := slog.With("root_dir", rootDir)

	envPath := filepath.Join(rootDir, ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to load .env", "path", envPath, "error", err)
	}

	doc, err := load(rootDir)
	if err != nil {
		return nil, err
	}

	if err := validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	log.Info("configuration initialized", "lm_mode", doc.LM.Mode, "root_dir", doc.Root.Dir)
	return &Config{configDir: rootDir, doc: *doc}, nil
}

// load reads config.toml from rootDir and merges it over DefaultDocument,
// mirroring tarsy's DefaultQueueConfig()+mergo.Merge(..., mergo.WithOverride)
// pattern: start from defaults, let the user's non-zero fields win.
func load(rootDir string) (*Document, error) {
	path := filepath.Join(rootDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, NewLoadError(path, err)
	}

	var userDoc Document
	if _, err := toml.Decode(string(data), &userDoc); err != nil {
		return nil, NewLoadError(path, err)
	}

	merged := DefaultDocument()
	if err := mergo.Merge(&merged, userDoc, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("merge defaults: %w", err))
	}
	return &merged, nil
}

// validate applies field-level checks, following tarsy's validate(cfg)
// dispatch to a Validator (here inlined: config.toml's surface is a
// single small document, not the registries tarsy validates).
func validate(doc *Document) error {
	if !doc.LM.Mode.IsValid() {
		return NewValidationError("lm.mode", fmt.Errorf("must be one of external, local, disabled, got %q", doc.LM.Mode))
	}
	if doc.LM.Mode == LMModeLocal && doc.LM.BaseURL == "" {
		return NewValidationError("lm.base_url", errors.New("required when lm.mode = \"local\""))
	}
	if doc.LM.Mode != LMModeDisabled && doc.LM.Model == "" {
		return NewValidationError("lm.model", errors.New("required unless lm.mode = \"disabled\""))
	}
	if doc.LM.APIKeyRef != "" && !IsEnvRef(doc.LM.APIKeyRef) {
		return NewValidationError("lm.api_key", fmt.Errorf("must be an env:NAME reference, not a literal secret"))
	}
	if doc.Chat.MaxAutoSteps < 0 {
		return NewValidationError("chat.max_auto_steps", errors.New("must be non-negative"))
	}
	if doc.Chat.CompactionMessageThreshold < 0 {
		return NewValidationError("chat.compaction_message_threshold", errors.New("must be non-negative"))
	}
	return nil
}
