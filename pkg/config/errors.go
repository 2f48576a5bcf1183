package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration failures:
// ConfigMissing/ConfigInvalid resolve to preflight prompting or a terminal
// exit, never a silent default.
var (
	// ErrConfigMissing indicates config.toml does not exist under the root
	// directory.
	ErrConfigMissing = errors.New("config: config.toml not found")

	// ErrConfigInvalid indicates config.toml exists but failed to parse or
	// validate.
	ErrConfigInvalid = errors.New("config: config.toml invalid")

	// ErrNoInteractiveStdin indicates preflight cannot prompt because stdin
	// is not a terminal and no file descriptor is available to read from.
	ErrNoInteractiveStdin = errors.New("config: stdin unavailable for preflight")

	// ErrSecretNotResolved indicates an env:NAME reference pointed at an
	// environment variable that is unset or empty.
	ErrSecretNotResolved = errors.New("config: secret reference did not resolve")
)

// LoadError wraps a failure to read or parse a specific configuration file,
// following tarsy's pkg/config/errors.go LoadError pattern.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config: failed to load %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError wraps err with the file that produced it.
func NewLoadError(file string, err error) *LoadError {
	return &LoadError{File: file, Err: err}
}

// ValidationError wraps a single field-level configuration validation
// failure, following tarsy's ValidationError pattern.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: field %q: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}
