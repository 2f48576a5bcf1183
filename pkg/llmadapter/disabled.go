package llmadapter

import (
	"context"
	"errors"
)

// ErrDisabled is returned by the disabled adapter's Stream for every
// call — the LM mode in config.toml is "disabled".
var ErrDisabled = errors.New("llmadapter: language model disabled in configuration")

// Disabled is the no-op adapter selected when config.toml's LM mode is
// "disabled". It never makes a network call.
type Disabled struct{}

func (Disabled) Stream(context.Context, Request) (<-chan Chunk, error) {
	return nil, ErrDisabled
}

func (Disabled) Close() error { return nil }
