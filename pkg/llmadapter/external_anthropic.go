package llmadapter

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig configures the external HTTP adapter.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int64
}

// Anthropic is the external LM adapter,
// wrapping anthropic-sdk-go's streaming Messages client.
type Anthropic struct {
	client anthropic.Client
	model  string
	maxTok int64
}

// NewAnthropic constructs an external adapter. cfg.APIKey must already be
// resolved from its env:NAME reference — this package never reads
// environment variables itself; resolving an env:NAME reference to a raw
// secret is config.toml's contract, not this adapter's.
func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTok := cfg.MaxTokens
	if maxTok == 0 {
		maxTok = 4096
	}
	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
		maxTok: maxTok,
	}
}

func (a *Anthropic) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	var system string
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = m.Content
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case RoleTool:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf("[tool:%s] %s", m.ToolName, m.Content))))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: a.maxTok,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	out := make(chan Chunk, 16)
	stream := a.client.Messages.NewStreaming(ctx, params)

	go func() {
		defer close(out)
		for stream.Next() {
			event := stream.Current()
			switch delta := event.Delta.(type) {
			case anthropic.ContentBlockDeltaEventDelta:
				if delta.Text != "" {
					out <- TextChunk{Content: delta.Text}
				}
			}
			if event.Type == "message_stop" {
				out <- FinishChunk{Reason: "stop"}
			}
		}
		if err := stream.Err(); err != nil {
			out <- ErrorChunk{Message: err.Error(), Retryable: true}
		}
	}()

	return out, nil
}

func (a *Anthropic) Close() error {
	return nil
}
