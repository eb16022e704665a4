// Package ai wraps the reasoning collaborator behind a minimal Reasoner
// capability so the triage pipeline never depends on a particular model
// vendor or invocation style.
package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Reasoner produces free text for a prompt or fails. Implementations must
// bound their own execution time; callers treat any error (including
// timeouts and empty output) as a recoverable failure and fall back to the
// rule-based verdict.
type Reasoner interface {
	Judge(ctx context.Context, prompt string) (string, error)
}

// DefaultTimeout bounds one reasoning call. A triage summary that takes
// longer than this is worth less than the deterministic fallback.
const DefaultTimeout = 60 * time.Second

// defaultModel is a cost-efficient model; triage summaries are short,
// single-shot, and don't need deep reasoning.
const defaultModel = "claude-3-5-haiku-20241022"

// ModelFromEnv returns the configured model, checking VISIONWATCH_MODEL first.
func ModelFromEnv() string {
	if model := os.Getenv("VISIONWATCH_MODEL"); model != "" {
		return model
	}
	return defaultModel
}

// Config holds AnthropicReasoner configuration.
type Config struct {
	APIKey  string        // if empty, read from ANTHROPIC_API_KEY
	Model   string        // if empty, ModelFromEnv()
	Timeout time.Duration // if zero, DefaultTimeout
}

// AnthropicReasoner calls the Anthropic Messages API with a bounded timeout.
type AnthropicReasoner struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
}

var _ Reasoner = (*AnthropicReasoner)(nil)

// NewAnthropicReasoner creates a Reasoner backed by the Anthropic API.
func NewAnthropicReasoner(cfg Config) (*AnthropicReasoner, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = ModelFromEnv()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicReasoner{
		client:  &client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Judge sends the prompt and returns the concatenated text blocks of the
// response. Empty output is an error so callers always get either usable
// text or a reason to fall back.
func (r *AnthropicReasoner) Judge(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", errors.New("model returned empty output")
	}
	return text.String(), nil
}
