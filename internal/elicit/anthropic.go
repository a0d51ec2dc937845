package elicit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Options carries the sampling constants for both prompting modes. They are
// configuration values, never computed and never user-supplied.
type Options struct {
	// MaxTokens is the output ceiling for fixed-schema elicitation.
	// Default: 1024.
	MaxTokens int64

	// TreeMaxTokens is the output ceiling for tree derivation, which returns
	// a whole diagram rather than a flat record. Default: 2048.
	TreeMaxTokens int64

	// Temperature for fixed-schema elicitation. Default 0 — the record must
	// be reproducible given the same notes.
	Temperature float64

	// TreeTemperature for tree derivation, where the model is asked to
	// invent structure. Default: 0.3.
	TreeTemperature float64
}

// DefaultOptions returns the sampling constants the service ships with.
func DefaultOptions() Options {
	return Options{
		MaxTokens:       1024,
		TreeMaxTokens:   2048,
		Temperature:     0,
		TreeTemperature: 0.3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxTokens <= 0 {
		o.MaxTokens = d.MaxTokens
	}
	if o.TreeMaxTokens <= 0 {
		o.TreeMaxTokens = d.TreeMaxTokens
	}
	if o.TreeTemperature <= 0 {
		o.TreeTemperature = d.TreeTemperature
	}
	return o
}

// anthropicElicitor is the concrete Elicitor backed by the Anthropic Messages
// API via the official SDK.
type anthropicElicitor struct {
	client anthropic.Client
	model  string
	opts   Options
	logger *slog.Logger
}

// NewAnthropicElicitor returns an Elicitor that calls the Anthropic API.
//   - apiKey: your ANTHROPIC_API_KEY
//   - model:  e.g. "claude-3-5-sonnet-20241022"
func NewAnthropicElicitor(apiKey, model string, opts Options, logger *slog.Logger) Elicitor {
	return &anthropicElicitor{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Elicit submits the fixed-schema prompt and parses the answer into a
// ProbabilityRecord.
func (c *anthropicElicitor) Elicit(ctx context.Context, notes []string, mode Mode) (*ProbabilityRecord, error) {
	prompt := BuildPrompt(notes)

	text, err := c.complete(ctx, prompt, c.opts.MaxTokens, c.opts.Temperature)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("elicit: anthropic raw output",
		"mode", mode,
		"notes", len(notes),
		"size", len(text),
		"raw", text,
	)

	return ParseRecord(text)
}

// DeriveTree submits the free-form tree prompt and returns the
// fence-stripped model output verbatim.
func (c *anthropicElicitor) DeriveTree(ctx context.Context, notes []string) (string, error) {
	prompt := BuildTreePrompt(notes)

	text, err := c.complete(ctx, prompt, c.opts.TreeMaxTokens, c.opts.TreeTemperature)
	if err != nil {
		return "", err
	}

	c.logger.Debug("elicit: anthropic raw tree output", "notes", len(notes), "size", len(text))

	return StripFences(text), nil
}

// complete sends one request to the Messages API and returns the text of the
// first text content block.
func (c *anthropicElicitor) complete(ctx context.Context, prompt string, maxTokens int64, temperature float64) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", serviceFailure("anthropic request failed", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", serviceFailure("anthropic response", fmt.Errorf("no text content block"))
}
