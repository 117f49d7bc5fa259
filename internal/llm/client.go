package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Options tunes a single generation request.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
}

// Request is one system instruction plus user prompt.
type Request struct {
	System  string
	Prompt  string
	Options Options
}

// Generator is the text-generation capability consumed by review stages.
// Implementations return an *Error on failure.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts an ordinary function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f(ctx, req).
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

const defaultMaxTokens = 2048

// Client wraps the Anthropic Messages API.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return string(c.model)
}

// Generate sends one system+user exchange and returns the first text block.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.Options.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(req.Options.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", classify(fmt.Errorf("anthropic API call: %w", err))
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", &Error{Kind: KindTransport, Err: ErrEmptyResponse}
}
