package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.1-8b-instant"
)

// ChatGenerator calls an OpenAI-compatible chat completions API. Groq is the
// default endpoint.
type ChatGenerator struct {
	client *openai.Client
	opts   Options
}

// NewChatGenerator never fails; without an API key every call returns
// ErrNotConfigured.
func NewChatGenerator(opts Options) *ChatGenerator {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultGroqBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultGroqModel
	}
	if opts.Label == "" {
		opts.Label = "Groq (Llama 3.1)"
	}
	g := &ChatGenerator{opts: opts}
	if opts.APIKey != "" {
		config := openai.DefaultConfig(opts.APIKey)
		config.BaseURL = opts.BaseURL
		g.client = openai.NewClientWithConfig(config)
	}
	return g
}

func (g *ChatGenerator) Name() string { return g.opts.Label }

// chatRequest builds a single-message request. A zero temperature is left
// unset so the provider default applies.
func chatRequest(opts Options, prompt string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: opts.MaxTokens,
	}
	if opts.Temperature > 0 {
		temp := opts.Temperature
		req.Temperature = &temp
	}
	return req
}

// Generate sends prompt as a single user message.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("%w: %s API key missing", ErrNotConfigured, g.opts.Label)
	}
	ctx, cancel := context.WithTimeout(ctx, g.opts.timeout())
	defer cancel()

	req := chatRequest(g.opts, prompt)
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
