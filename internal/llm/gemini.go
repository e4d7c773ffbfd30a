package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
	opts   Options
}

// NewGeminiGenerator builds the client when a key is present. Without one,
// calls return ErrNotConfigured.
func NewGeminiGenerator(ctx context.Context, opts Options) (*GeminiGenerator, error) {
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}
	if opts.Label == "" {
		opts.Label = "Gemini"
	}
	g := &GeminiGenerator{opts: opts}
	if opts.APIKey == "" {
		return g, nil
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(opts.Model)
	if opts.Temperature > 0 {
		model.SetTemperature(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	g.client = client
	g.model = model
	return g, nil
}

func (g *GeminiGenerator) Name() string { return g.opts.Label }

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.model == nil {
		return "", fmt.Errorf("%w: %s API key missing", ErrNotConfigured, g.opts.Label)
	}
	ctx, cancel := context.WithTimeout(ctx, g.opts.timeout())
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
