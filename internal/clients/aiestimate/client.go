// Package aiestimate wraps the Gemini API for one-shot text completions.
// It is used to produce market-value estimates for assets that have no
// quoted price, primarily real estate.
package aiestimate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/folioscope/folioscope/internal/domain"
)

const defaultModel = "gemini-2.0-flash"

// Client is the Gemini completion client.
type Client struct {
	apiKey string
	model  string
	log    zerolog.Logger
}

// NewClient creates a new estimation client. An empty API key is allowed;
// calls will fail with domain.ErrConfigurationMissing.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		model:  defaultModel,
		log:    log.With().Str("client", "aiestimate").Logger(),
	}
}

// Name identifies this provider in source tags and logs.
func (c *Client) Name() string { return "gemini" }

// Complete sends a prompt and returns the raw text of the first candidate.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY not set", domain.ErrConfigurationMissing)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to create gemini client: %w", domain.ErrProviderUnavailable, err)
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: gemini request failed: %w", domain.ErrProviderUnavailable, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: gemini returned an empty response", domain.ErrProviderNoData)
	}

	c.log.Debug().Int("prompt_len", len(prompt)).Int("response_len", len(text)).Msg("Completion received")
	return text, nil
}
