// Package llm wraps the hosted generative model used to classify listings.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrNoAPIKey is returned when the capability is requested without credentials.
var ErrNoAPIKey = errors.New("llm: API key is required")

// Generator produces free-form text for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Config selects the model and request bounds.
type Config struct {
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// DefaultConfig returns the settings used for listing classification.
func DefaultConfig() Config {
	return Config{
		Model:       "gemini-2.5-flash-lite",
		Temperature: 0.1,
		Timeout:     20 * time.Second,
	}
}

// GeminiClient implements Generator for Google Gemini.
type GeminiClient struct {
	client *genai.Client
	config Config
}

// NewGeminiClient creates a Gemini-backed Generator.
func NewGeminiClient(ctx context.Context, config Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, config: config}, nil
}

// GenerateContent sends prompt to the configured model and returns its text.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	model := c.client.GenerativeModel(c.config.Model)
	model.SetTemperature(c.config.Temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// Ping issues a minimal request to confirm the model is reachable.
func (c *GeminiClient) Ping(ctx context.Context) error {
	_, err := c.GenerateContent(ctx, "Reply with the single word OK.")
	return err
}

// Close releases resources held by the client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse joins the text parts of the first candidate.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
