package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"selectra/interview/internal/llm"
	"selectra/interview/internal/models"
)

var errNoResponse = errors.New("no response generated")

// generator is the single genai call the client depends on.
type generator interface {
	generate(ctx context.Context, model, prompt string) (string, error)
}

type genaiGenerator struct {
	client *genai.Client
}

func (g *genaiGenerator) generate(ctx context.Context, model, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", errNoResponse
	}
	return result.Text()
}

// Client represents a Gemini LLM client
type Client struct {
	gen    generator
	config *Config
}

func NewClient(config *Config) (*Client, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: "gemini",
			Code:     llm.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}

	return &Client{
		gen:    &genaiGenerator{client: client},
		config: config,
	}, nil
}

func (c *Client) GenerateContent(ctx context.Context, prompt string, requestID string, purpose string) (*models.GenerationResponse, error) {
	startTime := time.Now()

	text, err := c.gen.generate(ctx, c.config.Model, prompt)
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	if strings.TrimSpace(text) == "" {
		return nil, &llm.ProviderError{
			Provider: "gemini",
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Empty response generated",
		}
	}

	return &models.GenerationResponse{
		Content:   text,
		RequestID: requestID,
		Metadata: models.GenerationMetadata{
			ProcessingTime: int(time.Since(startTime).Milliseconds()),
			Purpose:        purpose,
			Provider:       "gemini",
			Model:          c.config.Model,
		},
	}, nil
}

func (c *Client) GetProviderName() string {
	return "gemini"
}

func classifyError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, errNoResponse):
		return &llm.ProviderError{Provider: "gemini", Code: llm.ErrCodeInvalidInput, Message: "No response generated", Err: err}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &llm.ProviderError{Provider: "gemini", Code: llm.ErrCodeTimeout, Message: "Request timed out", Err: err}
	case isRateLimitError(err):
		return &llm.ProviderError{Provider: "gemini", Code: llm.ErrCodeRateLimit, Message: "Rate limit exceeded", Err: err}
	default:
		return &llm.ProviderError{Provider: "gemini", Code: llm.ErrCodeServiceDown, Message: "Failed to generate content", Err: err}
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit")
}
