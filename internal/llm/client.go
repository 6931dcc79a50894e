// Package llm wraps an eino chat model with request throttling and JSON extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"
)

const (
	defaultModel             = "gpt-4-turbo-preview"
	defaultRequestsPerMinute = 60
	defaultTimeout           = 60 * time.Second
)

// ErrEmptyCompletion is returned when the model answers with no content.
var ErrEmptyCompletion = errors.New("llm returned empty content")

// Generator is the part of an eino chat model the client needs.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config controls the model connection and throttle.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float32
	RequestsPerMinute int
	Timeout           time.Duration
}

// Client issues throttled completions.
type Client struct {
	model   Generator
	limiter *rate.Limiter
}

// NewOpenAI connects to an OpenAI compatible endpoint.
func NewOpenAI(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	temperature := cfg.Temperature
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return New(chatModel, cfg.RequestsPerMinute), nil
}

// New wraps an existing model. A non-positive rpm uses 60 requests per minute.
func New(m Generator, rpm int) *Client {
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}
	return &Client{
		model:   m,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

// Complete sends one system and one user message and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm throttle: %w", err)
	}
	messages := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: user},
	}
	resp, err := c.model.Generate(ctx, messages, model.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// ExtractJSON strips markdown fences and returns the outermost JSON object in text.
func ExtractJSON(text string) ([]byte, error) {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("no json object in model output")
	}
	return []byte(clean[start : end+1]), nil
}
