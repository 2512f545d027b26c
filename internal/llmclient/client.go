// Package llmclient wraps the language-model extraction endpoint spec.md
// §6 describes: "HTTP POST to a configured endpoint (URL, API key, model
// name, optional dimensionality in configuration)." It is grounded on
// goadesign-goa-ai's features/model/anthropic/client.go, generalized from a
// tool-calling planner client to the classifier/extractor's much narrower
// "system prompt + user prompt in, one content string out" contract.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Messages captures the subset of the Anthropic SDK used here, so tests can
// substitute a stub (mirrors goadesign-goa-ai's MessagesClient interface).
type Messages interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Config carries the endpoint settings spec.md §6 requires: URL, API key,
// model name. Environment variables may override URL/APIKey at the config
// layer (internal/config); the file is authoritative when both are present.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	MaxTokens    int64
	ClassifierTimeout time.Duration
	ExtractorTimeout  time.Duration
}

// Client issues classifier and extractor calls against the configured
// endpoint.
type Client struct {
	msg               Messages
	model             string
	maxTokens         int64
	classifierTimeout time.Duration
	extractorTimeout  time.Duration
}

// New builds a Client from cfg. When cfg.BaseURL is empty the SDK's default
// Anthropic endpoint is used.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llmclient: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llmclient: model identifier is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	ac := sdk.NewClient(opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	classifierTimeout := cfg.ClassifierTimeout
	if classifierTimeout <= 0 {
		classifierTimeout = 2 * time.Second
	}
	extractorTimeout := cfg.ExtractorTimeout
	if extractorTimeout <= 0 {
		extractorTimeout = 10 * time.Second
	}
	return &Client{
		msg:               &ac.Messages,
		model:             cfg.Model,
		maxTokens:         maxTokens,
		classifierTimeout: classifierTimeout,
		extractorTimeout:  extractorTimeout,
	}, nil
}

// NewWithMessages builds a Client against a caller-supplied Messages
// implementation, for tests.
func NewWithMessages(msg Messages, model string, maxTokens int64) *Client {
	return &Client{
		msg:               msg,
		model:             model,
		maxTokens:         maxTokens,
		classifierTimeout: 2 * time.Second,
		extractorTimeout:  10 * time.Second,
	}
}

// Classify submits systemPrompt and userPrompt to the classifier endpoint
// and returns the single-word response content (spec.md §4.3). On timeout
// or transport failure it returns an error; callers map that to Unknown.
func (c *Client) Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.classifierTimeout)
	defer cancel()
	return c.complete(ctx, systemPrompt, userPrompt)
}

// Extract submits systemPrompt and userPrompt to the extraction endpoint
// and returns the raw JSON response content (spec.md §4.4). Callers parse it
// into model.LLMExtraction.
func (c *Client) Extract(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.extractorTimeout)
	defer cancel()
	return c.complete(ctx, systemPrompt, userPrompt)
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llmclient: messages.new: %w", err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errors.New("llmclient: response carried no text content")
}
