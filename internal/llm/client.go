// Package llm wraps the OpenAI embedding and chat-completion endpoints
// behind the two narrow operations the retrieval pipeline needs.
//
// Every call is one outbound request: no caching, no automatic retry and no
// fallback model substitution. Failures are classified onto the package's
// sentinel errors (errors.go) so callers can branch with errors.Is.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Per-call timeouts. The OpenAI SDK enforces none by default, so the client
// bounds each request explicitly.
const (
	embedTimeout    = 30 * time.Second
	completeTimeout = 60 * time.Second
)

// Config holds the model configuration for one Client.
type Config struct {
	APIKey      string
	EmbedModel  string
	ChatModel   string
	Temperature float64 // 0.0-2.0
	// SystemPrompt is the persona message sent with every completion.
	SystemPrompt string
}

// Client calls the OpenAI embeddings and chat completions APIs.
// It is safe for concurrent use.
type Client struct {
	api    openai.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a Client. Extra request options (base URL, HTTP client) are
// accepted for tests.
func New(cfg Config, logger *slog.Logger, opts ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is empty", ErrInvalidInput)
	}
	if cfg.EmbedModel == "" || cfg.ChatModel == "" {
		return nil, fmt.Errorf("%w: model names are required", ErrInvalidModel)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("%w: temperature must be in [0, 2], got %.2f", ErrInvalidInput, cfg.Temperature)
	}
	if logger == nil {
		logger = slog.Default()
	}

	allOpts := append([]option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &Client{
		api:    openai.NewClient(allOpts...),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Embed converts text into a fixed-length vector using the configured
// embedding model. The vector length is determined solely by the model.
// Text that is empty after trimming fails with ErrInvalidInput.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}

	reqCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	resp, err := c.api.Embeddings.New(reqCtx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(trimmed)},
		Model: openai.EmbeddingModel(c.cfg.EmbedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", classify(err))
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrServiceUnavailable)
	}

	embedding := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		embedding[i] = float32(v)
	}

	c.logger.Debug("text embedded", "model", c.cfg.EmbedModel, "dimension", len(embedding))
	return embedding, nil
}

// Complete answers the question using the grounding context as background.
// An empty grounding context is allowed: the model then answers from general
// knowledge, so "no relevant context" never turns into a failure here.
func (c *Client) Complete(ctx context.Context, question, grounding string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(c.cfg.SystemPrompt),
	}
	if grounding != "" {
		messages = append(messages, openai.SystemMessage("Reference material:\n"+grounding))
	}
	messages = append(messages, openai.UserMessage(question))

	reqCtx, cancel := context.WithTimeout(ctx, completeTimeout)
	defer cancel()

	resp, err := c.api.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(c.cfg.ChatModel),
		Temperature: openai.Float(c.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", classify(err))
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", ErrServiceUnavailable)
	}

	answer := resp.Choices[0].Message.Content
	c.logger.Debug("completion generated", "model", c.cfg.ChatModel, "answer_length", len(answer))
	return answer, nil
}
