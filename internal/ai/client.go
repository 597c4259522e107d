// Package ai implements the completion API client on top of
// OpenAI-compatible endpoints. Each preset carries its own base URL and
// credentials, so the client keeps one SDK instance per endpoint.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/hollowpoint/llmrelay/internal/conversation"
	"github.com/hollowpoint/llmrelay/internal/preset"
)

// CompletionError wraps any completion API failure: network errors,
// timeouts, and malformed responses all surface as this one type.
type CompletionError struct {
	Preset string
	Model  string
	Err    error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed (preset %s, model %s): %v", e.Preset, e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Reply is the useful part of a completion response.
type Reply struct {
	Content          string
	ReasoningContent string
	TotalTokens      int
}

// Client calls OpenAI-compatible chat completion endpoints. Safe for
// concurrent use across conversations.
type Client struct {
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[string]*gopenai.Client
}

// NewClient creates a completion client. timeout bounds each individual
// API call, independently of any caller-supplied context deadline.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		timeout: timeout,
		logger:  logger.With("component", "ai_client"),
		clients: make(map[string]*gopenai.Client),
	}
}

func (c *Client) sdkClient(p preset.Preset) *gopenai.Client {
	key := p.APIBase + "\x00" + p.APIKey

	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[key]; ok {
		return cl
	}

	cfg := gopenai.DefaultConfig(p.APIKey)
	if p.APIBase != "" {
		cfg.BaseURL = p.APIBase
	}
	cl := gopenai.NewClientWithConfig(cfg)
	c.clients[key] = cl
	return cl
}

// Complete sends the system prompt plus turns to the preset's endpoint and
// returns the reply. Any failure is reported as a *CompletionError; the
// caller decides what to do with the unconsumed batch.
func (c *Client) Complete(ctx context.Context, p preset.Preset, systemPrompt string, turns []conversation.Turn) (Reply, error) {
	messages := make([]gopenai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, gopenai.ChatCompletionMessage{
		Role:    gopenai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, t := range turns {
		messages = append(messages, gopenai.ChatCompletionMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	c.logger.DebugContext(ctx, "sending completion request",
		"preset", p.Name, "model", p.ModelName, "messages", len(messages))

	resp, err := c.sdkClient(p).CreateChatCompletion(callCtx, gopenai.ChatCompletionRequest{
		Model:       p.ModelName,
		Messages:    messages,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	})
	if err != nil {
		return Reply{}, &CompletionError{Preset: p.Name, Model: p.ModelName, Err: err}
	}
	if len(resp.Choices) == 0 {
		return Reply{}, &CompletionError{
			Preset: p.Name,
			Model:  p.ModelName,
			Err:    fmt.Errorf("response contains no choices"),
		}
	}

	msg := resp.Choices[0].Message
	c.logger.DebugContext(ctx, "completion response received",
		"preset", p.Name,
		"total_tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start))

	return Reply{
		Content:          msg.Content,
		ReasoningContent: msg.ReasoningContent,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}
