// Package completion talks to an OpenAI-compatible chat completion endpoint
// on behalf of the assistant. One call per question, no retries.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel     = openai.GPT3Dot5Turbo
	DefaultMaxTokens = 150
)

// Turn is one prior entry of the conversation in completion-role terms.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Result is the trimmed model answer plus the off-topic verdict.
type Result struct {
	Text       string
	IsOffTopic bool
}

// CompletionError wraps any failure to obtain an answer: transport errors,
// non-2xx statuses and responses without choices.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string { return "completion failed: " + e.Err.Error() }
func (e *CompletionError) Unwrap() error { return e.Err }

var errNoChoices = errors.New("response has no choices")

// Options configures New.
type Options struct {
	APIKey       string
	BaseURL      string // empty keeps the public endpoint
	Model        string
	MaxTokens    int
	Timeout      time.Duration // per call; 0 relies on the caller context
	SystemPrompt string
	HTTPClient   *http.Client
}

// Client issues chat completion requests with a fixed persona prompt.
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	persona   string
}

// New builds a Client. Zero-valued options fall back to package defaults.
func New(opt Options) *Client {
	cfg := openai.DefaultConfig(opt.APIKey)
	if opt.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opt.BaseURL, "/")
	}
	if opt.HTTPClient != nil {
		cfg.HTTPClient = opt.HTTPClient
	}
	model := opt.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := opt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Client{
		api:       openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
		timeout:   opt.Timeout,
		persona:   opt.SystemPrompt,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends [persona] + history + [latestInput] and classifies the reply.
// Every failure is returned as *CompletionError.
func (c *Client) Complete(ctx context.Context, history []Turn, latestInput string) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  c.buildMessages(history, latestInput),
		MaxTokens: c.maxTokens,
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return Result{}, &CompletionError{Err: fmt.Errorf("create chat completion: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return Result{}, &CompletionError{Err: errNoChoices}
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	return Result{Text: text, IsOffTopic: IsOffTopic(text)}, nil
}

func (c *Client) buildMessages(history []Turn, latestInput string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.persona})
	for _, t := range history {
		role := openai.ChatMessageRoleAssistant
		if t.Role == openai.ChatMessageRoleUser {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: latestInput})
}

// IsOffTopic reports whether a trimmed model answer is empty or an apology.
func IsOffTopic(text string) bool {
	return text == "" || strings.Contains(strings.ToLower(text), "i'm sorry")
}
