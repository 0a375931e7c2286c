package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/hrygo/schedkit/plugin/ai"
)

// ErrEmptyReply is returned when the agent answers with no content.
var ErrEmptyReply = errors.New("empty response from agent")

// AgentClient produces a prose reply for a prompt. The reply is only ever
// read as text and fed to the Extractor.
type AgentClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIAgent is an AgentClient backed by an OpenAI-compatible chat API.
// Requests are rate limited, and identical prompts in flight at the same
// time share one upstream request.
type OpenAIAgent struct {
	client       *openai.Client
	model        string
	maxTokens    int
	temperature  float32
	timeout      time.Duration
	systemPrompt string
	limiter      *rate.Limiter
	group        singleflight.Group
}

// NewOpenAIAgent creates an agent from the LLM configuration.
func NewOpenAIAgent(cfg ai.LLMConfig, systemPrompt string) *OpenAIAgent {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIAgent{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		timeout:      timeout,
		systemPrompt: systemPrompt,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Complete sends prompt to the model and returns the reply text. When an
// identical prompt is already in flight the caller waits for that result.
func (a *OpenAIAgent) Complete(ctx context.Context, prompt string) (string, error) {
	v, err, shared := a.group.Do(prompt, func() (any, error) {
		return a.complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	if shared {
		slog.Debug("agent reply shared with concurrent caller", "prompt", truncateForLog(prompt, 30))
	}
	return v.(string), nil
}

func (a *OpenAIAgent) complete(ctx context.Context, prompt string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("agent rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: a.systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)

	if err != nil {
		slog.Error("agent request failed",
			"error", err,
			"latency_ms", latency.Milliseconds())
		return "", fmt.Errorf("agent request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyReply
	}

	slog.Debug("agent request completed",
		"latency_ms", latency.Milliseconds(),
		"tokens", resp.Usage.TotalTokens)
	return content, nil
}

// truncateForLog shortens s to at most n runes for log output.
func truncateForLog(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
