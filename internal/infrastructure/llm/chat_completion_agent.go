package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"appforge/internal/domain/repository"
	"appforge/internal/infrastructure/metrics"
)

// ChatCompletionAgent talks to an OpenAI-compatible chat completions
// endpoint. A single completion is requested, so maxTurns is not used.
type ChatCompletionAgent struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
	logger    *slog.Logger
}

var _ repository.AgentGenerator = (*ChatCompletionAgent)(nil)

func NewChatCompletionAgent(apiKey, baseURL, model string, maxTokens int, timeout time.Duration, logger *slog.Logger) *ChatCompletionAgent {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ChatCompletionAgent{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

func (g *ChatCompletionAgent) Name() string {
	return "chat-completions"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

func (g *ChatCompletionAgent) Generate(ctx context.Context, prompt string, _ int) (string, error) {
	metrics.IncAgentRequest(g.Name())
	start := time.Now()
	defer func() { metrics.ObserveAgentDuration(g.Name(), time.Since(start)) }()

	body, err := g.makeRequest(ctx, chatRequest{
		Model:     g.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return "", err
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		metrics.IncError("llm", "parse_response")
		return "", fmt.Errorf("invalid response format: no content")
	}
	return content.String(), nil
}

func (g *ChatCompletionAgent) makeRequest(ctx context.Context, request chatRequest) ([]byte, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		metrics.IncError("llm", "marshal_request")
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		metrics.IncError("llm", "create_request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.IncError("llm", "http_do")
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Warn("close body", "err", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncError("llm", "read_body")
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.IncError("llm", fmt.Sprintf("api_error_%d", resp.StatusCode))
		return nil, fmt.Errorf("chat completions api error: %d - %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		metrics.IncError("llm", "decode_response")
		return nil, fmt.Errorf("failed to decode response: invalid json")
	}
	return body, nil
}
