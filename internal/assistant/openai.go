package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "repoedit/internal/errors"
	"repoedit/internal/session"
)

const (
	// DefaultDeepSeekURL is the DeepSeek API base.
	DefaultDeepSeekURL = "https://api.deepseek.com"
	// DefaultDeepSeekModel is the DeepSeek chat model.
	DefaultDeepSeekModel = "deepseek-chat"

	defaultRequestTimeout = 120 * time.Second
)

// OpenAICompat talks to any OpenAI-compatible chat completions endpoint.
type OpenAICompat struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	prompt     *PromptConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// OpenAICompatConfig configures an OpenAICompat provider.
type OpenAICompatConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewOpenAICompat creates a provider. Empty fields default to DeepSeek.
func NewOpenAICompat(cfg OpenAICompatConfig, prompt *PromptConfig, logger *slog.Logger) *OpenAICompat {
	if cfg.Name == "" {
		cfg.Name = "deepseek"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDeepSeekURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultDeepSeekModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	if prompt == nil {
		prompt = DefaultPromptConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &OpenAICompat{
		name:       cfg.Name,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		prompt:     prompt,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Name implements Provider.
func (c *OpenAICompat) Name() string { return c.name }

// Model implements Provider.
func (c *OpenAICompat) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAICompat) messages(req *Request) []chatMessage {
	msgs := make([]chatMessage, 0, len(req.History)+2)
	msgs = append(msgs, chatMessage{Role: "system", Content: c.prompt.System})
	for _, h := range req.History {
		role := "user"
		if h.Role == session.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: h.Content})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: c.prompt.BuildUserMessage(req)})
	return msgs
}

// Complete implements Provider.
func (c *OpenAICompat) Complete(ctx context.Context, req *Request) (*Response, error) {
	if c.apiKey == "" {
		return nil, apperrors.NewAppError(apperrors.AIUnavailable, c.name+" API key is not configured", nil)
	}

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: c.messages(req)})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("Chat completion request", "provider", c.name, "model", c.model, "history", len(req.History), "files", len(req.Files))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.AIUnavailable, c.name+" request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.AIUnavailable, "read "+c.name+" response", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Chat completion failed", "provider", c.name, "status", resp.StatusCode, "body", truncate(string(data), 500))
		return nil, apperrors.NewAppError(apperrors.AIUnavailable,
			fmt.Sprintf("%s returned HTTP %d", c.name, resp.StatusCode), nil).
			WithDetails(truncate(string(data), 500))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, apperrors.NewAppError(apperrors.AIUnavailable, "decode "+c.name+" response", err)
	}
	if parsed.Error != nil {
		return nil, apperrors.NewAppError(apperrors.AIUnavailable, parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return nil, apperrors.NewAppError(apperrors.AIUnavailable, c.name+" returned no choices", nil)
	}

	out, problems := ParseReply(parsed.Choices[0].Message.Content)
	for _, p := range problems {
		c.logger.Warn("Dropped proposed edit", "provider", c.name, "error", p.Error())
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
