// Package claude Anthropic Messages API 适配器。
// 认证用 x-api-key 头加 anthropic-version 版本头，不走 Bearer。
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/llmdispatch/llm"
	"github.com/BaSui01/llmdispatch/llm/providers"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultModel      = "claude-3-haiku-20240307"
	defaultAPIVersion = "2023-06-01"
)

// Provider Claude 适配器。
type Provider struct {
	cfg    providers.ClaudeConfig
	client *http.Client
	logger *zap.Logger
}

// New 创建 Claude 适配器。
func New(cfg providers.ClaudeConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.AnthropicVersion == "" {
		cfg.AnthropicVersion = defaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("provider", llm.ProviderClaude)),
	}
}

func (p *Provider) Name() string { return llm.ProviderClaude }

func (p *Provider) RequiresAPIKey() bool { return true }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Provider) buildHeaders(r *http.Request, apiKey string) {
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("x-api-key", apiKey)
	r.Header.Set("anthropic-version", p.cfg.AnthropicVersion)
}

// Generate 实现 llm.Provider。
func (p *Provider) Generate(ctx context.Context, req *llm.Request, apiKey string) (string, error) {
	body := messagesRequest{
		Model: providers.ChooseModel(req, p.cfg.Model, defaultModel),
		Messages: []message{
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	p.buildHeaders(httpReq, apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", providers.TransportError(err, p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := providers.ReadErrorMessage(resp.Body)
		p.logger.Warn("upstream returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return "", providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", providers.DecodeError(err, p.Name())
	}
	if len(out.Content) == 0 {
		return "", providers.MalformedResponse(p.Name(), "content[0].text")
	}
	return out.Content[0].Text, nil
}
