// Package openaicompat 实现 OpenAI chat completions 协议的共享适配器基座。
// openai、groq、local 三个 Provider 的线格式完全一致，仅端点、默认模型和
// 凭证要求不同，都通过本包的 Config 构造。
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/llmdispatch/llm"
	"github.com/BaSui01/llmdispatch/llm/providers"
)

// DefaultTimeout 上游请求默认超时。
const DefaultTimeout = 60 * time.Second

// Config 基座配置。每个薄封装包用固定值填充本结构。
type Config struct {
	// ProviderName 错误和日志中标识来源的名字（"openai"、"groq"、"local"）
	ProviderName string
	// BaseURL 形如 https://api.openai.com，不含路径
	BaseURL string
	// EndpointPath chat completions 路径，默认 /v1/chat/completions
	EndpointPath string
	// DefaultModel 请求未指定模型时的兜底
	DefaultModel string
	// RequireKey 为 false 时允许空密钥（local 端点）
	RequireKey bool
	Timeout    time.Duration
}

// Provider OpenAI 兼容适配器。
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New 创建适配器。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("provider", cfg.ProviderName)),
	}
}

// Name 实现 llm.Provider。
func (p *Provider) Name() string { return p.cfg.ProviderName }

// RequiresAPIKey 实现 llm.Provider。
func (p *Provider) RequiresAPIKey() bool { return p.cfg.RequireKey }

// chat completions 线格式。
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate 实现 llm.Provider：单轮 user 消息换一条 assistant 回复。
func (p *Provider) Generate(ctx context.Context, req *llm.Request, apiKey string) (string, error) {
	body := chatRequest{
		Model: providers.ChooseModel(req, p.cfg.DefaultModel, ""),
		Messages: []chatMessage{
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := p.cfg.BaseURL + p.cfg.EndpointPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", providers.TransportError(err, p.cfg.ProviderName)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := providers.ReadErrorMessage(resp.Body)
		p.logger.Warn("upstream returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return "", providers.MapHTTPError(resp.StatusCode, msg, p.cfg.ProviderName)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", providers.DecodeError(err, p.cfg.ProviderName)
	}
	if len(out.Choices) == 0 {
		return "", providers.MalformedResponse(p.cfg.ProviderName, "choices[0].message.content")
	}
	return out.Choices[0].Message.Content, nil
}
