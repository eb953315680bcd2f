// Package cohere Cohere generate API 适配器。
package cohere

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
	defaultBaseURL = "https://api.cohere.ai"
	defaultModel   = "command"
)

// Provider Cohere 适配器。
type Provider struct {
	cfg    providers.CohereConfig
	client *http.Client
	logger *zap.Logger
}

// New 创建 Cohere 适配器。
func New(cfg providers.CohereConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
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
		logger: logger.With(zap.String("provider", llm.ProviderCohere)),
	}
}

func (p *Provider) Name() string { return llm.ProviderCohere }

func (p *Provider) RequiresAPIKey() bool { return true }

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type generateResponse struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
}

// Generate 实现 llm.Provider。
// 2xx 但 generations 为空时返回 ErrMalformedResponse 而非占位文本，
// 让调用方能区分"模型答了空话"和"响应不合预期"。
func (p *Provider) Generate(ctx context.Context, req *llm.Request, apiKey string) (string, error) {
	body := generateRequest{
		Model:       providers.ChooseModel(req, p.cfg.Model, defaultModel),
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, apiKey)

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

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", providers.DecodeError(err, p.Name())
	}
	if len(out.Generations) == 0 {
		return "", providers.MalformedResponse(p.Name(), "generations[0].text")
	}
	return out.Generations[0].Text, nil
}
