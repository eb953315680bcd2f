// Package ollama Ollama generate API 适配器。免凭证，固定关闭流式。
package ollama

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
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3"
)

// Provider Ollama 适配器。
type Provider struct {
	cfg    providers.OllamaConfig
	client *http.Client
	logger *zap.Logger
}

// New 创建 Ollama 适配器。
func New(cfg providers.OllamaConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		// 本地模型首次加载可能很慢
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("provider", llm.ProviderOllama)),
	}
}

func (p *Provider) Name() string { return llm.ProviderOllama }

func (p *Provider) RequiresAPIKey() bool { return false }

type generateOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// Response 为指针以区分"字段缺失"和"模型生成了空串"。
type generateResponse struct {
	Response *string `json:"response"`
}

// Generate 实现 llm.Provider。
func (p *Provider) Generate(ctx context.Context, req *llm.Request, apiKey string) (string, error) {
	body := generateRequest{
		Model:  providers.ChooseModel(req, p.cfg.Model, defaultModel),
		Prompt: req.Prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
	if out.Response == nil {
		return "", providers.MalformedResponse(p.Name(), "response")
	}
	return *out.Response, nil
}
