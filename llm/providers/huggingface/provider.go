// Package huggingface HF Inference API 适配器。
// 模型名拼进 URL 路径，响应是顶层 JSON 数组。
package huggingface

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
	defaultBaseURL = "https://api-inference.huggingface.co"
	defaultModel   = "mistralai/Mistral-7B-Instruct-v0.2"
)

// Provider HF Inference 适配器。
type Provider struct {
	cfg    providers.HuggingFaceConfig
	client *http.Client
	logger *zap.Logger
}

// New 创建 HF Inference 适配器。
func New(cfg providers.HuggingFaceConfig, logger *zap.Logger) *Provider {
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
		logger: logger.With(zap.String("provider", llm.ProviderHuggingFace)),
	}
}

func (p *Provider) Name() string { return llm.ProviderHuggingFace }

func (p *Provider) RequiresAPIKey() bool { return true }

type inferenceRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		Temperature    float32 `json:"temperature"`
		MaxNewTokens   int     `json:"max_new_tokens"`
		ReturnFullText bool    `json:"return_full_text"`
	} `json:"parameters"`
}

type inferenceResult struct {
	GeneratedText string `json:"generated_text"`
}

// Generate 实现 llm.Provider。
func (p *Provider) Generate(ctx context.Context, req *llm.Request, apiKey string) (string, error) {
	var body inferenceRequest
	body.Inputs = req.Prompt
	body.Parameters.Temperature = req.Temperature
	body.Parameters.MaxNewTokens = req.MaxTokens
	body.Parameters.ReturnFullText = false

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	model := providers.ChooseModel(req, p.cfg.Model, defaultModel)
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/models/" + model
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

	var out []inferenceResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", providers.DecodeError(err, p.Name())
	}
	if len(out) == 0 {
		return "", providers.MalformedResponse(p.Name(), "[0].generated_text")
	}
	return out[0].GeneratedText, nil
}
