// Package google Google Gemini generateContent 适配器。
// 九个适配器中唯一支持内联图片的：请求带图时 parts 含文本与
// inline_data 两个元素。
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/llmdispatch/llm"
	"github.com/BaSui01/llmdispatch/llm/providers"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-1.5-flash"
)

// Provider Gemini 适配器。
// 认证方式特殊：密钥放在 URL 查询参数 key 而非请求头。
type Provider struct {
	cfg    providers.GoogleConfig
	client *http.Client
	logger *zap.Logger
}

// New 创建 Gemini 适配器。
func New(cfg providers.GoogleConfig, logger *zap.Logger) *Provider {
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
		logger: logger.With(zap.String("provider", llm.ProviderGoogle)),
	}
}

func (p *Provider) Name() string { return llm.ProviderGoogle }

func (p *Provider) RequiresAPIKey() bool { return true }

// generateContent 线格式。字段名遵循 REST API 的 snake_case 变体。
type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate 实现 llm.Provider。
func (p *Provider) Generate(ctx context.Context, req *llm.Request, apiKey string) (string, error) {
	parts := []part{{Text: req.Prompt}}
	if req.Image != nil {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: req.Image.MimeType,
			Data:     req.Image.Base64Data,
		}})
	}

	body := generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	model := providers.ChooseModel(req, p.cfg.Model, defaultModel)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), model, url.QueryEscape(apiKey))

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
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", providers.MalformedResponse(p.Name(), "candidates[0].content.parts[0].text")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
