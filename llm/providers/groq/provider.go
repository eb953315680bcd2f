// Package groq Groq 适配器。Groq 暴露 OpenAI 兼容端点，直接复用
// openaicompat 基座，仅基地址带 /openai 前缀。
package groq

import (
	"go.uber.org/zap"

	"github.com/BaSui01/llmdispatch/llm"
	"github.com/BaSui01/llmdispatch/llm/providers"
	"github.com/BaSui01/llmdispatch/llm/providers/openaicompat"
)

const (
	defaultBaseURL = "https://api.groq.com/openai"
	defaultModel   = "llama3-8b-8192"
)

// New 创建 Groq 适配器。
func New(cfg providers.GroqConfig, logger *zap.Logger) llm.Provider {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName: llm.ProviderGroq,
		BaseURL:      base,
		DefaultModel: model,
		RequireKey:   true,
		Timeout:      cfg.Timeout,
	}, logger)
}
