// Package openai OpenAI chat completions 适配器，基于 openaicompat 基座。
package openai

import (
	"go.uber.org/zap"

	"github.com/BaSui01/llmdispatch/llm"
	"github.com/BaSui01/llmdispatch/llm/providers"
	"github.com/BaSui01/llmdispatch/llm/providers/openaicompat"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
)

// New 创建 OpenAI 适配器。
func New(cfg providers.OpenAIConfig, logger *zap.Logger) llm.Provider {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName: llm.ProviderOpenAI,
		BaseURL:      base,
		DefaultModel: model,
		RequireKey:   true,
		Timeout:      cfg.Timeout,
	}, logger)
}
