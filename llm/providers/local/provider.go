// Package local 本地 OpenAI 兼容端点适配器（LM Studio、vLLM 等）。
// 免凭证：密钥环为空时走单次直调路径，传入密钥时仍会附带 Bearer 头。
package local

import (
	"go.uber.org/zap"

	"github.com/BaSui01/llmdispatch/llm"
	"github.com/BaSui01/llmdispatch/llm/providers"
	"github.com/BaSui01/llmdispatch/llm/providers/openaicompat"
)

const defaultBaseURL = "http://localhost:1234"

// New 创建本地端点适配器。
func New(cfg providers.LocalConfig, logger *zap.Logger) llm.Provider {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName: llm.ProviderLocal,
		BaseURL:      base,
		DefaultModel: cfg.Model,
		RequireKey:   false,
		Timeout:      cfg.Timeout,
	}, logger)
}
