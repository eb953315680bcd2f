// Package factory provides a centralized factory for creating Provider
// instances by name. It imports all provider sub-packages and maps string
// names to their constructors, breaking the import cycle that would occur
// if this logic lived in the llm package directly.
package factory

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/llmdispatch/llm"
	"github.com/BaSui01/llmdispatch/llm/providers"
	"github.com/BaSui01/llmdispatch/llm/providers/claude"
	"github.com/BaSui01/llmdispatch/llm/providers/cohere"
	"github.com/BaSui01/llmdispatch/llm/providers/google"
	"github.com/BaSui01/llmdispatch/llm/providers/groq"
	"github.com/BaSui01/llmdispatch/llm/providers/huggingface"
	"github.com/BaSui01/llmdispatch/llm/providers/local"
	"github.com/BaSui01/llmdispatch/llm/providers/ollama"
	"github.com/BaSui01/llmdispatch/llm/providers/openai"
	"github.com/BaSui01/llmdispatch/llm/providers/together"
)

// ProviderConfig is the generic configuration accepted by the factory.
// Credentials are not part of it: keys travel with each dispatch, not
// with the adapter.
type ProviderConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// NewProvider creates a Provider instance by name.
//
// Supported names: google, openai, groq, claude, cohere, huggingface,
// together, local, ollama.
func NewProvider(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := providers.BaseProviderConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}

	switch name {
	case llm.ProviderGoogle:
		return google.New(providers.GoogleConfig{BaseProviderConfig: base}, logger), nil
	case llm.ProviderOpenAI:
		return openai.New(providers.OpenAIConfig{BaseProviderConfig: base}, logger), nil
	case llm.ProviderGroq:
		return groq.New(providers.GroqConfig{BaseProviderConfig: base}, logger), nil
	case llm.ProviderClaude:
		return claude.New(providers.ClaudeConfig{BaseProviderConfig: base}, logger), nil
	case llm.ProviderCohere:
		return cohere.New(providers.CohereConfig{BaseProviderConfig: base}, logger), nil
	case llm.ProviderHuggingFace:
		return huggingface.New(providers.HuggingFaceConfig{BaseProviderConfig: base}, logger), nil
	case llm.ProviderTogether:
		return together.New(providers.TogetherConfig{BaseProviderConfig: base}, logger), nil
	case llm.ProviderLocal:
		return local.New(providers.LocalConfig{BaseProviderConfig: base}, logger), nil
	case llm.ProviderOllama:
		return ollama.New(providers.OllamaConfig{BaseProviderConfig: base}, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// BuildRegistry 按名字批量构造适配器并注册。defaultName 非空时设为默认。
func BuildRegistry(configs map[string]ProviderConfig, defaultName string, logger *zap.Logger) (*llm.Registry, error) {
	reg := llm.NewRegistry()
	for _, name := range llm.KnownProviders() {
		cfg := configs[name]
		p, err := NewProvider(name, cfg, logger)
		if err != nil {
			return nil, err
		}
		reg.Register(name, p)
	}
	if defaultName != "" {
		if err := reg.SetDefault(defaultName); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
