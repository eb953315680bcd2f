package providers

import "time"

// BaseProviderConfig 所有适配器共享的基础配置字段。
// 凭证不在此处：密钥环按次传入 Generate，适配器本身不持有密钥。
type BaseProviderConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// GoogleConfig Gemini 适配器配置。
type GoogleConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// OpenAIConfig OpenAI 适配器配置。
type OpenAIConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// GroqConfig Groq 适配器配置。
type GroqConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// ClaudeConfig Anthropic Claude 适配器配置。
type ClaudeConfig struct {
	BaseProviderConfig `yaml:",inline"`
	// AnthropicVersion API 版本头，默认 2023-06-01
	AnthropicVersion string `json:"anthropic_version,omitempty" yaml:"anthropic_version,omitempty"`
}

// CohereConfig Cohere 适配器配置。
type CohereConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// HuggingFaceConfig HF Inference API 适配器配置。
type HuggingFaceConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// TogetherConfig Together 适配器配置。
type TogetherConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// LocalConfig 本地 OpenAI 兼容端点适配器配置。
type LocalConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// OllamaConfig Ollama 适配器配置。
type OllamaConfig struct {
	BaseProviderConfig `yaml:",inline"`
}
