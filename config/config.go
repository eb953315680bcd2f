package config

import (
	"time"
)

// Config 是调度层的完整配置结构。
type Config struct {
	// Provider 默认使用的 Provider 标签（可被单次请求覆盖）
	Provider string `yaml:"provider"`

	// Log 日志配置
	Log LogConfig `yaml:"log"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Queue 串行队列配置
	Queue QueueConfig `yaml:"queue"`

	// Dispatch 重试/退避策略
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Providers 按 Provider 标签索引的上游配置
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level  string `yaml:"level"`  // debug/info/warn/error
	Format string `yaml:"format"` // json/console
}

// TelemetryConfig OTel 遥测配置。
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// QueueConfig 串行队列配置。
type QueueConfig struct {
	// Delay 两个任务完成之间的固定停顿
	Delay time.Duration `yaml:"delay"`
}

// DispatchConfig 重试/退避策略配置。
type DispatchConfig struct {
	MaxRetriesPerKey int           `yaml:"max_retries_per_key"`
	BaseDelay        time.Duration `yaml:"base_delay"`
}

// ProviderConfig 单个上游 Provider 的配置。
type ProviderConfig struct {
	// APIKey 单个密钥；与 APIKeys 同时设置时 APIKeys 优先
	APIKey string `yaml:"api_key"`
	// APIKeys 有序密钥环，按列出顺序轮换
	APIKeys []string `yaml:"api_keys"`
	// BaseURL 上游地址覆盖（local/ollama 常用）
	BaseURL string `yaml:"base_url"`
	// Model 默认模型覆盖
	Model string `yaml:"model"`
	// Timeout 单次 HTTP 调用超时
	Timeout time.Duration `yaml:"timeout"`
	// MinInterval 对该 Provider 的最小请求间隔覆盖（0 使用内置默认值）
	MinInterval time.Duration `yaml:"min_interval"`
}

// KeyRing 返回该 Provider 的有序密钥环。顺序即回退顺序。
func (p ProviderConfig) KeyRing() []string {
	if len(p.APIKeys) > 0 {
		return p.APIKeys
	}
	if p.APIKey != "" {
		return []string{p.APIKey}
	}
	return nil
}

// Default 返回合理默认配置。
func Default() *Config {
	return &Config{
		Provider: "google",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "llmdispatch",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Queue: QueueConfig{
			Delay: 100 * time.Millisecond,
		},
		Dispatch: DispatchConfig{
			MaxRetriesPerKey: 1,
			BaseDelay:        300 * time.Millisecond,
		},
		Providers: map[string]ProviderConfig{},
	}
}
