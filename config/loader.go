package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀。
const EnvPrefix = "LLMDISPATCH"

// Load 加载配置：默认值 → YAML 文件（path 为空或文件不存在时跳过）→ 环境变量。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置一致性。
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider must not be empty")
	}
	if c.Queue.Delay < 0 {
		return fmt.Errorf("queue.delay must not be negative")
	}
	if c.Dispatch.MaxRetriesPerKey < 0 {
		return fmt.Errorf("dispatch.max_retries_per_key must not be negative")
	}
	for name, p := range c.Providers {
		if p.MinInterval < 0 {
			return fmt.Errorf("providers.%s.min_interval must not be negative", name)
		}
	}
	return nil
}

// applyEnv 应用环境变量覆盖。
//
// 全局项：
//
//	LLMDISPATCH_PROVIDER, LLMDISPATCH_LOG_LEVEL, LLMDISPATCH_LOG_FORMAT,
//	LLMDISPATCH_TELEMETRY_ENABLED, LLMDISPATCH_TELEMETRY_OTLP_ENDPOINT
//
// 按 Provider 项（<NAME> 为大写标签，如 OPENAI）：
//
//	LLMDISPATCH_<NAME>_API_KEY（逗号分隔为密钥环）,
//	LLMDISPATCH_<NAME>_BASE_URL, LLMDISPATCH_<NAME>_MODEL
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv(EnvPrefix + "_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvPrefix + "_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv(EnvPrefix + "_TELEMETRY_ENABLED"); v != "" {
		cfg.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvPrefix + "_TELEMETRY_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}

	for _, name := range []string{
		"google", "openai", "groq", "claude", "cohere",
		"huggingface", "together", "local", "ollama",
	} {
		upper := strings.ToUpper(name)
		pc := cfg.Providers[name]
		changed := false

		if v := os.Getenv(fmt.Sprintf("%s_%s_API_KEY", EnvPrefix, upper)); v != "" {
			keys := strings.Split(v, ",")
			for i := range keys {
				keys[i] = strings.TrimSpace(keys[i])
			}
			pc.APIKeys = keys
			changed = true
		}
		if v := os.Getenv(fmt.Sprintf("%s_%s_BASE_URL", EnvPrefix, upper)); v != "" {
			pc.BaseURL = v
			changed = true
		}
		if v := os.Getenv(fmt.Sprintf("%s_%s_MODEL", EnvPrefix, upper)); v != "" {
			pc.Model = v
			changed = true
		}

		if changed {
			if cfg.Providers == nil {
				cfg.Providers = map[string]ProviderConfig{}
			}
			cfg.Providers[name] = pc
		}
	}
}
