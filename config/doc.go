// Package config 提供调度层的统一配置加载。
// 配置优先级：默认值 → YAML 文件 → 环境变量（前缀 LLMDISPATCH_）。
package config
