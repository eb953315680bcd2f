package llm

import "context"

// 九个 Provider 的标识标签。注册表与配置均以此为键。
const (
	ProviderGoogle      = "google"
	ProviderOpenAI      = "openai"
	ProviderGroq        = "groq"
	ProviderClaude      = "claude"
	ProviderCohere      = "cohere"
	ProviderHuggingFace = "huggingface"
	ProviderTogether    = "together"
	ProviderLocal       = "local"
	ProviderOllama      = "ollama"
)

// KnownProviders 返回全部受支持的 Provider 标签。
func KnownProviders() []string {
	return []string{
		ProviderGoogle,
		ProviderOpenAI,
		ProviderGroq,
		ProviderClaude,
		ProviderCohere,
		ProviderHuggingFace,
		ProviderTogether,
		ProviderLocal,
		ProviderOllama,
	}
}

// Provider 定义统一的适配器接口。每个实现独占一种上游线格式，
// 负责把规范请求映射为该上游的 JSON 请求体，并从响应中提取文本。
//
// 适配器必须无状态（除注入的 HTTP Client 与 Logger 外），可被多个
// goroutine 并发调用。
type Provider interface {
	// Generate 发起一次同步生成请求，返回提取出的响应文本。
	// 非 2xx 响应或响应体缺失预期字段时返回 *Error。
	// apiKey 对免凭证 Provider（local/ollama）可为空。
	Generate(ctx context.Context, req *Request, apiKey string) (string, error)

	// Name 返回 Provider 的唯一标识。
	Name() string

	// RequiresAPIKey 报告此 Provider 是否必须携带凭证。
	RequiresAPIKey() bool
}
