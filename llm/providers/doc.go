/*
Package providers 承载所有 Provider 适配器共享的基础设施：HTTP 状态码到
统一错误的映射、错误消息提取、OpenAI 兼容协议的通用线格式类型，以及各
适配器的配置结构。

九个适配器各占一个子包，每个子包独占一种上游线格式：

  - google       Gemini generateContent API（唯一支持内联图片）
  - openai/groq  OpenAI 兼容 chat completions（共享 openaicompat 基座）
  - local        本地 OpenAI 兼容端点（免凭证，共享 openaicompat 基座）
  - claude       Anthropic Messages API
  - cohere       Cohere generate API
  - huggingface  HF Inference API
  - together     Together inference API
  - ollama       Ollama generate API（免凭证）
*/
package providers
