/*
Package llm 是多 Provider AI 请求调度层的核心包。

它定义了所有 Provider 适配器共享的规范请求模型（Request）、统一错误分类
（Error / ErrorClass）、Provider 接口与注册表，以及带密钥轮换和指数退避
的调度器（Dispatcher）。

调用链路：上层入口 → 串行队列（llm/queue）→ 频率闸门（llm/ratelimit）→
Dispatcher → 某个 Provider 适配器（llm/providers/...）→ 上游 HTTP API。

错误三分类驱动重试决策：

  - InvalidCredential（401/403）：立即放弃当前密钥，轮换到下一个
  - Transient（429/5xx/超时/网络错误）：同密钥指数退避重试，预算耗尽后轮换
  - Fatal（其余错误，含 2xx 响应缺失预期字段）：终止整个调度
*/
package llm
