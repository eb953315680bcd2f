// Package llmdispatch 是多 Provider LLM 调度层的顶层入口。
//
// 一次 GenerateResponse 调用会经过固定的处理链：
// 请求规范化 → 串行队列 → 速率闸门 → 密钥环调度（重试/轮换/终止）→
// 适配器 HTTP 调用。对外只暴露这一个生成入口。
package llmdispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/llmdispatch/config"
	"github.com/BaSui01/llmdispatch/internal/metrics"
	"github.com/BaSui01/llmdispatch/llm"
	"github.com/BaSui01/llmdispatch/llm/factory"
	"github.com/BaSui01/llmdispatch/llm/queue"
	"github.com/BaSui01/llmdispatch/llm/ratelimit"
	"github.com/BaSui01/llmdispatch/llm/tokenizer"
)

// Options 单次生成请求的可选参数。零值字段使用配置或内置默认值。
type Options struct {
	// Provider 覆盖默认 Provider 标签
	Provider string
	// APIKey 单个密钥；与 APIKeys 同时给出时 APIKeys 优先
	APIKey string
	// APIKeys 有序密钥环，按顺序回退
	APIKeys []string
	// Model 覆盖该 Provider 的默认模型
	Model string
	// Temperature 采样温度，0 视为未设置（取默认 0.7）
	Temperature float32
	// MaxTokens 生成上限，0 取默认 2048
	MaxTokens int
	// Image 可选图片。接受裸 base64 或完整 data URI，
	// MimeType 为空时尝试从 data URI 解析
	Image *llm.ImageData
}

// Client 调度层客户端。并发安全，进程内应复用同一实例。
type Client struct {
	cfg        *config.Config
	registry   *llm.Registry
	dispatcher *llm.Dispatcher
	limiter    *ratelimit.Limiter
	queue      *queue.Queue[string]
	collector  *metrics.Collector
	logger     *zap.Logger
}

// New 依据配置构造客户端。reg 为 nil 时不注册 prometheus 指标。
func New(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	factoryCfgs := make(map[string]factory.ProviderConfig, len(cfg.Providers))
	intervals := make(map[string]time.Duration)
	for name, pc := range cfg.Providers {
		factoryCfgs[name] = factory.ProviderConfig{
			BaseURL: pc.BaseURL,
			Model:   pc.Model,
			Timeout: pc.Timeout,
		}
		if pc.MinInterval > 0 {
			intervals[name] = pc.MinInterval
		}
	}

	registry, err := factory.BuildRegistry(factoryCfgs, cfg.Provider, logger)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}

	var collector *metrics.Collector
	if reg != nil {
		collector = metrics.NewCollector("llmdispatch", reg, logger)
	}

	policy := llm.DispatchPolicy{
		MaxRetriesPerKey: cfg.Dispatch.MaxRetriesPerKey,
		BaseDelay:        cfg.Dispatch.BaseDelay,
	}

	return &Client{
		cfg:        cfg,
		registry:   registry,
		dispatcher: llm.NewDispatcher(registry, policy, collector, logger),
		limiter:    ratelimit.New(intervals, logger),
		queue:      queue.New[string](cfg.Queue.Delay, logger),
		collector:  collector,
		logger:     logger.With(zap.String("component", "client")),
	}, nil
}

// Registry 暴露底层 Provider 注册表（测试和自定义装配用）。
func (c *Client) Registry() *llm.Registry { return c.registry }

// GenerateResponse 提交一次生成请求并阻塞到结果返回。
//
// 请求先入串行队列（同一客户端上的调用严格按提交顺序执行，任务间隔
// 固定停顿），轮到执行时先过该 Provider 的最小间隔闸门，再进入密钥环
// 调度。ctx 取消时：排队中的请求立即出队返回，在飞请求由适配器的
// HTTP 层感知取消。
func (c *Client) GenerateResponse(ctx context.Context, prompt string, opts Options) (string, error) {
	provider := opts.Provider
	if provider == "" {
		provider = c.cfg.Provider
	}

	keys := opts.APIKeys
	if len(keys) == 0 && opts.APIKey != "" {
		keys = []string{opts.APIKey}
	}
	if len(keys) == 0 {
		keys = c.cfg.Providers[provider].KeyRing()
	}

	req := &llm.Request{
		TraceID:     uuid.NewString(),
		Prompt:      prompt,
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if req.Temperature == 0 {
		req.Temperature = llm.DefaultTemperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = llm.DefaultMaxTokens
	}
	if opts.Image != nil {
		req.Image = normalizeImage(opts.Image)
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	c.logger.Debug("request accepted",
		zap.String("trace_id", req.TraceID),
		zap.String("provider", provider),
		zap.Int("queue_len", c.queue.Len()),
		zap.Int("prompt_tokens_est", tokenizer.Estimate(req.Model, req.Prompt)))

	c.collector.QueueDepthInc()
	defer c.collector.QueueDepthDec()

	return c.queue.Enqueue(ctx, func(taskCtx context.Context) (string, error) {
		if err := c.limiter.Wait(taskCtx, provider); err != nil {
			return "", err
		}
		return c.dispatcher.Dispatch(taskCtx, provider, keys, req)
	})
}

// normalizeImage 统一图片入参：剥掉 data URI 前缀，必要时从前缀补全
// MIME 类型。
func normalizeImage(img *llm.ImageData) *llm.ImageData {
	mime, data := llm.StripDataURI(img.Base64Data)
	out := &llm.ImageData{
		MimeType:   img.MimeType,
		Base64Data: data,
	}
	if out.MimeType == "" {
		out.MimeType = mime
	}
	return out
}
