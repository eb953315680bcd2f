package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/llmdispatch/internal/metrics"
)

// DispatchPolicy 定义每个密钥的重试预算与退避基准。
type DispatchPolicy struct {
	MaxRetriesPerKey int           `json:"max_retries_per_key"` // 同密钥的额外重试次数，默认 1（共 2 次尝试）
	BaseDelay        time.Duration `json:"base_delay"`          // 退避基准，默认 300ms，按 2^attempt 增长
}

// DefaultDispatchPolicy 返回默认调度策略。
func DefaultDispatchPolicy() DispatchPolicy {
	return DispatchPolicy{
		MaxRetriesPerKey: 1,
		BaseDelay:        300 * time.Millisecond,
	}
}

// Dispatcher 按密钥环顺序尝试适配器调用，并应用错误三分类驱动的
// 重试/轮换/终止策略。密钥严格串行尝试，首个成功者胜出。
type Dispatcher struct {
	registry  *Registry
	policy    DispatchPolicy
	collector *metrics.Collector
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewDispatcher 创建调度器。collector 可为 nil（不记录指标）。
func NewDispatcher(registry *Registry, policy DispatchPolicy, collector *metrics.Collector, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxRetriesPerKey < 0 {
		policy.MaxRetriesPerKey = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 300 * time.Millisecond
	}
	return &Dispatcher{
		registry:  registry,
		policy:    policy,
		collector: collector,
		logger:    logger.With(zap.String("component", "dispatcher")),
		tracer:    otel.Tracer("llmdispatch/llm"),
	}
}

// Dispatch 对指定 Provider 执行一次完整调度。
//
// keys 为空且 Provider 免凭证时，适配器只被调用一次，成功或失败原样
// 透传，不套重试循环。否则按 keys 顺序逐个尝试，每个密钥最多
// MaxRetriesPerKey+1 次；全部耗尽时返回最近一次观察到的错误。
func (d *Dispatcher) Dispatch(ctx context.Context, provider string, keys []string, req *Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	p, ok := d.registry.Get(provider)
	if !ok {
		return "", fmt.Errorf("provider %q not registered", provider)
	}

	ctx, span := d.tracer.Start(ctx, "llm.dispatch",
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", req.Model),
			attribute.Int("llm.key_count", len(keys)),
		))
	defer span.End()

	start := time.Now()
	text, err := d.dispatch(ctx, p, keys, req)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	d.collector.ObserveDispatch(provider, outcome, elapsed)

	return text, err
}

func (d *Dispatcher) dispatch(ctx context.Context, p Provider, keys []string, req *Request) (string, error) {
	log := d.logger.With(
		zap.String("provider", p.Name()),
		zap.String("trace_id", req.TraceID),
	)

	if len(keys) == 0 {
		if p.RequiresAPIKey() {
			return "", &Error{
				Code:     ErrUnauthorized,
				Message:  fmt.Sprintf("provider %s requires an API key but none was supplied", p.Name()),
				Provider: p.Name(),
			}
		}
		// 免凭证分支：单次调用，无重试。
		return p.Generate(ctx, req, "")
	}

	var lastErr error

	for ki, key := range keys {
		if ki > 0 {
			d.collector.RecordKeyRotation(p.Name())
			log.Info("rotating to next API key", zap.Int("key_index", ki))
		}

		for attempt := 0; attempt <= d.policy.MaxRetriesPerKey; attempt++ {
			text, err := p.Generate(ctx, req, key)
			if err == nil {
				if ki > 0 || attempt > 0 {
					log.Info("dispatch recovered",
						zap.Int("key_index", ki),
						zap.Int("attempt", attempt))
				}
				return text, nil
			}

			lastErr = err
			class := Classify(err)
			log.Warn("attempt failed",
				zap.Int("key_index", ki),
				zap.Int("attempt", attempt),
				zap.String("class", class.String()),
				zap.Error(err))

			switch class {
			case ClassInvalidCredential:
				// 密钥级错误不消耗同密钥重试预算，直接轮换。
				attempt = d.policy.MaxRetriesPerKey
				continue

			case ClassTransient:
				if attempt < d.policy.MaxRetriesPerKey {
					delay := d.policy.BaseDelay * (1 << attempt)
					d.collector.RecordRetry(p.Name(), class.String())
					select {
					case <-ctx.Done():
						return "", ctx.Err()
					case <-time.After(delay):
					}
				}

			case ClassFatal:
				// 请求级错误：剩余密钥不再尝试。
				return "", err
			}
		}
	}

	return "", lastErr
}
