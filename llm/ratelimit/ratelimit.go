// Package ratelimit 提供按 Provider 的最小请求间隔闸门。
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/llmdispatch/llm"
)

// DefaultInterval 未显式配置的 Provider 使用的最小间隔。
const DefaultInterval = 1000 * time.Millisecond

// DefaultIntervals 返回内置的按 Provider 最小间隔表。
func DefaultIntervals() map[string]time.Duration {
	return map[string]time.Duration{
		llm.ProviderGoogle: 1000 * time.Millisecond,
		llm.ProviderOpenAI: 2000 * time.Millisecond,
		llm.ProviderGroq:   500 * time.Millisecond,
		llm.ProviderClaude: 2000 * time.Millisecond,
		llm.ProviderLocal:  100 * time.Millisecond,
		llm.ProviderOllama: 100 * time.Millisecond,
	}
}

// Limiter 对每个 Provider 维护一个令牌桶（容量 1，按最小间隔补充），
// 实现"距上次调用不足最小间隔则推迟"的语义。
//
// 两套用法并存：
//   - 硬闸门：Wait 阻塞到间隔满足并消耗令牌（上层入口采用此模式）
//   - 咨询式：RecordCall 登记一次调用，ShouldDefer 查询是否应推迟，
//     调用方可以选择忽略
type Limiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	intervals map[string]time.Duration
	logger    *zap.Logger
}

// New 创建 Limiter。overrides 中的条目覆盖内置间隔表；传 nil 使用默认值。
func New(overrides map[string]time.Duration, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	intervals := DefaultIntervals()
	for name, d := range overrides {
		if d > 0 {
			intervals[name] = d
		}
	}
	return &Limiter{
		limiters:  make(map[string]*rate.Limiter),
		intervals: intervals,
		logger:    logger.With(zap.String("component", "ratelimit")),
	}
}

// Interval 返回某 Provider 的生效最小间隔。
func (l *Limiter) Interval(provider string) time.Duration {
	if d, ok := l.intervals[provider]; ok {
		return d
	}
	return DefaultInterval
}

func (l *Limiter) limiterFor(provider string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[provider]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Every(l.Interval(provider)), 1)
	l.limiters[provider] = lim
	return lim
}

// ShouldDefer 报告距该 Provider 上次登记的调用是否不足最小间隔。
// 纯查询，不消耗令牌。
func (l *Limiter) ShouldDefer(provider string) bool {
	return l.limiterFor(provider).Tokens() < 1
}

// RecordCall 登记一次对该 Provider 的调用（消耗令牌）。
func (l *Limiter) RecordCall(provider string) {
	l.limiterFor(provider).Allow()
}

// Wait 阻塞到该 Provider 的最小间隔满足，随后登记本次调用。
// ctx 取消时提前返回。
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	lim := l.limiterFor(provider)
	if lim.Tokens() < 1 {
		l.logger.Debug("deferring request",
			zap.String("provider", provider),
			zap.Duration("interval", l.Interval(provider)))
	}
	return lim.Wait(ctx)
}
