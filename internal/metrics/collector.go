package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector 调度层指标收集器。所有方法对 nil 接收者安全，
// 不需要指标时直接传 nil。
type Collector struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	retriesTotal     *prometheus.CounterVec
	keyRotations     *prometheus.CounterVec
	queueDepth       prometheus.Gauge

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到给定的 Registerer。
// reg 为 nil 时使用默认注册表。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	return &Collector{
		dispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_requests_total",
				Help:      "Total number of dispatch requests by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Dispatch duration in seconds, including retries and backoff",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_retries_total",
				Help:      "Total number of same-key retries by provider and error class",
			},
			[]string{"provider", "class"},
		),
		keyRotations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_key_rotations_total",
				Help:      "Total number of API key rotations by provider",
			},
			[]string{"provider"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Number of requests waiting in or occupying the serial queue",
			},
		),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// ObserveDispatch 记录一次完整调度的结果与耗时。
func (c *Collector) ObserveDispatch(provider, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.dispatchTotal.WithLabelValues(provider, outcome).Inc()
	c.dispatchDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// RecordRetry 记录一次同密钥重试。
func (c *Collector) RecordRetry(provider, class string) {
	if c == nil {
		return
	}
	c.retriesTotal.WithLabelValues(provider, class).Inc()
}

// RecordKeyRotation 记录一次密钥轮换。
func (c *Collector) RecordKeyRotation(provider string) {
	if c == nil {
		return
	}
	c.keyRotations.WithLabelValues(provider).Inc()
}

// QueueDepthInc 队列深度加一。
func (c *Collector) QueueDepthInc() {
	if c == nil {
		return
	}
	c.queueDepth.Inc()
}

// QueueDepthDec 队列深度减一。
func (c *Collector) QueueDepthDec() {
	if c == nil {
		return
	}
	c.queueDepth.Dec()
}
