package sink

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/xerrors"
)

// BreakerConfig 熔断配置
type BreakerConfig struct {
	// MaxRequests 半开状态允许通过的请求数
	MaxRequests uint32 `mapstructure:"max_requests" json:"max_requests" yaml:"max_requests"`
	// Interval 闭合状态下计数清零的周期，0 表示不清零
	Interval time.Duration `mapstructure:"interval" json:"interval" yaml:"interval"`
	// Timeout 打开状态持续多久后进入半开
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	// MinimumRequests 计算失败率前的最小请求数
	MinimumRequests uint32 `mapstructure:"minimum_requests" json:"minimum_requests" yaml:"minimum_requests"`
	// FailureRatio 触发熔断的失败率
	FailureRatio float64 `mapstructure:"failure_ratio" json:"failure_ratio" yaml:"failure_ratio"`
}

// DefaultBreakerConfig 返回默认熔断配置
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:     1,
		Timeout:         30 * time.Second,
		MinimumRequests: 5,
		FailureRatio:    0.6,
	}
}

type breakerSink struct {
	next   Sink
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger clog.Logger
}

// WithBreaker 为 Sink 增加熔断保护
//
// 熔断打开期间 Emit 直接返回 gobreaker.ErrOpenState，不再访问下游。
// 通常与 Fallback 组合，下游不可用时切换到本地输出。
func WithBreaker(next Sink, name string, cfg BreakerConfig, opts ...Option) Sink {
	o := applyOptions(opts...)
	def := DefaultBreakerConfig()
	if cfg.MinimumRequests == 0 {
		cfg.MinimumRequests = def.MinimumRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = def.FailureRatio
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}

	logger := o.logger.WithNamespace("breaker")
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinimumRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				clog.String("sink", name),
				clog.String("from", from.String()),
				clog.String("to", to.String()))
		},
	}
	return &breakerSink{
		next:   next,
		cb:     gobreaker.NewCircuitBreaker[struct{}](settings),
		logger: logger,
	}
}

func (b *breakerSink) Emit(ctx context.Context, rec *Record) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Emit(ctx, rec)
	})
	return err
}

func (b *breakerSink) Close() error {
	return b.next.Close()
}

// IsBreakerOpen 判断错误是否因熔断打开而被拒绝
func IsBreakerOpen(err error) bool {
	return xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests)
}
