// Package connector 为 logsys 的远程 Sink 建立底层连接。
//
// 支持 NATS、Redis、Kafka 以及 GORM（MySQL / SQLite）。每个 DialXXX 在返回前
// 都会验证连接可用，失败时返回包装了 ErrConnection 的错误：
//
//	rdb, err := connector.DialRedis(ctx, &connector.RedisConfig{Addr: "127.0.0.1:6379"},
//		connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer rdb.Close()
//
// 资源所有权：谁 Dial，谁 Close。Sink 只借用连接，不会关闭它。
package connector

import (
	"context"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/metrics"
	"github.com/ceyewan/logsys/xerrors"
)

// Sentinel Errors
var (
	ErrConnection = xerrors.New("connector: connection failed")
	ErrConfig     = xerrors.New("connector: invalid config")
)

// MetricDialsTotal 连接尝试次数，按 kind 与 result 区分
const MetricDialsTotal = "logsys_connector_dials_total"

// Option 连接选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// WithLogger 设置日志记录器，自动添加 "connector" 命名空间
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("connector")
		}
	}
}

// WithMeter 设置指标，记录每次连接尝试的结果
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

func applyOptions(opts []Option) *options {
	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	return o
}

// observe 记录一次连接尝试
func (o *options) observe(ctx context.Context, kind string, err error) {
	counter, cerr := o.meter.Counter(MetricDialsTotal, "Number of connection attempts made by logsys sinks")
	if cerr != nil {
		o.logger.Warn("create dial counter failed", clog.Error(cerr))
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	counter.Inc(ctx, metrics.L("kind", kind), metrics.L("result", result))
}

// connect 执行一次连接尝试并记录日志与指标，失败时包装为 ErrConnection
func (o *options) connect(ctx context.Context, kind, target string, fn func() error) error {
	logger := o.logger.With(clog.String("kind", kind), clog.String("target", target))
	err := fn()
	o.observe(ctx, kind, err)
	if err != nil {
		logger.ErrorContext(ctx, "connect failed", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s %s: %v", kind, target, err)
	}
	logger.InfoContext(ctx, "connected")
	return nil
}

// IsConnectionError 判断是否为连接失败
func IsConnectionError(err error) bool {
	return xerrors.Is(err, ErrConnection)
}

// IsConfigError 判断是否为配置错误
func IsConfigError(err error) bool {
	return xerrors.Is(err, ErrConfig)
}
