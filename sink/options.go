package sink

import (
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/logsys/clog"
)

// Option Sink 的可选参数
type Option func(*options)

type options struct {
	codec     Codec
	tracer    oteltrace.Tracer
	logger    clog.Logger
	maxLen    int64
	tableName string
}

// WithCodec 设置消息队列类 Sink 的序列化方式，默认 JSON
func WithCodec(c Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithTracer 设置生产者 Span 使用的 Tracer，默认取全局 TracerProvider
func WithTracer(t oteltrace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithLogger 设置内部日志（熔断状态变化、降级等）
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxLen 限制 Redis Stream 的近似长度，0 表示不限制
func WithMaxLen(n int64) Option {
	return func(o *options) {
		o.maxLen = n
	}
}

// WithTableName 设置 GORM Sink 的表名，默认 log_records
func WithTableName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.tableName = name
		}
	}
}

func applyOptions(opts ...Option) options {
	o := options{
		codec:     JSONCodec{},
		logger:    clog.Discard(),
		tableName: defaultTableName,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
