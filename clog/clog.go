// Package clog 是 logsys 组件自身使用的结构化日志，基于 log/slog。
//
// 它不参与日志会话的渲染，只记录 setup、Sink、熔断器等组件的运行状况；
// 另外 sink.NewSlog 以它为后端，把已完成的会话转写为结构化日志。
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "json"},
//	    clog.WithNamespace("logsys", "sink"),
//	    clog.WithTraceContext(),
//	)
//	logger.Info("sink ready", clog.String("type", "nats"))
package clog

import (
	"context"

	"github.com/ceyewan/logsys/xerrors"
)

// Logger 组件日志接口
//
// 没有 Fatal：日志组件自身从不因为记录日志而结束进程。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)

	// Log 以运行时决定的级别记录，级别由调用方按内容选择时使用
	Log(ctx context.Context, level Level, msg string, fields ...Field)
	// Enabled 报告 level 当前是否会输出
	Enabled(ctx context.Context, level Level) bool

	// With 返回附带 fields 的子 Logger
	With(fields ...Field) Logger
	// WithNamespace 追加命名空间，"logsys" 追加 "sink" 后为 "logsys.sink"
	WithNamespace(parts ...string) Logger

	SetLevel(level Level) error
}

// New 创建 Logger，config 为 nil 时使用开发环境默认配置
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	h, err := config.build(o.writer)
	if err != nil {
		return nil, xerrors.Wrap(err, "clog")
	}
	return &logger{core: h, ns: o.namespace, ctxFields: o.ctxFields, traced: o.traced}, nil
}

// Discard 返回丢弃一切输出的 Logger
func Discard() Logger { return discard{} }

type discard struct{}

func (discard) Debug(string, ...Field)                         {}
func (discard) Info(string, ...Field)                          {}
func (discard) Warn(string, ...Field)                          {}
func (discard) Error(string, ...Field)                         {}
func (discard) DebugContext(context.Context, string, ...Field) {}
func (discard) InfoContext(context.Context, string, ...Field)  {}
func (discard) WarnContext(context.Context, string, ...Field)  {}
func (discard) ErrorContext(context.Context, string, ...Field) {}
func (discard) Log(context.Context, Level, string, ...Field)   {}
func (discard) Enabled(context.Context, Level) bool            { return false }
func (d discard) With(...Field) Logger                         { return d }
func (d discard) WithNamespace(...string) Logger               { return d }
func (discard) SetLevel(Level) error                           { return nil }
