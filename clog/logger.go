package clog

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// NamespaceKey 命名空间字段名
const NamespaceKey = "namespace"

// Option 配置 Logger
type Option func(*options)

type ctxField struct {
	key  any
	name string
}

type options struct {
	namespace []string
	ctxFields []ctxField
	writer    io.Writer
	traced    bool
}

// WithNamespace 设置初始命名空间
func WithNamespace(parts ...string) Option {
	return func(o *options) { o.namespace = append(o.namespace, parts...) }
}

// WithContextField 记录时从 ctx.Value(key) 取值，以 name 输出
func WithContextField(key any, name string) Option {
	return func(o *options) { o.ctxFields = append(o.ctxFields, ctxField{key: key, name: name}) }
}

// WithStandardContext 提取 request_id 与 user_id
func WithStandardContext() Option {
	return func(o *options) {
		o.ctxFields = append(o.ctxFields, ctxField{"request_id", "request_id"}, ctxField{"user_id", "user_id"})
	}
}

// WithTraceContext 输出 ctx 中 OpenTelemetry Span 的 trace_id 与 span_id
func WithTraceContext() Option {
	return func(o *options) { o.traced = true }
}

// WithWriter Output 为 buffer 时的输出目标
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// core 共享的 handler 与可调级别，子 Logger 共用
type core struct {
	slog.Handler
	level *slog.LevelVar
}

type logger struct {
	core      *core
	ns        []string
	ctxFields []ctxField
	traced    bool
	attrs     []Field
}

func (l *logger) Debug(msg string, fields ...Field) { l.emit(context.Background(), DebugLevel, msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.emit(context.Background(), InfoLevel, msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.emit(context.Background(), WarnLevel, msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.emit(context.Background(), ErrorLevel, msg, fields) }

func (l *logger) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, DebugLevel, msg, fields)
}

func (l *logger) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, InfoLevel, msg, fields)
}

func (l *logger) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, WarnLevel, msg, fields)
}

func (l *logger) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, ErrorLevel, msg, fields)
}

func (l *logger) Log(ctx context.Context, level Level, msg string, fields ...Field) {
	l.emit(ctx, level, msg, fields)
}

func (l *logger) Enabled(ctx context.Context, level Level) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.core.Enabled(ctx, slog.Level(level))
}

func (l *logger) With(fields ...Field) Logger {
	child := *l
	child.attrs = append(append(make([]Field, 0, len(l.attrs)+len(fields)), l.attrs...), fields...)
	return &child
}

func (l *logger) WithNamespace(parts ...string) Logger {
	child := *l
	child.ns = append(append(make([]string, 0, len(l.ns)+len(parts)), l.ns...), parts...)
	return &child
}

func (l *logger) SetLevel(level Level) error {
	l.core.level.Set(slog.Level(level))
	return nil
}

// emit 固定跳过 3 层栈帧：runtime.Callers、emit、公开方法
func (l *logger) emit(ctx context.Context, level Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.core.Enabled(ctx, slog.Level(level)) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), slog.Level(level), msg, pcs[0])
	r.AddAttrs(l.attrs...)
	for _, f := range fields {
		if f.Key != "" {
			r.AddAttrs(f)
		}
	}
	for _, cf := range l.ctxFields {
		if v := ctx.Value(cf.key); v != nil {
			r.AddAttrs(slog.Any(cf.name, v))
		}
	}
	if l.traced {
		if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
			r.AddAttrs(slog.String("trace_id", sc.TraceID().String()), slog.String("span_id", sc.SpanID().String()))
		}
	}
	if len(l.ns) > 0 {
		r.AddAttrs(slog.String(NamespaceKey, strings.Join(l.ns, ".")))
	}
	_ = l.core.Handle(ctx, r)
}
