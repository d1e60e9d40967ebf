package session

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/logsys/metrics"
	"github.com/ceyewan/logsys/sink"
	"github.com/ceyewan/logsys/trace"
)

// Hook 会话生命周期钩子
//
// Begin 在会话构造时调用，返回的 ctx 成为会话上下文；End 在 Finalize 中、
// 输出到 Sink 之前调用。实现必须支持并发。
type Hook interface {
	Begin(ctx context.Context, start time.Time) context.Context
	End(ctx context.Context, rec *sink.Record)
}

type metricsHook struct {
	m *metrics.SessionMetrics
}

// MetricsHook 为每个会话记录 outcome 计数、主体耗时和消息函数失败次数
func MetricsHook(m *metrics.SessionMetrics) Hook {
	return &metricsHook{m: m}
}

func (h *metricsHook) Begin(ctx context.Context, _ time.Time) context.Context {
	return ctx
}

func (h *metricsHook) End(ctx context.Context, rec *sink.Record) {
	outcome := metrics.SessionOutcome(rec.HasBody, rec.Failed, rec.Caught)
	h.m.Observe(ctx, outcome, rec.Elapsed, rec.LogError != "")
}

type traceHook struct {
	tracer oteltrace.Tracer
}

// TraceHook 为每个会话创建一个 Span
//
// Span 从会话开始时刻起，到主体结束时刻止（没有主体时到 Finalize 为止）。
// 主体失败时 Span 状态为 Error。tracer 为 nil 时使用全局 TracerProvider。
func TraceHook(tracer oteltrace.Tracer) Hook {
	return &traceHook{tracer: tracer}
}

func (h *traceHook) Begin(ctx context.Context, start time.Time) context.Context {
	tracer := h.tracer
	if tracer == nil {
		tracer = otel.Tracer(trace.TracerName)
	}
	ctx, _ = tracer.Start(ctx, trace.SpanNameSession,
		oteltrace.WithTimestamp(start),
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
	)
	return ctx
}

func (h *traceHook) End(ctx context.Context, rec *sink.Record) {
	span := oteltrace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int64(trace.AttrSessionID, int64(rec.ID)),
		attribute.Bool(trace.AttrSessionHasBody, rec.HasBody),
	)
	if rec.Failed {
		span.SetAttributes(attribute.Bool(trace.AttrSessionCaught, rec.Caught))
		desc := rec.BodyError
		if desc == "" {
			desc = "body failed"
		}
		trace.Fail(span, errors.New(desc))
	}
	if rec.LogError != "" {
		span.AddEvent("log_error", oteltrace.WithAttributes(attribute.String("error", rec.LogError)))
	}

	var opts []oteltrace.SpanEndOption
	if rec.HasBody {
		opts = append(opts, oteltrace.WithTimestamp(rec.End))
	}
	span.End(opts...)
}
