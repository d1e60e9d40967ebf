package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Span 属性键
const (
	AttrMessagingSystem      = "messaging.system"
	AttrMessagingDestination = "messaging.destination"
	AttrMessagingOperation   = "messaging.operation"

	AttrSessionID       = "logsys.session.id"
	AttrSessionInstance = "logsys.session.instance"
	AttrSessionHasBody  = "logsys.session.has_body"
	AttrSessionCaught   = "logsys.session.caught"
)

// 日志 Sink 使用的消息系统
const (
	SystemNATS  = "nats"
	SystemRedis = "redis"
	SystemKafka = "kafka"
)

// SpanNameSession 日志会话 Span 名称
const SpanNameSession = "logsys.session"

// Headers 随日志记录发送的链路头，如 traceparent
type Headers = propagation.MapCarrier

// Publication 一次日志记录的发布
type Publication struct {
	System      string
	Destination string
	SessionID   uint64
	Instance    string
}

func (p Publication) spanName() string {
	if p.Destination == "" {
		return "logsys.publish"
	}
	return "logsys.publish " + p.Destination
}

func (p Publication) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrMessagingOperation, "publish"),
		attribute.Int64(AttrSessionID, int64(p.SessionID)),
	}
	if p.System != "" {
		attrs = append(attrs, attribute.String(AttrMessagingSystem, p.System))
	}
	if p.Destination != "" {
		attrs = append(attrs, attribute.String(AttrMessagingDestination, p.Destination))
	}
	if p.Instance != "" {
		attrs = append(attrs, attribute.String(AttrSessionInstance, p.Instance))
	}
	return attrs
}

// StartPublish 启动生产者 Span 并返回已注入链路上下文的消息头
//
// tracer 为 nil 时使用全局 TracerProvider。调用方负责结束 Span。
func StartPublish(ctx context.Context, tracer oteltrace.Tracer, p Publication) (context.Context, oteltrace.Span, Headers) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	ctx, span := tracer.Start(ctx, p.spanName(),
		oteltrace.WithSpanKind(oteltrace.SpanKindProducer),
		oteltrace.WithAttributes(p.attributes()...),
	)
	headers := Headers{}
	otel.GetTextMapPropagator().Inject(ctx, headers)
	return ctx, span, headers
}

// Extract 从消息头还原发布方的链路上下文，消费端使用
func Extract(ctx context.Context, headers map[string]string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(headers) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, Headers(headers))
}

// Fail 把 err 记录到 span 并标记为错误，任一参数为 nil 时忽略
func Fail(span oteltrace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
