// Package trace 为 logsys 提供 OpenTelemetry 链路追踪的初始化与工具函数。
//
// 日志会话可以通过 session.TraceHook 映射为一个 Span；消息队列类 Sink 在发布
// 记录时启动生产者 Span，并把 traceparent 写入消息头，消费端可以据此串联链路。
package trace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/logsys/xerrors"
)

// TracerName logsys 内部使用的 Tracer 名称
const TracerName = "github.com/ceyewan/logsys"

// Shutdown 刷新并关闭 TracerProvider
type Shutdown func(context.Context) error

// Setup 按配置安装全局 TracerProvider 与 W3C 传播器
//
// cfg 为 nil 或未启用时安装不带导出器的 Provider。
func Setup(cfg *Config) (Shutdown, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	var spanOpts []sdktrace.TracerProviderOption
	sampler := 1.0
	if cfg.Enabled {
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		exp, err := dialExporter(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Sync {
			spanOpts = append(spanOpts, sdktrace.WithSyncer(exp))
		} else {
			spanOpts = append(spanOpts, sdktrace.WithBatcher(exp))
		}
		sampler = cfg.Sampler
	}

	res, err := resource.New(context.Background(), serviceAttrs(cfg.ServiceName)...)
	if err != nil {
		return nil, xerrors.Wrap(err, "trace: build resource")
	}
	spanOpts = append(spanOpts,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampler))),
	)

	tp := sdktrace.NewTracerProvider(spanOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func dialExporter(cfg *Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(5 * time.Second),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(context.Background(), opts...)
	if err != nil {
		return nil, xerrors.Wrapf(err, "trace: dial otlp %s", cfg.Endpoint)
	}
	return exp, nil
}

func serviceAttrs(name string) []resource.Option {
	if name == "" {
		return nil
	}
	return []resource.Option{resource.WithAttributes(semconv.ServiceNameKey.String(name))}
}
