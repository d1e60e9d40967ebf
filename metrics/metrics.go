package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/xerrors"
)

// MeterName instrumentation scope
const MeterName = "github.com/ceyewan/logsys"

// Option 配置 New
type Option func(*provider)

// WithLogger 注入组件日志，命名空间 "metrics"
func WithLogger(logger clog.Logger) Option {
	return func(p *provider) {
		if logger != nil {
			p.logger = logger.WithNamespace("metrics")
		}
	}
}

// WithReader 以 r 替代 Prometheus Exporter，测试中传入 ManualReader 直接 Collect
func WithReader(r sdkmetric.Reader) Option {
	return func(p *provider) { p.reader = r }
}

type provider struct {
	logger   clog.Logger
	reader   sdkmetric.Reader
	registry *promclient.Registry
	mp       *sdkmetric.MeterProvider
	meter    metric.Meter
	server   *http.Server
}

// New 创建 Meter，cfg.Enabled 为 false 时返回 Discard()
//
// 每个 Meter 有独立的 Prometheus Registry，同名指标在不同实例间互不冲突。
func New(cfg *Config, opts ...Option) (Meter, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "metrics: config is required")
	}
	if !cfg.Enabled {
		return Discard(), nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &provider{logger: clog.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	if p.reader == nil {
		p.registry = promclient.NewRegistry()
		exp, err := prometheus.New(prometheus.WithRegisterer(p.registry))
		if err != nil {
			return nil, xerrors.Wrap(err, "metrics: prometheus exporter")
		}
		p.reader = exp
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.Version),
	))
	if err != nil {
		return nil, xerrors.Wrap(err, "metrics: resource")
	}
	p.mp = sdkmetric.NewMeterProvider(sdkmetric.WithReader(p.reader), sdkmetric.WithResource(res))
	p.meter = p.mp.Meter(MeterName)

	if cfg.RuntimeMetrics {
		if err := runtime.Start(runtime.WithMeterProvider(p.mp)); err != nil {
			return nil, xerrors.Wrap(err, "metrics: runtime instrumentation")
		}
	}
	if cfg.Port > 0 && p.registry != nil {
		p.listen(":"+strconv.Itoa(cfg.Port), cfg.Path)
	}
	return p, nil
}

// Must 同 New，失败时 panic
func Must(cfg *Config, opts ...Option) Meter {
	return xerrors.Must(New(cfg, opts...))
}

func (p *provider) listen(addr, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	p.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	p.logger.Info("serving prometheus metrics", clog.String("addr", addr), clog.String("path", path))
	go func() {
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("prometheus server stopped", clog.Error(err))
		}
	}()
}

func (p *provider) Counter(name, desc string, opts ...InstrumentOption) (Counter, error) {
	in := newInstrument(opts)
	c, err := p.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(in.unit))
	if err != nil {
		return nil, xerrors.Wrapf(err, "metrics: counter %s", name)
	}
	return counter{c}, nil
}

func (p *provider) Histogram(name, desc string, opts ...InstrumentOption) (Histogram, error) {
	in := newInstrument(opts)
	hopts := []metric.Float64HistogramOption{metric.WithDescription(desc), metric.WithUnit(in.unit)}
	if len(in.buckets) > 0 {
		hopts = append(hopts, metric.WithExplicitBucketBoundaries(in.buckets...))
	}
	h, err := p.meter.Float64Histogram(name, hopts...)
	if err != nil {
		return nil, xerrors.Wrapf(err, "metrics: histogram %s", name)
	}
	return histogram{h}, nil
}

func (p *provider) Shutdown(ctx context.Context) error {
	var serverErr error
	if p.server != nil {
		serverErr = p.server.Shutdown(ctx)
	}
	return xerrors.Combine(serverErr, p.mp.Shutdown(ctx))
}

type counter struct{ c metric.Int64Counter }

func (c counter) Inc(ctx context.Context, labels ...Label) { c.Add(ctx, 1, labels...) }

func (c counter) Add(ctx context.Context, n int64, labels ...Label) {
	c.c.Add(ctx, n, metric.WithAttributes(attrs(labels)...))
}

type histogram struct{ h metric.Float64Histogram }

func (h histogram) Record(ctx context.Context, v float64, labels ...Label) {
	h.h.Record(ctx, v, metric.WithAttributes(attrs(labels)...))
}

func attrs(labels []Label) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(labels))
	for _, l := range labels {
		out = append(out, attribute.String(l.Key, l.Value))
	}
	return out
}
