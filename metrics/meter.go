// Package metrics 是 logsys 的指标层，基于 OpenTelemetry，默认以 Prometheus 格式暴露。
//
//	meter, err := metrics.New(&metrics.Config{Enabled: true, ServiceName: "order-api", Port: 9090, Path: "/metrics"})
//	if err != nil {
//	    return err
//	}
//	defer meter.Shutdown(ctx)
//
//	sm, _ := metrics.NewSessionMetrics(meter)
//	sm.Observe(ctx, metrics.OutcomeOK, 12*time.Millisecond, false)
package metrics

import "context"

// Label 指标标签，值必须是低基数的，会话 ID 不能作为标签
type Label struct {
	Key   string
	Value string
}

// L 构造 Label
func L(key, value string) Label { return Label{Key: key, Value: value} }

// Counter 单调递增计数
type Counter interface {
	Inc(ctx context.Context, labels ...Label)
	Add(ctx context.Context, n int64, labels ...Label)
}

// Histogram 记录数值分布，例如主体耗时
type Histogram interface {
	Record(ctx context.Context, v float64, labels ...Label)
}

// Meter 创建指标，返回的指标可并发使用
type Meter interface {
	Counter(name, desc string, opts ...InstrumentOption) (Counter, error)
	Histogram(name, desc string, opts ...InstrumentOption) (Histogram, error)
	// Shutdown 刷新指标并停止 HTTP 服务器
	Shutdown(ctx context.Context) error
}

// InstrumentOption 单个指标的选项
type InstrumentOption func(*instrument)

type instrument struct {
	unit    string
	buckets []float64
}

// WithUnit 设置 UCUM 单位，例如 "s"
func WithUnit(unit string) InstrumentOption {
	return func(i *instrument) { i.unit = unit }
}

// WithBuckets 设置直方图桶边界
func WithBuckets(bounds []float64) InstrumentOption {
	return func(i *instrument) { i.buckets = append([]float64(nil), bounds...) }
}

func newInstrument(opts []InstrumentOption) instrument {
	var i instrument
	for _, opt := range opts {
		opt(&i)
	}
	return i
}

// Discard 返回什么都不记录的 Meter
func Discard() Meter { return nop{} }

type nop struct{}

func (nop) Counter(string, string, ...InstrumentOption) (Counter, error)     { return nop{}, nil }
func (nop) Histogram(string, string, ...InstrumentOption) (Histogram, error) { return nop{}, nil }
func (nop) Shutdown(context.Context) error                                   { return nil }
func (nop) Inc(context.Context, ...Label)                                    {}
func (nop) Add(context.Context, int64, ...Label)                             {}
func (nop) Record(context.Context, float64, ...Label)                        {}
