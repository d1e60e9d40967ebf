package session

import (
	"context"
	"time"

	"github.com/ceyewan/logsys/sink"
)

// StdFactory 标准会话工厂
//
// 工厂在启动时构建一次，之后只读，可被多个 goroutine 共享：
//
//	f := session.NewStdFactory(
//	    session.WithSink(sink.Stderr()),
//	    session.WithHooks(session.MetricsHook(sm)),
//	)
//	logsys.Log(f.New, func(s *session.Std) { s.Print("started") })
type StdFactory struct {
	sink          sink.Sink
	clock         func() time.Time
	hooks         []Hook
	onSinkFailure SinkFailureHandler
	instance      string
	emitTimeout   time.Duration
}

// StdOption 标准会话工厂的选项
type StdOption func(*StdFactory)

// WithSink 设置输出目标，默认 sink.Stderr()
func WithSink(s sink.Sink) StdOption {
	return func(f *StdFactory) {
		if s != nil {
			f.sink = s
		}
	}
}

// WithClock 设置时钟，主要用于测试
func WithClock(clock func() time.Time) StdOption {
	return func(f *StdFactory) {
		if clock != nil {
			f.clock = clock
		}
	}
}

// WithHooks 追加会话生命周期钩子，Begin 按顺序调用，End 逆序调用
func WithHooks(hooks ...Hook) StdOption {
	return func(f *StdFactory) {
		for _, h := range hooks {
			if h != nil {
				f.hooks = append(f.hooks, h)
			}
		}
	}
}

// WithSinkFailure 设置 Sink 失败时的处理方式，默认 ExitOnSinkFailure
func WithSinkFailure(h SinkFailureHandler) StdOption {
	return func(f *StdFactory) {
		if h != nil {
			f.onSinkFailure = h
		}
	}
}

// WithInstance 设置写入记录的实例标识
func WithInstance(id string) StdOption {
	return func(f *StdFactory) {
		f.instance = id
	}
}

// WithEmitTimeout 限制单次 Emit 的耗时，0 表示不限制
func WithEmitTimeout(d time.Duration) StdOption {
	return func(f *StdFactory) {
		f.emitTimeout = d
	}
}

// NewStdFactory 创建标准会话工厂
func NewStdFactory(opts ...StdOption) *StdFactory {
	f := &StdFactory{
		sink:          sink.Stderr(),
		clock:         time.Now,
		onSinkFailure: ExitOnSinkFailure,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New 创建一个会话，可直接作为 Factory[*Std] 使用
func (f *StdFactory) New() *Std {
	return f.NewContext(context.Background())
}

// NewContext 创建一个携带 ctx 的会话
//
// ctx 用于 Hook（例如作为 Span 的父节点）以及 Sink 的 Emit。
func (f *StdFactory) NewContext(ctx context.Context) *Std {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Std{
		factory: f,
		id:      uniqueID(),
		start:   f.clock(),
	}
	for _, h := range f.hooks {
		ctx = h.Begin(ctx, s.start)
	}
	s.ctx = ctx
	return s
}

// Bind 返回绑定了 ctx 的工厂函数
func (f *StdFactory) Bind(ctx context.Context) Factory[*Std] {
	return func() *Std { return f.NewContext(ctx) }
}

// Sink 返回工厂使用的输出目标
func (f *StdFactory) Sink() sink.Sink {
	return f.sink
}

// Close 关闭输出目标
func (f *StdFactory) Close() error {
	return f.sink.Close()
}
