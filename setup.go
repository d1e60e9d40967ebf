package logsys

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/connector"
	"github.com/ceyewan/logsys/metrics"
	"github.com/ceyewan/logsys/session"
	"github.com/ceyewan/logsys/sink"
	"github.com/ceyewan/logsys/trace"
	"github.com/ceyewan/logsys/xerrors"
)

// Option Setup 的可选参数
type Option func(*setupOptions)

type setupOptions struct {
	logger      clog.Logger
	meter       metrics.Meter
	nats        *nats.Conn
	redis       redis.UniversalClient
	kafka       *kgo.Client
	db          *gorm.DB
	extra       []sink.Sink
	stdOpts     []session.StdOption
	sinkFailure session.SinkFailureHandler
}

// WithLogger 设置内部日志，优先于 Config.Log
func WithLogger(l clog.Logger) Option {
	return func(o *setupOptions) { o.logger = l }
}

// WithMeter 设置指标，优先于 Config.Metrics；注入的 Meter 不会被 Close 关闭
func WithMeter(m metrics.Meter) Option {
	return func(o *setupOptions) { o.meter = m }
}

// WithNATS 注入 NATS 连接，nats 类型的 Sink 不再自行建立连接
func WithNATS(conn *nats.Conn) Option {
	return func(o *setupOptions) { o.nats = conn }
}

// WithRedis 注入 Redis 客户端
func WithRedis(client redis.UniversalClient) Option {
	return func(o *setupOptions) { o.redis = client }
}

// WithKafka 注入 Kafka 客户端
func WithKafka(client *kgo.Client) Option {
	return func(o *setupOptions) { o.kafka = client }
}

// WithDB 注入 GORM 连接
func WithDB(db *gorm.DB) Option {
	return func(o *setupOptions) { o.db = db }
}

// WithExtraSink 在配置的 Sink 之外追加输出目标
func WithExtraSink(s sink.Sink) Option {
	return func(o *setupOptions) {
		if s != nil {
			o.extra = append(o.extra, s)
		}
	}
}

// WithSinkFailure 设置 Sink 失败时的处理方式，默认写 stderr 后退出进程
func WithSinkFailure(h session.SinkFailureHandler) Option {
	return func(o *setupOptions) { o.sinkFailure = h }
}

// WithStdOptions 透传给 session.NewStdFactory 的选项，后于配置生效
func WithStdOptions(opts ...session.StdOption) Option {
	return func(o *setupOptions) { o.stdOpts = append(o.stdOpts, opts...) }
}

// System 由配置构建的日志系统
//
// 进程启动时构建一次，退出前调用 Close：
//
//	sys, err := logsys.Setup(ctx, cfg, logsys.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer sys.Close(context.Background())
//
//	logsys.Log(sys.New, func(s *session.Std) { s.Print("service started") })
type System struct {
	Factory  *session.StdFactory
	Instance string

	logger  clog.Logger
	meter   metrics.Meter
	closers []func(context.Context) error
}

// Setup 根据配置构建日志系统
//
// cfg 为 nil 时使用默认配置：输出到 stderr，不启用指标与链路追踪。
// 失败时已建立的连接会被释放。
func Setup(ctx context.Context, cfg *Config, opts ...Option) (sys *System, err error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := &setupOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if err := cfg.checkGuards(len(o.extra)); err != nil {
		return nil, err
	}

	sys = &System{Instance: cfg.Instance}
	if sys.Instance == "" {
		sys.Instance = uuid.NewString()
	}
	defer func() {
		if err != nil {
			_ = sys.Close(ctx)
			sys = nil
		}
	}()

	if err = sys.setupLogger(cfg, o); err != nil {
		return sys, err
	}
	if err = sys.setupMeter(cfg, o); err != nil {
		return sys, err
	}

	var hooks []session.Hook
	sm, err := metrics.NewSessionMetrics(sys.meter, metrics.L(metrics.LabelInstance, sys.Instance))
	if err != nil {
		return sys, err
	}
	hooks = append(hooks, session.MetricsHook(sm))

	if cfg.Trace != nil {
		shutdown, terr := trace.Setup(cfg.Trace)
		if terr != nil {
			return sys, terr
		}
		sys.closers = append(sys.closers, shutdown)
		hooks = append(hooks, session.TraceHook(otel.Tracer(trace.TracerName)))
	}

	out, err := sys.buildSinks(ctx, cfg, o)
	if err != nil {
		return sys, err
	}

	stdOpts := []session.StdOption{
		session.WithSink(out),
		session.WithHooks(hooks...),
		session.WithInstance(sys.Instance),
		session.WithEmitTimeout(cfg.EmitTimeout),
		session.WithSinkFailure(o.sinkFailure),
	}
	sys.Factory = session.NewStdFactory(append(stdOpts, o.stdOpts...)...)

	sys.logger.InfoContext(ctx, "logsys initialized",
		clog.String("instance", sys.Instance),
		clog.Int("sinks", len(cfg.Sinks)+len(o.extra)),
		clog.String("mode", cfg.Mode))
	return sys, nil
}

func (s *System) setupLogger(cfg *Config, o *setupOptions) error {
	switch {
	case o.logger != nil:
		s.logger = o.logger
	case cfg.Log != nil:
		l, err := clog.New(cfg.Log, clog.WithNamespace("logsys"), clog.WithTraceContext())
		if err != nil {
			return xerrors.Wrap(err, "create logger")
		}
		s.logger = l
	default:
		s.logger = clog.Discard()
	}
	return nil
}

func (s *System) setupMeter(cfg *Config, o *setupOptions) error {
	switch {
	case o.meter != nil:
		s.meter = o.meter
	case cfg.Metrics != nil:
		m, err := metrics.New(cfg.Metrics, metrics.WithLogger(s.logger))
		if err != nil {
			return xerrors.Wrap(err, "create meter")
		}
		s.meter = m
		s.closers = append(s.closers, m.Shutdown)
	default:
		s.meter = metrics.Discard()
	}
	return nil
}

// buildSinks 按配置构建并组合所有 Sink
func (s *System) buildSinks(ctx context.Context, cfg *Config, o *setupOptions) (sink.Sink, error) {
	sinks := make([]sink.Sink, 0, len(cfg.Sinks)+len(o.extra))
	for i := range cfg.Sinks {
		sc := &cfg.Sinks[i]
		out, err := s.buildSink(ctx, sc, o)
		if err != nil {
			for _, built := range sinks {
				_ = built.Close()
			}
			return nil, xerrors.Wrapf(err, "sinks[%d] %s", i, sc.Type)
		}
		if sc.RateLimit > 0 {
			out = sink.WithRateLimit(out, sc.RateLimit, sc.Burst)
		}
		if sc.Breaker != nil {
			out = sink.WithBreaker(out, sinkName(i, sc), *sc.Breaker, sink.WithLogger(s.logger))
		}
		sinks = append(sinks, out)
	}
	sinks = append(sinks, o.extra...)

	switch {
	case len(sinks) == 0:
		return sink.Stderr(), nil
	case len(sinks) == 1:
		return sinks[0], nil
	case cfg.Mode == ModeFallback:
		return sink.Fallback(sinks, sink.WithLogger(s.logger)), nil
	default:
		return sink.Multi(sinks...), nil
	}
}

func sinkName(i int, sc *SinkConfig) string {
	return fmt.Sprintf("%s-%d", sc.Type, i)
}

func (s *System) buildSink(ctx context.Context, sc *SinkConfig, o *setupOptions) (sink.Sink, error) {
	codec, err := sink.NewCodec(sc.Codec)
	if err != nil {
		return nil, err
	}
	sinkOpts := []sink.Option{
		sink.WithCodec(codec),
		sink.WithLogger(s.logger),
		sink.WithMaxLen(sc.MaxLen),
		sink.WithTableName(sc.Table),
	}
	dialOpts := []connector.Option{connector.WithLogger(s.logger), connector.WithMeter(s.meter)}

	switch sc.Type {
	case SinkStderr:
		return sink.Stderr(), nil
	case SinkStdout:
		return sink.Stdout(), nil
	case SinkFile:
		return sink.NewFile(sc.Path)
	case SinkSlog:
		return sink.NewSlog(s.logger.WithNamespace("record")), nil

	case SinkNATS:
		conn := o.nats
		if conn == nil {
			conn, err = connector.DialNATS(ctx, sc.NATS, dialOpts...)
			if err != nil {
				return nil, err
			}
			s.own(func(context.Context) error { return conn.Drain() })
		}
		return sink.NewNATS(conn, sc.Subject, sinkOpts...)

	case SinkRedis:
		client := o.redis
		if client == nil {
			rdb, err := connector.DialRedis(ctx, sc.Redis, dialOpts...)
			if err != nil {
				return nil, err
			}
			s.own(func(context.Context) error { return rdb.Close() })
			if err := sink.InstrumentRedis(rdb); err != nil {
				return nil, err
			}
			client = rdb
		}
		return sink.NewRedisStream(client, sc.Stream, sinkOpts...)

	case SinkKafka:
		client := o.kafka
		if client == nil {
			client, err = connector.DialKafka(ctx, sc.Kafka, dialOpts...)
			if err != nil {
				return nil, err
			}
			s.own(func(context.Context) error {
				client.Close()
				return nil
			})
		}
		return sink.NewKafka(client, sc.Topic, sinkOpts...)

	case SinkGORM:
		db := o.db
		if db == nil {
			db, err = connector.OpenDB(ctx, sc.DB, dialOpts...)
			if err != nil {
				return nil, err
			}
			s.own(func(context.Context) error { return connector.CloseDB(db) })
			if err := sink.InstrumentGORM(db); err != nil {
				return nil, err
			}
		}
		return sink.NewGORM(db, sinkOpts...)
	}
	return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "unknown sink type %q", sc.Type)
}

// own 登记由 Setup 建立、需要在 Close 时释放的资源
func (s *System) own(closer func(context.Context) error) {
	s.closers = append(s.closers, closer)
}

// New 创建一个标准会话，可直接作为 session.Factory[*session.Std] 使用
func (s *System) New() *session.Std {
	return s.Factory.New()
}

// Provider 以 Session 接口的形式提供会话
func (s *System) Provider() *session.Provider {
	return session.NewProvider(session.Dynamic[*session.Std](s.Factory.New))
}

// Logger 返回内部日志记录器
func (s *System) Logger() clog.Logger {
	return s.logger
}

// Meter 返回指标实例
func (s *System) Meter() metrics.Meter {
	return s.meter
}

// Close 先关闭 Sink，再按建立的逆序释放连接、指标与追踪
func (s *System) Close(ctx context.Context) error {
	var errs []error
	if s.Factory != nil {
		errs = append(errs, s.Factory.Close())
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	s.closers = nil
	return xerrors.Combine(errs...)
}
