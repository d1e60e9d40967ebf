package logsys

import (
	"time"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/config"
	"github.com/ceyewan/logsys/connector"
	"github.com/ceyewan/logsys/metrics"
	"github.com/ceyewan/logsys/sink"
	"github.com/ceyewan/logsys/trace"
	"github.com/ceyewan/logsys/xerrors"
)

// ConfigKey 配置文件中 logsys 配置所在的键
const ConfigKey = "logsys"

// 多个 Sink 的组合方式
const (
	// ModeAll 每条记录发送到所有 Sink
	ModeAll = "all"
	// ModeFallback 按顺序尝试，第一个成功即停止
	ModeFallback = "fallback"
)

// Sink 类型
const (
	SinkStderr = "stderr"
	SinkStdout = "stdout"
	SinkFile   = "file"
	SinkSlog   = "slog"
	SinkNATS   = "nats"
	SinkRedis  = "redis"
	SinkKafka  = "kafka"
	SinkGORM   = "gorm"
)

// Config 日志系统配置
//
// 典型配置示例（YAML）：
//
//	logsys:
//	  instance: order-api-1
//	  emit_timeout: 2s
//	  mode: fallback
//	  sinks:
//	    - type: redis
//	      stream: logs
//	      redis: { addr: 127.0.0.1:6379 }
//	      breaker: { failure_ratio: 0.5 }
//	    - type: stderr
//	  metrics: { enabled: true, service_name: order-api, port: 9090, path: /metrics }
//	  trace: { enabled: false, service_name: order-api }
type Config struct {
	// Instance 写入每条记录的实例标识，为空时生成 UUID
	Instance string `mapstructure:"instance" json:"instance" yaml:"instance"`

	// EmitTimeout 单次输出的超时时间，0 表示不限制
	EmitTimeout time.Duration `mapstructure:"emit_timeout" json:"emit_timeout" yaml:"emit_timeout"`

	// Mode: all | fallback (默认 all)
	Mode string `mapstructure:"mode" json:"mode" yaml:"mode"`

	// Sinks 为空时输出到 stderr
	Sinks []SinkConfig `mapstructure:"sinks" json:"sinks" yaml:"sinks"`

	Log     *clog.Config    `mapstructure:"log" json:"log" yaml:"log"`
	Metrics *metrics.Config `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
	Trace   *trace.Config   `mapstructure:"trace" json:"trace" yaml:"trace"`
}

// SinkConfig 单个输出目标的配置
type SinkConfig struct {
	Type string `mapstructure:"type" json:"type" yaml:"type"`

	// Path file 类型的文件路径
	Path string `mapstructure:"path" json:"path" yaml:"path"`

	Subject string `mapstructure:"subject" json:"subject" yaml:"subject"` // nats
	Stream  string `mapstructure:"stream" json:"stream" yaml:"stream"`    // redis
	Topic   string `mapstructure:"topic" json:"topic" yaml:"topic"`       // kafka
	Table   string `mapstructure:"table" json:"table" yaml:"table"`       // gorm

	// Codec: json | msgpack，用于 nats、redis、kafka
	Codec string `mapstructure:"codec" json:"codec" yaml:"codec"`
	// MaxLen Redis Stream 的近似最大长度
	MaxLen int64 `mapstructure:"max_len" json:"max_len" yaml:"max_len"`

	// 未通过 Option 注入连接时，按以下配置建立连接，Close 时释放
	NATS  *connector.NATSConfig  `mapstructure:"nats" json:"nats" yaml:"nats"`
	Redis *connector.RedisConfig `mapstructure:"redis" json:"redis" yaml:"redis"`
	Kafka *connector.KafkaConfig `mapstructure:"kafka" json:"kafka" yaml:"kafka"`
	DB    *connector.DBConfig    `mapstructure:"db" json:"db" yaml:"db"`

	// Breaker 和 RateLimit 只能用于 fallback 模式中其后还有 Sink 的位置，
	// 被拒绝的记录交给下一个 Sink。
	//
	// Breaker 非空时包裹熔断器
	Breaker *sink.BreakerConfig `mapstructure:"breaker" json:"breaker" yaml:"breaker"`

	// RateLimit 每秒允许的记录数，0 表示不限流
	RateLimit float64 `mapstructure:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	Burst     int     `mapstructure:"burst" json:"burst" yaml:"burst"`
}

// checkGuards 限流和熔断只在 fallback 模式下生效，且其后必须还有可接替的 Sink
//
// extra 为通过 Option 追加的 Sink 数量，它们排在配置的 Sink 之后。
func (c *Config) checkGuards(extra int) error {
	total := len(c.Sinks) + extra
	for i := range c.Sinks {
		sc := &c.Sinks[i]
		if sc.RateLimit == 0 && sc.Breaker == nil {
			continue
		}
		if c.Mode != ModeFallback {
			return xerrors.Wrapf(xerrors.ErrInvalidInput,
				"sinks[%d]: rate_limit and breaker require mode %q", i, ModeFallback)
		}
		if i == total-1 {
			return xerrors.Wrapf(xerrors.ErrInvalidInput,
				"sinks[%d]: rate_limit and breaker need a later sink to fall back to", i)
		}
	}
	return nil
}

// LoadConfig 从已加载的 Loader 中读取 logsys 配置
func LoadConfig(loader config.Loader) (*Config, error) {
	if loader == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "config loader is required")
	}
	cfg := &Config{}
	if err := loader.UnmarshalKey(ConfigKey, cfg); err != nil {
		return nil, xerrors.Wrapf(err, "unmarshal %s", ConfigKey)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.EmitTimeout < 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "emit_timeout must not be negative, got %v", c.EmitTimeout)
	}
	switch c.Mode {
	case "", ModeAll, ModeFallback:
	default:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "mode must be %q or %q, got %q", ModeAll, ModeFallback, c.Mode)
	}
	for i := range c.Sinks {
		if err := c.Sinks[i].validate(); err != nil {
			return xerrors.Wrapf(err, "sinks[%d]", i)
		}
	}
	return nil
}

func (s *SinkConfig) validate() error {
	var missing string
	switch s.Type {
	case SinkStderr, SinkStdout, SinkSlog:
	case SinkFile:
		if s.Path == "" {
			missing = "path"
		}
	case SinkNATS:
		if s.Subject == "" {
			missing = "subject"
		}
	case SinkRedis:
		if s.Stream == "" {
			missing = "stream"
		}
	case SinkKafka:
		if s.Topic == "" {
			missing = "topic"
		}
	case SinkGORM:
	default:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "unknown sink type %q", s.Type)
	}
	if missing != "" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "%s sink requires %s", s.Type, missing)
	}
	if s.RateLimit < 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "rate_limit must not be negative, got %v", s.RateLimit)
	}
	if _, err := sink.NewCodec(s.Codec); err != nil {
		return err
	}
	return nil
}
