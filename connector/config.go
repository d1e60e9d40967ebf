package connector

import (
	"time"

	"github.com/ceyewan/logsys/xerrors"
)

// NATSConfig NATS 连接配置
type NATSConfig struct {
	URL           string        `mapstructure:"url"`            // [必填] 例如 nats://127.0.0.1:4222
	Name          string        `mapstructure:"name"`           // 客户端名称 (默认: "logsys")
	Username      string        `mapstructure:"username"`       // 用户名
	Password      string        `mapstructure:"password"`       // 密码
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"` // 重连间隔 (默认: 2s)
	MaxReconnects int           `mapstructure:"max_reconnects"` // 最大重连次数 (默认: 60)
	Timeout       time.Duration `mapstructure:"timeout"`        // 连接超时 (默认: 5s)
}

func (c *NATSConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "logsys"
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 60
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
}

func (c *NATSConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "nats config is required")
	}
	c.setDefaults()
	if c.URL == "" {
		return xerrors.Wrap(ErrConfig, "nats url is required")
	}
	return nil
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`          // [必填] host:port
	Password     string        `mapstructure:"password"`      // 密码
	DB           int           `mapstructure:"db"`            // 数据库编号
	PoolSize     int           `mapstructure:"pool_size"`     // 连接池大小 (默认: 10)
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`  // (默认: 5s)
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // (默认: 3s)
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // (默认: 3s)
}

func (c *RedisConfig) setDefaults() {
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "redis config is required")
	}
	c.setDefaults()
	if c.Addr == "" {
		return xerrors.Wrap(ErrConfig, "redis addr is required")
	}
	if c.DB < 0 {
		return xerrors.Wrapf(ErrConfig, "invalid redis db %d", c.DB)
	}
	return nil
}

// KafkaConfig Kafka 连接配置
type KafkaConfig struct {
	Seed     []string `mapstructure:"seed"`      // [必填] broker 地址列表
	ClientID string   `mapstructure:"client_id"` // (默认: "logsys")
}

func (c *KafkaConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "kafka config is required")
	}
	if c.ClientID == "" {
		c.ClientID = "logsys"
	}
	if len(c.Seed) == 0 {
		return xerrors.Wrap(ErrConfig, "kafka seed brokers are required")
	}
	return nil
}

// DBConfig 关系型数据库连接配置
type DBConfig struct {
	Driver       string        `mapstructure:"driver"`         // mysql | sqlite (默认: sqlite)
	DSN          string        `mapstructure:"dsn"`            // [必填] 驱动对应的 DSN 或 SQLite 文件路径
	MaxIdleConns int           `mapstructure:"max_idle_conns"` // (默认: 10)
	MaxOpenConns int           `mapstructure:"max_open_conns"` // (默认: 100)
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`   // (默认: 1h)
	// SlowThreshold 超过该耗时的 SQL 以 Warn 级别记录 (默认: 200ms)
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

func (c *DBConfig) setDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.MaxLifetime == 0 {
		c.MaxLifetime = time.Hour
	}
	if c.SlowThreshold == 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
}

func (c *DBConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "db config is required")
	}
	c.setDefaults()
	if c.Driver != "mysql" && c.Driver != "sqlite" {
		return xerrors.Wrapf(ErrConfig, "unsupported db driver %q", c.Driver)
	}
	if c.DSN == "" {
		return xerrors.Wrap(ErrConfig, "db dsn is required")
	}
	return nil
}
