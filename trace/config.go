package trace

import "github.com/ceyewan/logsys/xerrors"

// Config 链路追踪配置
type Config struct {
	// Enabled 为 false 时不导出 Span，但仍生成 TraceID 供日志与消息头关联
	Enabled     bool    `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	ServiceName string  `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	Endpoint    string  `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	Sampler     float64 `mapstructure:"sampler" json:"sampler" yaml:"sampler"`
	// Sync 为 true 时逐个同步导出，测试与短生命周期进程使用
	Sync     bool `mapstructure:"sync" json:"sync" yaml:"sync"`
	Insecure bool `mapstructure:"insecure" json:"insecure" yaml:"insecure"`
}

// DefaultConfig 本地 collector、全量采样
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1,
		Insecure:    true,
	}
}

func (c *Config) validate() error {
	switch {
	case c.ServiceName == "":
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: service_name is required")
	case c.Endpoint == "":
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: endpoint is required")
	case c.Sampler < 0 || c.Sampler > 1:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "trace: sampler %v out of [0, 1]", c.Sampler)
	}
	return nil
}
