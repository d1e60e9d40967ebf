package metrics

import "github.com/ceyewan/logsys/xerrors"

// Config 指标系统的配置
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "order-api"
//	  version: "v1.2.3"
//	  port: 9090
//	  path: "/metrics"
//	  runtime_metrics: true
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// ServiceName 作为 Resource 的 service.name
	ServiceName string `mapstructure:"service_name" json:"service_name" yaml:"service_name"`

	// Version 作为 Resource 的 service.version
	Version string `mapstructure:"version" json:"version" yaml:"version"`

	// Port 大于 0 时启动 promhttp 服务器
	Port int `mapstructure:"port" json:"port" yaml:"port"`

	// Path 指标路径，必须以 "/" 开头
	Path string `mapstructure:"path" json:"path" yaml:"path"`

	// RuntimeMetrics 是否采集 Go 运行时指标（GC、goroutine、内存）
	RuntimeMetrics bool `mapstructure:"runtime_metrics" json:"runtime_metrics" yaml:"runtime_metrics"`
}

// NewDevDefaultConfig 开发环境默认配置：启用，但不启动 HTTP 服务器
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
	}
}

// NewProdDefaultConfig 生产环境默认配置：在 9090 端口暴露 /metrics
func NewProdDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:        true,
		ServiceName:    serviceName,
		Port:           9090,
		Path:           "/metrics",
		RuntimeMetrics: true,
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "invalid metrics port %d", c.Port)
	}
	if c.Port > 0 && (c.Path == "" || c.Path[0] != '/') {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "metrics path must start with '/', got %q", c.Path)
	}
	return nil
}
