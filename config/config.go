// Package config 加载 logsys 的配置文件，基于 viper。
//
// 来源优先级从高到低：环境变量、.env、<name>.<env> 覆盖文件、<name> 基础文件。
// <env> 取自 <PREFIX>_ENV，例如 LOGSYS_ENV=prod 时合并 config.prod.yaml。
//
//	loader, _ := config.New(&config.Config{Paths: []string{"./config"}})
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//	cfg, err := logsys.LoadConfig(loader)
//
// Watch 返回的通道在文件变更且该 key 的值确实变化时收到 Event。
package config

import (
	"context"
	"strings"
	"time"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/xerrors"
)

// ErrValidationFailed 加载结果不可用，例如没有任何配置项
var ErrValidationFailed = xerrors.New("configuration validation failed")

// IsValidationFailed 报告 err 是否源于 ErrValidationFailed
func IsValidationFailed(err error) bool { return xerrors.Is(err, ErrValidationFailed) }

// Loader 配置加载器
type Loader interface {
	Load(ctx context.Context) error
	Get(key string) any
	Unmarshal(v any) error
	UnmarshalKey(key string, v any) error
	// Watch 订阅 key 的变化，ctx 结束后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)
	Validate() error
}

// Event 一次配置变化
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string
	Timestamp time.Time
}

// Config 描述去哪里找配置
type Config struct {
	// Name 不含扩展名的文件名，默认 config
	Name string
	// Paths 搜索目录，默认 . 和 ./config
	Paths []string
	// FileType 默认 yaml
	FileType string
	// EnvPrefix 环境变量前缀，默认 LOGSYS，总是转为大写
	EnvPrefix string
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "LOGSYS"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
	return c
}

// Option 配置 New
type Option func(*loader)

// WithLogger 记录加载过程，命名空间 "config"
func WithLogger(l clog.Logger) Option {
	return func(ld *loader) {
		if l != nil {
			ld.logger = l.WithNamespace("config")
		}
	}
}

// New 创建加载器，cfg 为 nil 时全部使用默认值，cfg 本身不会被修改
func New(cfg *Config, opts ...Option) (Loader, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()
	l := newLoader(&c, clog.Discard())
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}
