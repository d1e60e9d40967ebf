package clog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ceyewan/logsys/xerrors"
)

// Config 组件日志配置
type Config struct {
	// Level: debug | info | warn | error
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	// Format: json | console
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	// Output: stdout | stderr | buffer | 文件路径，buffer 需配合 WithWriter
	Output    string `json:"output" yaml:"output" mapstructure:"output"`
	AddSource bool   `json:"addSource" yaml:"addSource" mapstructure:"add_source"`
	// SourceRoot 非空时 caller 显示为相对该目录的路径
	SourceRoot string `json:"sourceRoot" yaml:"sourceRoot" mapstructure:"source_root"`
}

// NewDevDefaultConfig debug 级别的 console 输出到 stderr，带调用位置
func NewDevDefaultConfig() *Config {
	return &Config{Level: "debug", Format: "console", Output: "stderr", AddSource: true}
}

// NewProdDefaultConfig info 级别的 JSON 输出到 stdout
func NewProdDefaultConfig() *Config {
	return &Config{Level: "info", Format: "json", Output: "stdout"}
}

// build 补齐默认值并构造底层 handler
func (c *Config) build(buffer io.Writer) (*core, error) {
	level, err := ParseLevel(orDefault(c.Level, "info"))
	if err != nil {
		return nil, err
	}

	w, err := c.writer(buffer)
	if err != nil {
		return nil, err
	}

	lv := new(slog.LevelVar)
	lv.Set(slog.Level(level))
	opts := &slog.HandlerOptions{
		AddSource:   c.AddSource,
		Level:       lv,
		ReplaceAttr: c.replaceAttr,
	}

	switch strings.ToLower(orDefault(c.Format, "console")) {
	case "json":
		return &core{Handler: slog.NewJSONHandler(w, opts), level: lv}, nil
	case "console":
		return &core{Handler: slog.NewTextHandler(w, opts), level: lv}, nil
	default:
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "format %q must be json or console", c.Format)
	}
}

func (c *Config) writer(buffer io.Writer) (io.Writer, error) {
	switch out := orDefault(c.Output, "stderr"); strings.ToLower(out) {
	case "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "buffer":
		if buffer == nil {
			return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "buffer output requires WithWriter")
		}
		return buffer, nil
	default:
		f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, xerrors.Wrapf(err, "open %s", out)
		}
		return f, nil
	}
}

// replaceAttr 级别大写、毫秒时间戳、source 压缩为 caller="file:line"
func (c *Config) replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		if l, ok := a.Value.Any().(slog.Level); ok {
			return slog.String(a.Key, strings.ToUpper(Level(l).String()))
		}
	case slog.TimeKey:
		if a.Value.Kind() == slog.KindTime {
			return slog.String(a.Key, a.Value.Time().Format("2006-01-02T15:04:05.000Z07:00"))
		}
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok {
			return slog.String("caller", fmt.Sprintf("%s:%d", c.shortPath(src.File), src.Line))
		}
	}
	return a
}

func (c *Config) shortPath(file string) string {
	if c.SourceRoot != "" {
		if rel, err := filepath.Rel(c.SourceRoot, file); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	if i := strings.LastIndex(file, "logsys/"); i >= 0 {
		return file[i:]
	}
	return filepath.Base(file)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
