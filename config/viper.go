package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/xerrors"
)

type loader struct {
	v      *viper.Viper
	cfg    *Config
	logger clog.Logger
	subs   *subscriptions
}

func newLoader(cfg *Config, logger clog.Logger) *loader {
	return &loader{v: viper.New(), cfg: cfg, logger: logger, subs: newSubscriptions()}
}

// Load 依次读取 .env、基础文件、环境覆盖文件，然后开始监听文件变化
//
// 环境变量始终优先：logsys.emit_timeout 对应 LOGSYS_LOGSYS_EMIT_TIMEOUT。
func (l *loader) Load(ctx context.Context) error {
	l.v.SetConfigName(l.cfg.Name)
	l.v.SetConfigType(l.cfg.FileType)
	for _, p := range l.cfg.Paths {
		l.v.AddConfigPath(p)
	}
	l.v.SetEnvPrefix(l.cfg.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if n := l.loadDotEnv(); n == 0 {
		l.logger.DebugContext(ctx, "no .env file loaded")
	}

	err := l.v.ReadInConfig()
	switch {
	case isNotFound(err):
		l.logger.WarnContext(ctx, "no configuration file found",
			clog.String("name", l.cfg.Name), clog.Any("paths", l.cfg.Paths))
	case err != nil:
		return xerrors.Wrapf(err, "read config file %s", l.cfg.Name)
	}

	if err := l.mergeOverlay(ctx); err != nil {
		return err
	}
	if err := l.Validate(); err != nil {
		return err
	}

	l.subs.snapshot(l.v.Get)
	l.v.OnConfigChange(l.onChange)
	l.v.WatchConfig()
	return nil
}

func (l *loader) onChange(e fsnotify.Event) {
	if err := l.mergeOverlay(context.Background()); err != nil {
		l.logger.Error("reload overlay failed", clog.String("file", e.Name), clog.Error(err))
	}
	l.loadDotEnv()
	l.subs.publish(l.v.Get, "file", l.logger)
}

// loadDotEnv 加载 ./.env 与每个搜索路径下的 .env，返回成功加载的文件数
//
// godotenv.Load 不覆盖已存在的环境变量。
func (l *loader) loadDotEnv() int {
	files := []string{".env"}
	for _, p := range l.cfg.Paths {
		files = append(files, filepath.Join(p, ".env"))
	}
	loaded := 0
	for _, f := range files {
		if godotenv.Load(f) == nil {
			loaded++
		}
	}
	return loaded
}

// mergeOverlay 在 <PREFIX>_ENV 非空时合并 <name>.<env> 文件，文件不存在不算错误
func (l *loader) mergeOverlay(ctx context.Context) error {
	env := os.Getenv(l.cfg.EnvPrefix + "_ENV")
	if env == "" {
		return nil
	}
	overlay := l.cfg.Name + "." + env
	l.v.SetConfigName(overlay)
	defer l.v.SetConfigName(l.cfg.Name)

	err := l.v.MergeInConfig()
	switch {
	case isNotFound(err):
		l.logger.InfoContext(ctx, "no overlay for environment", clog.String("env", env))
		return nil
	case err != nil:
		return xerrors.Wrapf(err, "merge overlay %s", overlay)
	}
	l.logger.InfoContext(ctx, "merged overlay", clog.String("env", env))
	return nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

func (l *loader) Get(key string) any { return l.v.Get(key) }

func (l *loader) Unmarshal(v any) error { return l.v.Unmarshal(v) }

func (l *loader) UnmarshalKey(key string, v any) error { return l.v.UnmarshalKey(key, v) }

func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if key == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "watch key is required")
	}
	ch := l.subs.add(key, l.v.Get(key))
	go func() {
		<-ctx.Done()
		l.subs.remove(key, ch)
	}()
	return ch, nil
}

func (l *loader) Validate() error {
	if len(l.v.AllSettings()) == 0 {
		return xerrors.Wrap(ErrValidationFailed, "configuration is empty")
	}
	return nil
}
