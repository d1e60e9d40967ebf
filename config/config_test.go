package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/xerrors"
)

const baseYAML = `
logsys:
  instance: api-1
  emit_timeout: 2s
  sinks:
    - type: stderr
    - type: redis
      addr: 127.0.0.1:6379
      stream: logs
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestLoader(t *testing.T, dir string, opts ...Option) Loader {
	t.Helper()
	l, err := New(&Config{Name: "config", Paths: []string{dir}, EnvPrefix: "LOGSYSTEST"}, opts...)
	require.NoError(t, err)
	return l
}

func TestNewDefaults(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)

	impl := l.(*loader)
	assert.Equal(t, "config", impl.cfg.Name)
	assert.Equal(t, []string{".", "./config"}, impl.cfg.Paths)
	assert.Equal(t, "yaml", impl.cfg.FileType)
	assert.Equal(t, "LOGSYS", impl.cfg.EnvPrefix)
}

func TestNewDoesNotMutateInput(t *testing.T) {
	cfg := &Config{EnvPrefix: "app"}
	_, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.EnvPrefix)
	assert.Empty(t, cfg.Name)
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, "api-1", l.Get("logsys.instance"))

	var out struct {
		Instance    string        `mapstructure:"instance"`
		EmitTimeout time.Duration `mapstructure:"emit_timeout"`
		Sinks       []struct {
			Type   string `mapstructure:"type"`
			Addr   string `mapstructure:"addr"`
			Stream string `mapstructure:"stream"`
		} `mapstructure:"sinks"`
	}
	require.NoError(t, l.UnmarshalKey("logsys", &out))
	assert.Equal(t, "api-1", out.Instance)
	assert.Equal(t, 2*time.Second, out.EmitTimeout)
	require.Len(t, out.Sinks, 2)
	assert.Equal(t, "redis", out.Sinks[1].Type)
	assert.Equal(t, "logs", out.Sinks[1].Stream)

	var whole map[string]any
	require.NoError(t, l.Unmarshal(&whole))
	assert.Contains(t, whole, "logsys")
}

func TestLoaderMissingFile(t *testing.T) {
	var buf bytes.Buffer
	logger, err := clog.New(&clog.Config{Level: "debug", Format: "json", Output: "buffer"}, clog.WithWriter(&buf))
	require.NoError(t, err)

	l := newTestLoader(t, t.TempDir(), WithLogger(logger))
	err = l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsValidationFailed(err))
	assert.Contains(t, buf.String(), "no configuration file found")
}

func TestLoaderMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "logsys: [unclosed")

	err := newTestLoader(t, dir).Load(context.Background())
	require.Error(t, err)
	assert.False(t, IsValidationFailed(err))
}

func TestLoaderEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)
	t.Setenv("LOGSYSTEST_LOGSYS_INSTANCE", "from-env")

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, "from-env", l.Get("logsys.instance"))
}

func TestLoaderEnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)
	writeFile(t, dir, "config.prod.yaml", "logsys:\n  instance: prod-1\n")
	t.Setenv("LOGSYSTEST_ENV", "prod")

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, "prod-1", l.Get("logsys.instance"))
	// 未覆盖的键保持基础配置
	assert.Equal(t, "2s", l.Get("logsys.emit_timeout"))
}

func TestLoaderEnvironmentOverlayMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)
	t.Setenv("LOGSYSTEST_ENV", "staging")

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, "api-1", l.Get("logsys.instance"))
}

func TestLoaderDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)
	writeFile(t, dir, ".env", "LOGSYSTEST_LOGSYS_INSTANCE=from-dotenv\n")
	// godotenv 写入的是进程环境变量，结束后清理
	t.Cleanup(func() { os.Unsetenv("LOGSYSTEST_LOGSYS_INSTANCE") })

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, "from-dotenv", l.Get("logsys.instance"))
}

func TestLoaderValidate(t *testing.T) {
	l := newTestLoader(t, t.TempDir())
	err := l.Validate()
	require.Error(t, err)
	assert.True(t, IsValidationFailed(err))
}

func TestLoaderWatchRequiresKey(t *testing.T) {
	l := newTestLoader(t, t.TempDir())
	_, err := l.Watch(context.Background(), "")
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
}

func TestLoaderWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", baseYAML)

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := l.Watch(ctx, "logsys.instance")
	require.NoError(t, err)

	// fsnotify 需要一点时间建立监听
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("logsys:\n  instance: api-2\n"), 0o644))

	select {
	case ev := <-ch:
		assert.Equal(t, "logsys.instance", ev.Key)
		assert.Equal(t, "api-2", ev.Value)
		assert.Equal(t, "api-1", ev.OldValue)
		assert.Equal(t, "file", ev.Source)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("no change event received")
	}
}

func TestLoaderWatchCancel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := l.Watch(ctx, "logsys.instance")
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	assert.Zero(t, l.(*loader).subs.count("logsys.instance"))
}

func TestLoaderMultipleWatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()

	_, err := l.Watch(ctx1, "logsys.instance")
	require.NoError(t, err)
	ch2, err := l.Watch(ctx2, "logsys.instance")
	require.NoError(t, err)

	impl := l.(*loader)
	assert.Equal(t, 2, impl.subs.count("logsys.instance"))

	cancel1()
	assert.Eventually(t, func() bool {
		return impl.subs.count("logsys.instance") == 1
	}, time.Second, 10*time.Millisecond)

	// 剩余的监听仍然可用
	impl.v.Set("logsys.instance", "changed")
	impl.onChange(fsnotify.Event{Name: "config.yaml", Op: fsnotify.Write})
	select {
	case ev := <-ch2:
		assert.Equal(t, "changed", ev.Value)
	case <-time.After(time.Second):
		t.Fatal("remaining watcher not notified")
	}
}

func TestSubscriptions_PublishOnlyChanges(t *testing.T) {
	s := newSubscriptions()
	values := map[string]any{"logsys.mode": "all"}
	get := func(k string) any { return values[k] }

	ch := s.add("logsys.mode", "all")
	s.publish(get, "file", clog.Discard())
	assert.Empty(t, ch)

	values["logsys.mode"] = "fallback"
	for i := 0; i < watchBuffer+3; i++ {
		s.publish(get, "file", clog.Discard())
		values["logsys.mode"] = i
	}
	assert.Len(t, ch, watchBuffer)

	ev := <-ch
	assert.Equal(t, "all", ev.OldValue)
	assert.Equal(t, "fallback", ev.Value)
	assert.Equal(t, "file", ev.Source)

	s.remove("logsys.mode", ch)
	s.remove("logsys.mode", ch)
	assert.Zero(t, s.count("logsys.mode"))
	drained := 0
	for range ch {
		drained++
	}
	assert.Equal(t, watchBuffer-1, drained)
}
