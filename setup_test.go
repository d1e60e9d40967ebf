package logsys

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ceyewan/logsys/config"
	"github.com/ceyewan/logsys/connector"
	"github.com/ceyewan/logsys/metrics"
	"github.com/ceyewan/logsys/optional"
	"github.com/ceyewan/logsys/session"
	"github.com/ceyewan/logsys/sink"
	"github.com/ceyewan/logsys/xerrors"
)

func setup(t *testing.T, cfg *Config, opts ...Option) *System {
	t.Helper()
	sys, err := Setup(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sys.Close(context.Background()) })
	return sys
}

func TestSetupDefaults(t *testing.T) {
	sys := setup(t, nil)

	require.NotNil(t, sys.Factory)
	assert.Len(t, sys.Instance, 36, "instance defaults to a uuid")
	assert.NotNil(t, sys.Logger())
	assert.NotNil(t, sys.Meter())

	s := sys.New()
	assert.Equal(t, session.NoBody, s.State())
}

func TestSetupValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"negative timeout", &Config{EmitTimeout: -time.Second}},
		{"unknown mode", &Config{Mode: "random"}},
		{"unknown sink", &Config{Sinks: []SinkConfig{{Type: "carrier-pigeon"}}}},
		{"file without path", &Config{Sinks: []SinkConfig{{Type: SinkFile}}}},
		{"nats without subject", &Config{Sinks: []SinkConfig{{Type: SinkNATS}}}},
		{"redis without stream", &Config{Sinks: []SinkConfig{{Type: SinkRedis}}}},
		{"kafka without topic", &Config{Sinks: []SinkConfig{{Type: SinkKafka}}}},
		{"bad codec", &Config{Sinks: []SinkConfig{{Type: SinkRedis, Stream: "s", Codec: "xml"}}}},
		{"negative rate", &Config{Sinks: []SinkConfig{{Type: SinkStderr, RateLimit: -1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Setup(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput), err.Error())
		})
	}
}

func TestSetupExtraSinkReceivesRecords(t *testing.T) {
	mem := sink.NewMemory()
	sys := setup(t, &Config{Instance: "api-1"}, WithExtraSink(mem))

	v, err := LogBody(sys.New,
		func(s *session.Std, n optional.Value[int]) { s.Printf("loaded %d", n.OrElse(-1)) },
		func() (int, error) { return 10, nil },
	)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	rec, ok := mem.Last()
	require.True(t, ok)
	assert.Equal(t, "api-1", rec.Instance)
	assert.Equal(t, "loaded 10", rec.Message)
	assert.True(t, rec.HasBody)
}

func TestSetupFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	sys, err := Setup(context.Background(), &Config{Sinks: []SinkConfig{{Type: SinkFile, Path: path}}})
	require.NoError(t, err)

	Log(sys.New, func(s *session.Std) { s.Print("to file") })
	require.NoError(t, sys.Close(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(data)), "to file"))
}

func TestSetupRedisInjected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sys := setup(t, &Config{Sinks: []SinkConfig{{Type: SinkRedis, Stream: "logs", MaxLen: 100}}},
		WithRedis(client))

	CatchVoid(sys.New, func(s *session.Std, ok bool) { s.Print("cache warm") },
		func() error { return errors.New("timeout") })

	entries, err := client.XRange(context.Background(), "logs", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var rec sink.Record
	require.NoError(t, sink.JSONCodec{}.Unmarshal([]byte(entries[0].Values["payload"].(string)), &rec))
	assert.True(t, rec.Failed)
	assert.True(t, rec.Caught)
	assert.Contains(t, rec.Text, "(exception caught: [*errors.errorString] timeout)")

	// 注入的客户端不随 System 关闭
	require.NoError(t, sys.Close(context.Background()))
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestSetupRedisDialled(t *testing.T) {
	mr := miniredis.RunT(t)
	sys, err := Setup(context.Background(), &Config{Sinks: []SinkConfig{{
		Type:   SinkRedis,
		Stream: "logs",
		Codec:  "msgpack",
		Redis:  &connector.RedisConfig{Addr: mr.Addr()},
	}}})
	require.NoError(t, err)

	Log(sys.New, func(s *session.Std) { s.Print("dialled") })
	require.NoError(t, sys.Close(context.Background()))

	entries, err := redis.NewClient(&redis.Options{Addr: mr.Addr()}).
		XRange(context.Background(), "logs", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "application/msgpack", entries[0].Values["content_type"])
}

func TestSetupRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Setup(context.Background(), &Config{Sinks: []SinkConfig{
		{Type: SinkStderr},
		{Type: SinkRedis, Stream: "logs", Redis: &connector.RedisConfig{Addr: addr, DialTimeout: 100 * time.Millisecond}},
	}})
	require.Error(t, err)
	assert.True(t, connector.IsConnectionError(err))
	assert.Contains(t, err.Error(), "sinks[1] redis")
}

func TestSetupGORMDialled(t *testing.T) {
	dsn := "file:setup_gorm?mode=memory&cache=shared"
	sys := setup(t, &Config{Sinks: []SinkConfig{{
		Type:  SinkGORM,
		Table: "app_logs",
		DB:    &connector.DBConfig{Driver: "sqlite", DSN: dsn},
	}}})

	// 保持一个连接，避免共享内存库在 Close 之前被释放
	db, err := connector.OpenDB(context.Background(), &connector.DBConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = connector.CloseDB(db) })

	Log(sys.New, func(s *session.Std) { s.Print("persisted") })

	var messages []string
	require.NoError(t, db.Table("app_logs").Pluck("message", &messages).Error)
	assert.Equal(t, []string{"persisted"}, messages)
}

func TestSetupFallbackMode(t *testing.T) {
	failing := sink.Func(func(context.Context, *sink.Record) error { return errors.New("down") })
	mem := sink.NewMemory()

	sys := setup(t, &Config{Mode: ModeFallback}, WithExtraSink(failing), WithExtraSink(mem))
	Log(sys.New, func(s *session.Std) { s.Print("via fallback") })

	assert.Equal(t, 1, mem.Len())
}

func TestSetupSinkFailureHandler(t *testing.T) {
	failing := sink.Func(func(context.Context, *sink.Record) error { return errors.New("down") })
	var got error
	sys := setup(t, nil, WithExtraSink(failing),
		WithSinkFailure(func(err error, _ *sink.Record) { got = err }))

	Log(sys.New, func(s *session.Std) { s.Print("lost") })
	require.Error(t, got)
	assert.Contains(t, got.Error(), "down")
}

func TestSetupBreakerAndRateLimit(t *testing.T) {
	mem := sink.NewMemory()
	var failures []error
	sys := setup(t, &Config{
		Mode:        ModeFallback,
		EmitTimeout: 20 * time.Millisecond,
		Sinks: []SinkConfig{{
			Type:      SinkSlog,
			Breaker:   &sink.BreakerConfig{MaxRequests: 1, MinimumRequests: 5, FailureRatio: 0.5, Timeout: time.Second},
			RateLimit: 1,
			Burst:     1,
		}},
	}, WithExtraSink(mem), WithSinkFailure(func(err error, _ *sink.Record) { failures = append(failures, err) }))

	for range 3 {
		Log(sys.New, func(s *session.Std) { s.Print("limited") })
	}
	assert.Empty(t, failures)
	assert.Equal(t, 2, mem.Len(), "records over the limit go to the next sink")
}

func TestSetupRejectsUnprotectedGuards(t *testing.T) {
	limited := SinkConfig{Type: SinkStdout, RateLimit: 1}
	broken := SinkConfig{Type: SinkStdout, Breaker: &sink.BreakerConfig{}}
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"rate limit in mode all", &Config{Sinks: []SinkConfig{limited, {Type: SinkStderr}}}},
		{"breaker in mode all", &Config{Sinks: []SinkConfig{broken, {Type: SinkStderr}}}},
		{"rate limit on last sink", &Config{Mode: ModeFallback, Sinks: []SinkConfig{{Type: SinkStderr}, limited}}},
		{"breaker on only sink", &Config{Mode: ModeFallback, Sinks: []SinkConfig{broken}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Setup(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
		})
	}

	sys := setup(t, &Config{Mode: ModeFallback, Sinks: []SinkConfig{limited}}, WithExtraSink(sink.Discard()))
	assert.NotNil(t, sys.Factory)
}

func TestSetupMetricsHook(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter, err := metrics.New(metrics.NewDevDefaultConfig("setup-test"), metrics.WithReader(reader))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	sys := setup(t, &Config{Instance: "api-1"}, WithMeter(meter), WithExtraSink(sink.Discard()))

	Log(sys.New, func(s *session.Std) { s.Print("a") })
	_ = CatchVoid(sys.New, func(*session.Std, bool) {}, func() error { return errors.New("x") })

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	outcomes := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != metrics.MetricSessionsTotal {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				outcome, _ := dp.Attributes.Value(metrics.LabelOutcome)
				instance, _ := dp.Attributes.Value(metrics.LabelInstance)
				assert.Equal(t, "api-1", instance.AsString())
				outcomes[outcome.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{metrics.OutcomeNoBody: 1, metrics.OutcomeCaught: 1}, outcomes)

	// 注入的 Meter 不随 System 关闭
	require.NoError(t, sys.Close(context.Background()))
	require.NoError(t, reader.Collect(context.Background(), &rm))
}

func TestSystemProvider(t *testing.T) {
	mem := sink.NewMemory()
	sys := setup(t, nil, WithExtraSink(mem))

	p := sys.Provider()
	Log(p.New, func(s session.Session) { _, _ = s.Write([]byte("dynamic")) })

	rec, ok := mem.Last()
	require.True(t, ok)
	assert.Equal(t, "dynamic", rec.Message)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	yaml := `
logsys:
  instance: api-7
  emit_timeout: 1500ms
  mode: fallback
  sinks:
    - type: redis
      stream: logs
      codec: msgpack
      max_len: 1000
      redis:
        addr: 127.0.0.1:6379
        db: 2
      breaker:
        max_requests: 2
        failure_ratio: 0.4
      rate_limit: 50
      burst: 5
    - type: stderr
  metrics:
    enabled: true
    service_name: api
  trace:
    enabled: false
    service_name: api
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	loader, err := config.New(&config.Config{Paths: []string{dir}, EnvPrefix: "LOGSYSLOADTEST"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	cfg, err := LoadConfig(loader)
	require.NoError(t, err)

	assert.Equal(t, "api-7", cfg.Instance)
	assert.Equal(t, 1500*time.Millisecond, cfg.EmitTimeout)
	assert.Equal(t, ModeFallback, cfg.Mode)
	require.Len(t, cfg.Sinks, 2)

	rs := cfg.Sinks[0]
	assert.Equal(t, SinkRedis, rs.Type)
	assert.Equal(t, "msgpack", rs.Codec)
	assert.Equal(t, int64(1000), rs.MaxLen)
	require.NotNil(t, rs.Redis)
	assert.Equal(t, 2, rs.Redis.DB)
	require.NotNil(t, rs.Breaker)
	assert.Equal(t, uint32(2), rs.Breaker.MaxRequests)
	assert.InDelta(t, 0.4, rs.Breaker.FailureRatio, 1e-9)
	assert.InDelta(t, 50.0, rs.RateLimit, 1e-9)

	require.NotNil(t, cfg.Metrics)
	assert.True(t, cfg.Metrics.Enabled)
	require.NotNil(t, cfg.Trace)
	assert.False(t, cfg.Trace.Enabled)

	_, err = LoadConfig(nil)
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
}
