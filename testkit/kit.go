// Package testkit 为 logsys 各包的测试提供通用依赖。
//
// 单元测试使用进程内替身：SQLite 内存库、ManualReader、写入内存的 clog。
// 带 integration 构建标签的测试通过 testcontainers 启动真实的 NATS、Kafka、
// MySQL、Redis 容器，见 containers.go。
package testkit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"gorm.io/gorm"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/connector"
	"github.com/ceyewan/logsys/metrics"
)

// Kit 一个测试常用的依赖集合，Reader 可直接 Collect Meter 上的指标
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
	Reader *sdkmetric.ManualReader
}

func NewKit(t *testing.T) *Kit {
	meter, reader := NewManualMeter(t)
	return &Kit{Ctx: NewContext(t, 30*time.Second), Logger: NewLogger(), Meter: meter, Reader: reader}
}

// NewLogger console 格式输出到 stderr，便于 go test -v 时查看
func NewLogger() clog.Logger {
	l, err := clog.New(clog.NewDevDefaultConfig(), clog.WithNamespace("test"))
	if err != nil {
		return clog.Discard()
	}
	return l
}

// NewBufferLogger JSON 写入返回的 buffer，用于断言组件日志
func NewBufferLogger(t *testing.T) (clog.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l, err := clog.New(&clog.Config{Level: "debug", Format: "json", Output: "buffer"}, clog.WithWriter(buf))
	require.NoError(t, err)
	return l, buf
}

// NewManualMeter 手动采集的 Meter，测试结束时关闭
func NewManualMeter(t *testing.T) (metrics.Meter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	m, err := metrics.New(metrics.NewDevDefaultConfig("test"), metrics.WithReader(reader))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m, reader
}

// NewContext 测试结束或超时时取消
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 8 位随机后缀，用于区分 stream、subject、topic、表名
func NewID() string {
	return uuid.NewString()[:8]
}

// NewSQLiteDB 独立的共享缓存 SQLite 内存库，同一测试内的多个连接看到同一份数据
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := connector.OpenDB(context.Background(), &connector.DBConfig{
		Driver: "sqlite",
		DSN:    "file:" + NewID() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = connector.CloseDB(db) })
	return db
}
