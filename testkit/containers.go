package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"
	mysqlcontainer "github.com/testcontainers/testcontainers-go/modules/mysql"
	natscontainer "github.com/testcontainers/testcontainers-go/modules/nats"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/twmb/franz-go/pkg/kgo"
	"gorm.io/gorm"

	"github.com/ceyewan/logsys/connector"
)

// started 检查容器启动结果，并在测试结束时终止容器
func started(t *testing.T, c testcontainers.Container, err error) {
	t.Helper()
	require.NoError(t, err, "start container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(c) })
}

// NewNATSContainerConfig 启动 NATS 容器，返回可直接 DialNATS 的配置
func NewNATSContainerConfig(t *testing.T) *connector.NATSConfig {
	ctx := context.Background()
	c, err := natscontainer.Run(ctx, "nats:2.10-alpine")
	started(t, c, err)
	url, err := c.ConnectionString(ctx)
	require.NoError(t, err)
	return &connector.NATSConfig{Name: "logsys-test", URL: url, MaxReconnects: 10, ReconnectWait: 100 * time.Millisecond}
}

func NewNATSContainerConn(t *testing.T) *nats.Conn {
	conn, err := connector.DialNATS(context.Background(), NewNATSContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

// NewKafkaContainerConfig 启动单节点 KRaft Kafka
func NewKafkaContainerConfig(t *testing.T) *connector.KafkaConfig {
	ctx := context.Background()
	c, err := kafkacontainer.Run(ctx, "confluentinc/confluent-local:7.5.0", kafkacontainer.WithClusterID("logsys-test"))
	started(t, c, err)
	brokers, err := c.Brokers(ctx)
	require.NoError(t, err)
	return &connector.KafkaConfig{Seed: brokers, ClientID: "logsys-test"}
}

// NewKafkaContainerClient 返回生产端客户端与 broker 地址，测试用地址另建消费端
func NewKafkaContainerClient(t *testing.T) (*kgo.Client, []string) {
	cfg := NewKafkaContainerConfig(t)
	client, err := connector.DialKafka(context.Background(), cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client, cfg.Seed
}

func NewRedisContainerConfig(t *testing.T) *connector.RedisConfig {
	ctx := context.Background()
	c, err := rediscontainer.Run(ctx, "redis:7-alpine")
	started(t, c, err)
	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	return &connector.RedisConfig{Addr: endpoint}
}

func NewRedisContainerClient(t *testing.T) *redis.Client {
	client, err := connector.DialRedis(context.Background(), NewRedisContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// NewMySQLContainerConfig 启动 MySQL 8，DSN 带 parseTime
func NewMySQLContainerConfig(t *testing.T) *connector.DBConfig {
	ctx := context.Background()
	c, err := mysqlcontainer.Run(ctx, "mysql:8.0",
		mysqlcontainer.WithDatabase("logsys"),
		mysqlcontainer.WithUsername("logsys"),
		mysqlcontainer.WithPassword("logsys"),
	)
	started(t, c, err)
	dsn, err := c.ConnectionString(ctx, "parseTime=true", "charset=utf8mb4")
	require.NoError(t, err)
	return &connector.DBConfig{Driver: "mysql", DSN: dsn, MaxIdleConns: 2, MaxOpenConns: 5}
}

func NewMySQLContainerDB(t *testing.T) *gorm.DB {
	db, err := connector.OpenDB(context.Background(), NewMySQLContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = connector.CloseDB(db) })
	return db
}
