//go:build integration

package logsys

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ceyewan/logsys/connector"
	"github.com/ceyewan/logsys/optional"
	"github.com/ceyewan/logsys/session"
	"github.com/ceyewan/logsys/sink"
	"github.com/ceyewan/logsys/testkit"
)

func TestSetupAllBrokersIntegration(t *testing.T) {
	kit := testkit.NewKit(t)

	natsCfg := testkit.NewNATSContainerConfig(t)
	mysqlCfg := testkit.NewMySQLContainerConfig(t)
	kafka, brokers := testkit.NewKafkaContainerClient(t)

	subject := "logs." + testkit.NewID()
	observer, err := connector.DialNATS(kit.Ctx, natsCfg)
	require.NoError(t, err)
	t.Cleanup(observer.Close)
	msgs := make(chan *nats.Msg, 4)
	_, err = observer.ChanSubscribe(subject, msgs)
	require.NoError(t, err)
	require.NoError(t, observer.Flush())

	table := "logs_" + testkit.NewID()
	topic := "logs-" + testkit.NewID()
	sys, err := Setup(kit.Ctx, &Config{
		Instance:    "it-1",
		EmitTimeout: 5 * time.Second,
		Sinks: []SinkConfig{
			{Type: SinkNATS, Subject: subject, NATS: natsCfg},
			{Type: SinkKafka, Topic: topic},
			{Type: SinkGORM, Table: table, DB: mysqlCfg},
		},
	}, WithKafka(kafka), WithLogger(kit.Logger), WithMeter(kit.Meter))
	require.NoError(t, err)

	_, err = LogBody(sys.New,
		func(s *session.Std, _ optional.Value[int]) { s.Print("integration") },
		func() (int, error) { return 1, nil },
	)
	require.NoError(t, err)
	require.NoError(t, sys.Close(context.Background()))

	select {
	case msg := <-msgs:
		var rec sink.Record
		require.NoError(t, sink.JSONCodec{}.Unmarshal(msg.Data, &rec))
		assert.Equal(t, "integration", rec.Message)
		assert.Equal(t, "it-1", rec.Instance)
	case <-time.After(5 * time.Second):
		t.Fatal("no nats message received")
	}

	db, err := connector.OpenDB(kit.Ctx, mysqlCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = connector.CloseDB(db) })
	var count int64
	require.NoError(t, db.Table(table).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)
	fetches := consumer.PollFetches(testkit.NewContext(t, 30*time.Second))
	require.NoError(t, fetches.Err())
	assert.Equal(t, 1, fetches.NumRecords())
}
