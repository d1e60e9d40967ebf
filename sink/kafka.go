package sink

import (
	"context"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ceyewan/logsys/trace"
	"github.com/ceyewan/logsys/xerrors"
)

type kafkaSink struct {
	client *kgo.Client
	topic  string
	opts   options
}

// NewKafka 把记录同步写入 Kafka topic
//
// 消息 Key 为实例 ID，同一进程的记录落在同一分区，保持顺序。
func NewKafka(client *kgo.Client, topic string, opts ...Option) (Sink, error) {
	if client == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "kafka client is required")
	}
	if topic == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "kafka topic is required")
	}
	return &kafkaSink{client: client, topic: topic, opts: applyOptions(opts...)}, nil
}

func (s *kafkaSink) Emit(ctx context.Context, rec *Record) error {
	data, err := s.opts.codec.Marshal(rec)
	if err != nil {
		return xerrors.Wrap(err, "encode record")
	}

	spanCtx, span, headers := trace.StartPublish(ctx, s.opts.tracer, trace.Publication{
		System:      trace.SystemKafka,
		Destination: s.topic,
		SessionID:   rec.ID,
		Instance:    rec.Instance,
	})
	defer span.End()

	record := &kgo.Record{
		Topic:   s.topic,
		Key:     []byte(rec.Instance),
		Value:   data,
		Headers: kafkaHeaders(headers, rec, s.opts.codec),
	}
	if err := s.client.ProduceSync(spanCtx, record).FirstErr(); err != nil {
		trace.Fail(span, err)
		return xerrors.Wrapf(err, "produce to %s", s.topic)
	}
	return nil
}

func (s *kafkaSink) Close() error {
	return nil
}

func kafkaHeaders(traceHeaders map[string]string, rec *Record, codec Codec) []kgo.RecordHeader {
	out := make([]kgo.RecordHeader, 0, len(traceHeaders)+2)
	for k, v := range traceHeaders {
		out = append(out, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	out = append(out,
		kgo.RecordHeader{Key: headerContentType, Value: []byte(codec.ContentType())},
		kgo.RecordHeader{Key: headerSessionID, Value: []byte(strconv.FormatUint(rec.ID, 10))},
	)
	return out
}
