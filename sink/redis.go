package sink

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/logsys/trace"
	"github.com/ceyewan/logsys/xerrors"
)

const (
	redisFieldPayload     = "payload"
	redisFieldHeaders     = "headers"
	redisFieldContentType = "content_type"
)

type redisStreamSink struct {
	client redis.UniversalClient
	stream string
	opts   options
}

// NewRedisStream 通过 XADD 把记录追加到 Redis Stream
//
// 设置 WithMaxLen 后使用近似裁剪（MAXLEN ~）控制 Stream 长度。
func NewRedisStream(client redis.UniversalClient, stream string, opts ...Option) (Sink, error) {
	if client == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "redis client is required")
	}
	if stream == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "redis stream is required")
	}
	return &redisStreamSink{client: client, stream: stream, opts: applyOptions(opts...)}, nil
}

// InstrumentRedis 为 Redis 客户端开启 OpenTelemetry 链路与指标
func InstrumentRedis(client redis.UniversalClient) error {
	if err := redisotel.InstrumentTracing(client); err != nil {
		return xerrors.Wrap(err, "instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		return xerrors.Wrap(err, "instrument redis metrics")
	}
	return nil
}

func (s *redisStreamSink) Emit(ctx context.Context, rec *Record) error {
	data, err := s.opts.codec.Marshal(rec)
	if err != nil {
		return xerrors.Wrap(err, "encode record")
	}

	spanCtx, span, headers := trace.StartPublish(ctx, s.opts.tracer, trace.Publication{
		System:      trace.SystemRedis,
		Destination: s.stream,
		SessionID:   rec.ID,
		Instance:    rec.Instance,
	})
	defer span.End()

	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return xerrors.Wrap(err, "marshal headers")
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			redisFieldPayload:     data,
			redisFieldHeaders:     headersJSON,
			redisFieldContentType: s.opts.codec.ContentType(),
		},
	}
	if s.opts.maxLen > 0 {
		args.MaxLen = s.opts.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(spanCtx, args).Err(); err != nil {
		trace.Fail(span, err)
		return xerrors.Wrapf(err, "xadd to %s", s.stream)
	}
	return nil
}

func (s *redisStreamSink) Close() error {
	return nil
}
