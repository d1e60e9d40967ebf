package sink

import (
	"context"
	"strconv"

	"github.com/nats-io/nats.go"

	"github.com/ceyewan/logsys/trace"
	"github.com/ceyewan/logsys/xerrors"
)

const (
	headerContentType = "Content-Type"
	headerSessionID   = "Logsys-Session-Id"
)

type natsSink struct {
	conn    *nats.Conn
	subject string
	opts    options
}

// NewNATS 把记录发布到 NATS subject
//
// 连接由调用方管理，Close 不会关闭 conn。
func NewNATS(conn *nats.Conn, subject string, opts ...Option) (Sink, error) {
	if conn == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "nats connection is required")
	}
	if subject == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "nats subject is required")
	}
	return &natsSink{conn: conn, subject: subject, opts: applyOptions(opts...)}, nil
}

func (s *natsSink) Emit(ctx context.Context, rec *Record) error {
	// NATS Core 不支持 context 超时控制
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.opts.codec.Marshal(rec)
	if err != nil {
		return xerrors.Wrap(err, "encode record")
	}

	_, span, headers := trace.StartPublish(ctx, s.opts.tracer, trace.Publication{
		System:      trace.SystemNATS,
		Destination: s.subject,
		SessionID:   rec.ID,
		Instance:    rec.Instance,
	})
	defer span.End()

	msg := &nats.Msg{
		Subject: s.subject,
		Data:    data,
		Header:  recordHeaders(headers, rec, s.opts.codec),
	}
	if err := s.conn.PublishMsg(msg); err != nil {
		trace.Fail(span, err)
		return xerrors.Wrapf(err, "publish to %s", s.subject)
	}
	return nil
}

func (s *natsSink) Close() error {
	return nil
}

func recordHeaders(traceHeaders map[string]string, rec *Record, codec Codec) nats.Header {
	h := nats.Header{}
	for k, v := range traceHeaders {
		h.Set(k, v)
	}
	h.Set(headerContentType, codec.ContentType())
	h.Set(headerSessionID, strconv.FormatUint(rec.ID, 10))
	return h
}
