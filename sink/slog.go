package sink

import (
	"context"

	"github.com/ceyewan/logsys/clog"
)

type slogSink struct {
	logger clog.Logger
}

// NewSlog 把记录转换为结构化日志
//
// 级别按结果选择：主体失败后被捕获为 Warn，失败并重抛或消息函数出错为 Error，
// 其余为 Info。
func NewSlog(logger clog.Logger) Sink {
	if logger == nil {
		logger = clog.Discard()
	}
	return &slogSink{logger: logger}
}

func (s *slogSink) Emit(ctx context.Context, rec *Record) error {
	fields := []clog.Field{
		clog.Uint64("id", rec.ID),
		clog.Time("start", rec.Start),
		clog.Bool("has_body", rec.HasBody),
	}
	if rec.Instance != "" {
		fields = append(fields, clog.String("instance", rec.Instance))
	}
	if rec.HasBody {
		fields = append(fields, clog.Elapsed(rec.Elapsed))
	}
	if rec.Failed {
		fields = append(fields, clog.Bool("failed", true), clog.Bool("caught", rec.Caught))
	}
	if rec.BodyError != "" {
		fields = append(fields, clog.String("body_error", rec.BodyError))
	}
	if rec.LogError != "" {
		fields = append(fields, clog.String("log_error", rec.LogError))
	}

	s.logger.Log(ctx, recordLevel(rec), rec.Message, fields...)
	return nil
}

func recordLevel(rec *Record) clog.Level {
	switch {
	case rec.LogError != "", rec.Failed && !rec.Caught:
		return clog.ErrorLevel
	case rec.Failed:
		return clog.WarnLevel
	default:
		return clog.InfoLevel
	}
}

func (s *slogSink) Close() error {
	return nil
}
