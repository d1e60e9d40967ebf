package sink

import (
	"context"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/xerrors"
)

type multiSink struct {
	sinks []Sink
}

// Multi 把每条记录依次发送给所有 Sink
//
// 某个 Sink 失败不影响其余 Sink，返回合并后的错误。
func Multi(sinks ...Sink) Sink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &multiSink{sinks: out}
}

func (m *multiSink) Emit(ctx context.Context, rec *Record) error {
	if len(m.sinks) == 0 {
		return xerrors.ErrNoSink
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Emit(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return xerrors.Combine(errs...)
}

func (m *multiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return xerrors.Combine(errs...)
}

type fallbackSink struct {
	sinks  []Sink
	logger clog.Logger
}

// Fallback 按顺序尝试 Sink，第一个成功即返回
//
// 全部失败时返回合并后的错误。常用于 "消息队列失败时写本地文件"。
func Fallback(sinks []Sink, opts ...Option) Sink {
	o := applyOptions(opts...)
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &fallbackSink{sinks: out, logger: o.logger}
}

func (f *fallbackSink) Emit(ctx context.Context, rec *Record) error {
	if len(f.sinks) == 0 {
		return xerrors.ErrNoSink
	}
	var errs []error
	for i, s := range f.sinks {
		err := s.Emit(ctx, rec)
		if err == nil {
			return nil
		}
		f.logger.WarnContext(ctx, "sink emit failed, trying next",
			clog.Int("index", i),
			clog.Uint64("id", rec.ID),
			clog.Error(err),
		)
		errs = append(errs, err)
	}
	return xerrors.Combine(errs...)
}

func (f *fallbackSink) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return xerrors.Combine(errs...)
}
