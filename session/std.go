package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ceyewan/logsys/sink"
	"github.com/ceyewan/logsys/xerrors"
)

// TimeLayout 开始时间的渲染格式
const TimeLayout = "2006-01-02 15:04:05.000"

// BodyState 主体执行状态
type BodyState int

const (
	// NoBody 没有主体，只有消息
	NoBody BodyState = iota
	// BodyRan 主体已执行且成功
	BodyRan
	// BodyFailedRethrown 主体失败，错误继续传播给调用方
	BodyFailedRethrown
	// BodyFailedCaught 主体失败，错误被捕获式入口吞掉
	BodyFailedCaught
)

func (s BodyState) String() string {
	switch s {
	case NoBody:
		return "no_body"
	case BodyRan:
		return "ran"
	case BodyFailedRethrown:
		return "failed"
	case BodyFailedCaught:
		return "caught"
	default:
		return fmt.Sprintf("body_state(%d)", int(s))
	}
}

// nextID 进程内唯一的会话编号，从 0 开始
var nextID atomic.Uint64

func uniqueID() uint64 {
	return nextID.Add(1) - 1
}

// osExit 便于测试替换
var (
	defaultExit = os.Exit
	osExit      = defaultExit
)

// 传给 SinkFailureHandler 的错误码，可用 xerrors.GetCode 读取
const (
	CodeSinkError   = "sink_error"
	CodeSinkPanic   = "sink_panic"
	CodeSinkTimeout = "sink_timeout"
)

// SinkFailureHandler 处理 Sink 输出失败（返回错误或 panic）
type SinkFailureHandler func(err error, rec *sink.Record)

// ExitOnSinkFailure 默认处理方式：把失败和原始文本写到 stderr 后以状态码 1 退出
func ExitOnSinkFailure(err error, rec *sink.Record) {
	fmt.Fprintf(os.Stderr, "logsys: failed to emit session %d: %v\n%s\n", rec.ID, err, rec.Text)
	osExit(1)
}

// Std 标准会话
//
// 记录开始时间、主体结束时间和失败信息，Finalize 时渲染为一行文本：
//
//	000042 2024-03-01 12:00:00.000 (        1.500ms ) load config (failed) (body exception: [*fs.PathError] open x: no such file or directory)
type Std struct {
	factory *StdFactory
	ctx     context.Context

	id      uint64
	start   time.Time
	end     time.Time
	msg     bytes.Buffer
	state   BodyState
	caught  bool
	bodyErr error
	logErr  error
	done    bool
}

// NewStd 创建写入 stderr 的标准会话
func NewStd() *Std {
	return stderrFactory.New()
}

var stderrFactory = NewStdFactory()

// Write 追加消息文本，实现 io.Writer
func (s *Std) Write(p []byte) (int, error) {
	return s.msg.Write(p)
}

// Print 以 fmt.Sprint 的方式追加文本，可链式调用
func (s *Std) Print(args ...any) *Std {
	fmt.Fprint(&s.msg, args...)
	return s
}

// Printf 以 fmt.Sprintf 的方式追加文本，可链式调用
func (s *Std) Printf(format string, args ...any) *Std {
	fmt.Fprintf(&s.msg, format, args...)
	return s
}

// ID 会话编号
func (s *Std) ID() uint64 { return s.id }

// Context 会话上下文，包含 Hook 写入的值（例如 Span）
func (s *Std) Context() context.Context { return s.ctx }

// State 主体执行状态
func (s *Std) State() BodyState { return s.state }

// Message 当前已累积的消息文本
func (s *Std) Message() string { return s.msg.String() }

// BodyFinished 记录主体结束时间
func (s *Std) BodyFinished() {
	s.end = s.factory.clock()
	if s.state == NoBody {
		s.state = BodyRan
	}
}

// MarkCaught 标记主体错误将被捕获
func (s *Std) MarkCaught() {
	s.caught = true
}

// RecordBodyError 记录主体失败
func (s *Std) RecordBodyError(err error) {
	if s.end.IsZero() {
		s.end = s.factory.clock()
	}
	s.bodyErr = err
	if s.caught {
		s.state = BodyFailedCaught
	} else {
		s.state = BodyFailedRethrown
	}
}

// RecordLogError 记录消息函数失败
func (s *Std) RecordLogError(err error) {
	s.logErr = err
}

// Finalize 渲染并输出记录，重复调用无效果
func (s *Std) Finalize() {
	if s.done {
		return
	}
	s.done = true

	rec := s.record()
	for i := len(s.factory.hooks) - 1; i >= 0; i-- {
		h := s.factory.hooks[i]
		// hook 的 panic 不影响输出
		_ = xerrors.Recover(func() { h.End(s.ctx, rec) })
	}
	s.emit(rec)
}

func (s *Std) emit(rec *sink.Record) {
	ctx := s.ctx
	if s.factory.emitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.factory.emitTimeout)
		defer cancel()
	}

	var err error
	p := xerrors.Recover(func() { err = s.factory.sink.Emit(ctx, rec) })
	switch {
	case p != nil:
		err = xerrors.WithCode(p, CodeSinkPanic)
	case err == nil:
		return
	case xerrors.Is(err, context.DeadlineExceeded):
		err = xerrors.WithCode(err, CodeSinkTimeout)
	default:
		err = xerrors.WithCode(err, CodeSinkError)
	}
	s.factory.onSinkFailure(err, rec)
}

func (s *Std) record() *sink.Record {
	rec := &sink.Record{
		ID:       s.id,
		Instance: s.factory.instance,
		Start:    s.start,
		HasBody:  s.state != NoBody,
		Message:  s.msg.String(),
		Failed:   s.state == BodyFailedRethrown || s.state == BodyFailedCaught,
		Caught:   s.state == BodyFailedCaught,
	}
	if rec.HasBody {
		rec.End = s.end
		rec.Elapsed = s.end.Sub(s.start)
	}
	if s.bodyErr != nil {
		rec.BodyError = xerrors.Describe(s.bodyErr)
	}
	if s.logErr != nil {
		rec.LogError = xerrors.Describe(s.logErr)
	}
	rec.Text = maskNonPrint(render(rec))
	return rec
}

func render(rec *sink.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%06d %s", rec.ID, rec.Start.Format(TimeLayout))
	if rec.HasBody {
		fmt.Fprintf(&b, " ( %12.3fms ) ", float64(rec.Elapsed)/float64(time.Millisecond))
	} else {
		b.WriteString(" ( no content     ) ")
	}
	b.WriteString(rec.Message)

	if rec.Failed {
		b.WriteString(" (failed)")
	}
	if rec.BodyError != "" {
		if rec.Caught {
			fmt.Fprintf(&b, " (exception caught: %s)", rec.BodyError)
		} else {
			fmt.Fprintf(&b, " (body exception: %s)", rec.BodyError)
		}
	}
	if rec.LogError != "" {
		fmt.Fprintf(&b, " (log exception: %s)", rec.LogError)
	}
	return b.String()
}
