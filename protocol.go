package logsys

import (
	"github.com/ceyewan/logsys/optional"
	"github.com/ceyewan/logsys/session"
	"github.com/ceyewan/logsys/xerrors"
)

// Simple 把只接收会话的消息函数适配为带结果参数的形式
func Simple[S session.Session, R any](f func(S)) func(S, R) {
	return func(s S, _ R) { f(s) }
}

// Log 只输出消息，没有主体
func Log[S session.Session](newSession session.Factory[S], msg func(S)) {
	s := newSession()
	callMessage(s, msg)
	s.Finalize()
}

// LogBody 执行主体并输出消息
//
// 主体的返回值原样返回。主体 panic 时，在输出消息之后以相同的值重新 panic。
func LogBody[S session.Session, T any](
	newSession session.Factory[S],
	msg func(S, optional.Value[T]),
	body func() (T, error),
) (T, error) {
	var v T
	out := run(newSession, false, func() (err error) {
		v, err = body()
		return err
	}, func(s S, ok bool) {
		if ok {
			msg(s, optional.Some(v))
		} else {
			msg(s, optional.None[T]())
		}
	})
	out.rethrow()
	return v, out.err
}

// LogRef 执行返回指针的主体，消息函数看到的是同一个指针
//
// 主体成功但返回 nil 指针时，消息函数看到空 Ref，会话仍按成功记录。
func LogRef[S session.Session, T any](
	newSession session.Factory[S],
	msg func(S, optional.Ref[T]),
	body func() (*T, error),
) (*T, error) {
	var p *T
	out := run(newSession, false, func() (err error) {
		p, err = body()
		return err
	}, func(s S, ok bool) {
		if ok {
			msg(s, optional.RefOf(p))
		} else {
			msg(s, optional.NoRef[T]())
		}
	})
	out.rethrow()
	return p, out.err
}

// LogMove 执行主体后把值从主体返回的存储中移出并交给调用方
//
// 消息函数可以 Peek 该值；若消息函数自行 Take，调用方得到零值。
func LogMove[S session.Session, T any](
	newSession session.Factory[S],
	msg func(S, optional.Move[T]),
	body func() (*T, error),
) (T, error) {
	var p *T
	out := run(newSession, false, func() (err error) {
		p, err = body()
		return err
	}, func(s S, ok bool) {
		if ok {
			msg(s, optional.MoveOf(p))
		} else {
			msg(s, optional.NoMove[T]())
		}
	})
	out.rethrow()
	if out.failed() {
		var zero T
		return zero, out.err
	}
	v, _ := optional.MoveOf(p).Take()
	return v, nil
}

// LogVoid 执行没有结果的主体，消息函数收到主体是否成功
func LogVoid[S session.Session](
	newSession session.Factory[S],
	msg func(S, bool),
	body func() error,
) error {
	out := run(newSession, false, body, msg)
	out.rethrow()
	return out.err
}

// Catch 执行主体并捕获失败，失败时返回空值，永不 panic
func Catch[S session.Session, T any](
	newSession session.Factory[S],
	msg func(S, optional.Value[T]),
	body func() (T, error),
) optional.Value[T] {
	var v T
	out := run(newSession, true, func() (err error) {
		v, err = body()
		return err
	}, func(s S, ok bool) {
		if ok {
			msg(s, optional.Some(v))
		} else {
			msg(s, optional.None[T]())
		}
	})
	if out.failed() {
		return optional.None[T]()
	}
	return optional.Some(v)
}

// CatchRef 与 Catch 相同，结果以指针引用返回；主体返回 nil 指针时结果为空
func CatchRef[S session.Session, T any](
	newSession session.Factory[S],
	msg func(S, optional.Ref[T]),
	body func() (*T, error),
) optional.Ref[T] {
	var p *T
	out := run(newSession, true, func() (err error) {
		p, err = body()
		return err
	}, func(s S, ok bool) {
		if ok {
			msg(s, optional.RefOf(p))
		} else {
			msg(s, optional.NoRef[T]())
		}
	})
	if out.failed() {
		return optional.NoRef[T]()
	}
	return optional.RefOf(p)
}

// CatchMove 与 Catch 相同，调用方通过 Take 把值移出
func CatchMove[S session.Session, T any](
	newSession session.Factory[S],
	msg func(S, optional.Move[T]),
	body func() (*T, error),
) optional.Move[T] {
	var p *T
	out := run(newSession, true, func() (err error) {
		p, err = body()
		return err
	}, func(s S, ok bool) {
		if ok {
			msg(s, optional.MoveOf(p))
		} else {
			msg(s, optional.NoMove[T]())
		}
	})
	if out.failed() {
		return optional.NoMove[T]()
	}
	return optional.MoveOf(p)
}

// CatchVoid 执行没有结果的主体并捕获失败，返回主体是否成功
func CatchVoid[S session.Session](
	newSession session.Factory[S],
	msg func(S, bool),
	body func() error,
) bool {
	return !run(newSession, true, body, msg).failed()
}

// outcome 主体的执行结果
type outcome struct {
	err   error
	panic *xerrors.PanicError
}

func (o outcome) failed() bool {
	return o.err != nil || o.panic != nil
}

// rethrow 以原始值重新抛出主体的 panic
func (o outcome) rethrow() {
	if o.panic != nil {
		o.panic.Repanic()
	}
}

// run 依次执行：构造会话、主体、BodyFinished、[MarkCaught]、RecordBodyError、
// 消息函数、Finalize。主体的 panic 被捕获到 outcome 中，由调用方决定是否重新抛出。
func run[S session.Session](
	newSession session.Factory[S],
	catching bool,
	body func() error,
	msg func(S, bool),
) outcome {
	s := newSession()

	var out outcome
	out.panic = xerrors.Recover(func() { out.err = body() })

	if f, ok := any(s).(session.BodyFinisher); ok {
		f.BodyFinished()
	}

	if out.failed() {
		if catching {
			if m, ok := any(s).(session.CaughtMarker); ok {
				m.MarkCaught()
			}
		}
		if out.panic != nil {
			s.RecordBodyError(out.panic)
		} else {
			s.RecordBodyError(out.err)
		}
	}

	ok := !out.failed()
	callMessage(s, func(s S) { msg(s, ok) })
	s.Finalize()
	return out
}

// callMessage 执行消息函数，panic 记录为日志异常
func callMessage[S session.Session](s S, msg func(S)) {
	if perr := xerrors.Recover(func() { msg(s) }); perr != nil {
		s.RecordLogError(perr)
	}
}
