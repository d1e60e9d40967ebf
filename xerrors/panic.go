package xerrors

import (
	"fmt"
	"runtime/debug"
)

// UnknownException 无法诊断的失败（panic 值不是 error）的渲染文本
const UnknownException = "<unknown exception>"

// PanicError 表示一次被 recover 的 panic。
//
// Value 保存原始的 panic 值，重新抛出时必须使用它，保证调用方看到的是同一个值。
type PanicError struct {
	Value any
	Stack []byte
}

// NewPanic 用 recover 得到的值构造 PanicError，并记录当前堆栈
func NewPanic(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "panic: " + err.Error()
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap 当 panic 值本身是 error 时返回它
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Repanic 以原始值重新 panic
func (e *PanicError) Repanic() {
	panic(e.Value)
}

// Recover 执行 fn，将其中的 panic 转换为 *PanicError 返回。
//
// fn 正常返回时结果为 nil。
func Recover(fn func()) (p *PanicError) {
	defer func() {
		if v := recover(); v != nil {
			p = NewPanic(v)
		}
	}()
	fn()
	return nil
}

// Describe 生成日志中使用的错误描述。
//
// 可诊断的错误渲染为 "[动态类型] 消息"；panic 值不是 error 时渲染为
// "<unknown exception>"。对于 PanicError，描述的是它携带的原始错误。
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if p, ok := err.(*PanicError); ok {
		inner, isErr := p.Value.(error)
		if !isErr {
			return UnknownException
		}
		err = inner
	}
	return fmt.Sprintf("[%T] %s", err, err.Error())
}
