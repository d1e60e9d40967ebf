// Package xerrors 提供 logsys 的标准化错误处理工具。
//
// 除常规的包装、错误码、合并能力外，还负责把 panic 转换为 error
// （PanicError），以及为日志渲染生成 "[类型] 消息" 形式的错误描述。
package xerrors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// 通用哨兵错误
var (
	// ErrInvalidInput 参数或配置无效
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyOptional 访问了不含值的 Optional
	ErrEmptyOptional = errors.New("optional has no value")
	// ErrSinkClosed Sink 已关闭
	ErrSinkClosed = errors.New("sink closed")
	// ErrNoSink 未配置任何 Sink
	ErrNoSink = errors.New("no sink configured")
)

// Wrap 在 err 前加上 msg，err 为 nil 时返回 nil
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 同 Wrap，msg 由 format 生成
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// CodedError 附带机器可读错误码的错误，例如 Sink 失败的原因分类
type CodedError struct {
	Code  string
	Cause error
}

// WithCode 为 err 附加错误码，err 为 nil 时返回 nil
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return "[" + e.Code + "]"
	}
	return "[" + e.Code + "] " + e.Cause.Error()
}

func (e *CodedError) Unwrap() error { return e.Cause }

// GetCode 返回错误链中最外层的错误码，没有时返回空字符串
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Must 在 err 不为 nil 时 panic，仅用于初始化阶段
func Must[T any](v T, err error) T {
	if err != nil {
		panic("must: " + err.Error())
	}
	return v
}

// MultiError 多个独立失败的集合，例如关闭多个 Sink 时的错误
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(m.Errors)))
	b.WriteString(" errors: ")
	for i, err := range m.Errors {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

func (m *MultiError) Unwrap() []error { return m.Errors }

// Combine 丢弃 nil 后合并：全为 nil 返回 nil，只有一个时原样返回
func Combine(errs ...error) error {
	nonNil := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	if len(nonNil) == 1 {
		return nonNil[0]
	}
	return &MultiError{Errors: nonNil}
}

// 标准库函数再导出
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)
