package session

import (
	"fmt"
	"os"
	"reflect"

	"github.com/ceyewan/logsys/xerrors"
)

// Provider 动态会话工厂
//
// 在启动时绑定一次具体的会话实现，之后以 Session 接口的形式提供会话，
// 调用方无需知道具体类型。绑定的工厂 panic 或返回 nil 时，进程向 stderr
// 输出原因后以状态码 1 退出：无法构造会话意味着日志系统本身不可用。
type Provider struct {
	factory Factory[Session]
}

// NewProvider 绑定会话工厂
func NewProvider(factory Factory[Session]) *Provider {
	return &Provider{factory: factory}
}

// Dynamic 把具体类型的工厂转换为返回 Session 接口的工厂
//
// f 返回 nil 指针时得到 nil 接口，而不是包着 nil 指针的 Session。
func Dynamic[S Session](f Factory[S]) Factory[Session] {
	return func() Session {
		s := f()
		if isNil(s) {
			return nil
		}
		return s
	}
}

// New 创建会话，可直接作为 Factory[Session] 使用
func (p *Provider) New() Session {
	if p == nil || p.factory == nil {
		abort("no session factory bound")
		return nil
	}

	var s Session
	if perr := xerrors.Recover(func() { s = p.factory() }); perr != nil {
		abort("session factory panicked: " + xerrors.Describe(perr))
		return nil
	}
	if isNil(s) {
		abort("session factory returned nil")
		return nil
	}
	return s
}

// isNil 同时识别 nil 接口和接口中的 nil 指针
func isNil(s Session) bool {
	if s == nil {
		return true
	}
	rv := reflect.ValueOf(s)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func abort(reason string) {
	fmt.Fprintf(os.Stderr, "logsys: %s\n", reason)
	osExit(1)
}
