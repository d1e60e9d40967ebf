// Package optional 提供 Body 结果的可空包装。
//
// Body 的返回值按"值类别"分为三种形状：
//
//	Value[T]  按值持有结果，复制语义
//	Ref[T]    引用一个已有对象，从不复制被引用对象
//	Move[T]   引用一个将被移出的临时对象，Take 会移出值并清空来源
//
// 无返回值的 Body 退化为 bool（true 表示成功）。
//
// 基本使用：
//
//	v := optional.Some(10)
//	if n, ok := v.Get(); ok {
//	    fmt.Println(n)
//	}
package optional

import "github.com/ceyewan/logsys/xerrors"

// Value 按值持有的可选结果
type Value[T any] struct {
	v  T
	ok bool
}

// Some 创建一个包含 v 的 Value
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// None 创建一个空的 Value
func None[T any]() Value[T] {
	return Value[T]{}
}

// HasValue 是否包含值
func (o Value[T]) HasValue() bool {
	return o.ok
}

// Get 返回值以及是否存在
func (o Value[T]) Get() (T, bool) {
	return o.v, o.ok
}

// MustGet 返回值，为空时 panic(xerrors.ErrEmptyOptional)
func (o Value[T]) MustGet() T {
	if !o.ok {
		panic(xerrors.ErrEmptyOptional)
	}
	return o.v
}

// OrElse 为空时返回 def
func (o Value[T]) OrElse(def T) T {
	if !o.ok {
		return def
	}
	return o.v
}

// Ref 引用一个已有对象的可选结果
//
// 复制 Ref 只复制引用，Get 返回的始终是构造时传入的同一个指针。
type Ref[T any] struct {
	p *T
}

// RefOf 引用 p 指向的对象，p 为 nil 时得到空 Ref
func RefOf[T any](p *T) Ref[T] {
	return Ref[T]{p: p}
}

// NoRef 创建一个空的 Ref
func NoRef[T any]() Ref[T] {
	return Ref[T]{}
}

// HasValue 是否引用了对象
func (r Ref[T]) HasValue() bool {
	return r.p != nil
}

// Get 返回被引用对象的指针，为空时返回 nil
func (r Ref[T]) Get() *T {
	return r.p
}

// MustGet 返回被引用对象的指针，为空时 panic(xerrors.ErrEmptyOptional)
func (r Ref[T]) MustGet() *T {
	if r.p == nil {
		panic(xerrors.ErrEmptyOptional)
	}
	return r.p
}

// Move 引用一个待移出对象的可选结果
//
// Peek 只观察不修改；Take 把值移出，被引用对象随后处于零值（已移出）状态。
type Move[T any] struct {
	p *T
}

// MoveOf 引用 p 指向的对象，p 为 nil 时得到空 Move
func MoveOf[T any](p *T) Move[T] {
	return Move[T]{p: p}
}

// NoMove 创建一个空的 Move
func NoMove[T any]() Move[T] {
	return Move[T]{}
}

// HasValue 是否引用了对象
func (m Move[T]) HasValue() bool {
	return m.p != nil
}

// Peek 返回被引用对象的指针，不移出
func (m Move[T]) Peek() *T {
	return m.p
}

// Take 移出被引用对象的值，并将来源置为零值
func (m Move[T]) Take() (T, bool) {
	var zero T
	if m.p == nil {
		return zero, false
	}
	v := *m.p
	*m.p = zero
	return v, true
}
