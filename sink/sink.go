// Package sink 定义日志会话完成后的输出目标。
//
// 会话在 Finalize 时构造一条 Record 并交给 Sink.Emit。Sink 可以组合：
//
//	s := sink.Multi(
//	    sink.Stderr(),
//	    sink.WithBreaker(sink.NewNATS(nc, "logs.app"), "nats"),
//	)
//
// 所有 Sink 实现都必须支持并发调用 Emit。
package sink

import (
	"context"
	"time"
)

// Record 一条已完成的日志会话
type Record struct {
	ID        uint64        `json:"id" msgpack:"id"`
	Instance  string        `json:"instance,omitempty" msgpack:"instance,omitempty"`
	Start     time.Time     `json:"start" msgpack:"start"`
	End       time.Time     `json:"end,omitempty" msgpack:"end,omitempty"`
	HasBody   bool          `json:"has_body" msgpack:"has_body"`
	Elapsed   time.Duration `json:"elapsed_ns,omitempty" msgpack:"elapsed_ns,omitempty"`
	Message   string        `json:"message" msgpack:"message"`
	Failed    bool          `json:"failed" msgpack:"failed"`
	Caught    bool          `json:"caught,omitempty" msgpack:"caught,omitempty"`
	BodyError string        `json:"body_error,omitempty" msgpack:"body_error,omitempty"`
	LogError  string        `json:"log_error,omitempty" msgpack:"log_error,omitempty"`
	// Text 渲染好的单行文本（已屏蔽不可打印字符）
	Text string `json:"text" msgpack:"text"`
}

// Sink 日志输出目标
type Sink interface {
	// Emit 输出一条记录。返回错误表示该记录未能送达
	Emit(ctx context.Context, rec *Record) error
	// Close 释放 Sink 持有的资源（不关闭外部注入的连接）
	Close() error
}

// Func 将普通函数适配为 Sink
type Func func(ctx context.Context, rec *Record) error

// Emit 调用 f
func (f Func) Emit(ctx context.Context, rec *Record) error {
	return f(ctx, rec)
}

// Close 空操作
func (f Func) Close() error {
	return nil
}

// Discard 丢弃所有记录
func Discard() Sink {
	return Func(func(context.Context, *Record) error { return nil })
}
