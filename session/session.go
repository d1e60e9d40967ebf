// Package session 定义日志会话的契约以及默认的标准会话实现。
//
// 一次日志调用对应一个会话：调用方先执行主体（可选），再由消息函数向会话写入
// 文本，最后 Finalize 把完整消息交给 Sink。会话只需实现 Session 接口；
// BodyFinisher 与 CaughtMarker 是可选能力，运行时通过类型断言发现。
package session

import "io"

// Session 日志会话契约
//
// 实现必须保证 Finalize、RecordBodyError、RecordLogError 不会 panic。
// 同一个会话只会被一次日志调用在单个 goroutine 中使用。
type Session interface {
	// Write 追加消息文本
	io.Writer
	// Finalize 输出已累积的消息，每个会话恰好调用一次
	Finalize()
	// RecordBodyError 记录主体失败
	RecordBodyError(err error)
	// RecordLogError 记录消息函数失败
	RecordLogError(err error)
}

// BodyFinisher 主体结束通知
//
// 在主体完成后（无论成功失败）、记录任何错误和执行消息函数之前调用一次。
type BodyFinisher interface {
	BodyFinished()
}

// CaughtMarker 捕获标记
//
// 捕获式入口在 RecordBodyError 之前调用，使会话区分 "失败并继续传播" 与
// "失败但被捕获"。
type CaughtMarker interface {
	MarkCaught()
}

// Factory 会话工厂，每次日志调用构造一个新会话
type Factory[S Session] func() S
