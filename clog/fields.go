package clog

import (
	"fmt"
	"log/slog"
	"time"
)

// Field 日志字段
type Field = slog.Attr

// 基础字段构造，直接复用 slog
var (
	String   = slog.String
	Int      = slog.Int
	Int64    = slog.Int64
	Uint64   = slog.Uint64
	Float64  = slog.Float64
	Bool     = slog.Bool
	Time     = slog.Time
	Duration = slog.Duration
	Any      = slog.Any
)

// Error 记录为 error="<msg>"，err 为 nil 时字段被丢弃
func Error(err error) Field {
	if err == nil {
		return Field{}
	}
	return slog.String("error", err.Error())
}

// ErrorWithType 记录为分组 key={msg, type}，type 是 err 的动态类型
func ErrorWithType(key string, err error) Field {
	if err == nil {
		return Field{}
	}
	return slog.Group(key, slog.String("msg", err.Error()), slog.String("type", fmt.Sprintf("%T", err)))
}

// Elapsed 以毫秒浮点数记录耗时，与会话文本中的 "ms" 一致
func Elapsed(d time.Duration) Field {
	return slog.Float64("elapsed_ms", float64(d)/float64(time.Millisecond))
}
