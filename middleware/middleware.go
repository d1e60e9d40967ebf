// Package middleware 把 HTTP 请求和 gRPC 调用包装为日志会话。
//
// 每个请求或调用是一次带主体的会话：处理函数就是主体，耗时、状态码和
// 失败信息写入同一行日志：
//
//	r := gin.New()
//	r.Use(gin.Recovery())
//	r.Use(middleware.GinTracing("order-api"))
//	r.Use(middleware.Gin(sys.Factory))
//
//	srv := grpc.NewServer(
//	    grpc.StatsHandler(middleware.GRPCServerStatsHandler()),
//	    grpc.ChainUnaryInterceptor(middleware.UnaryServerInterceptor(sys.Factory)),
//	)
//
// 处理函数的 panic 在会话输出后原样重新抛出，由外层的 Recovery 处理。
package middleware

import (
	"fmt"
	"net/http"
)

// HTTPError 表示请求以服务端错误状态码结束
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

// Option 中间件选项
type Option func(*options)

type options struct {
	skip       map[string]struct{}
	failStatus int
}

// WithSkipPaths 不为这些路径（或 gRPC FullMethod）创建会话，例如健康检查
func WithSkipPaths(paths ...string) Option {
	return func(o *options) {
		for _, p := range paths {
			o.skip[p] = struct{}{}
		}
	}
}

// WithFailureStatus 状态码不小于 status 时视为主体失败，默认 500
func WithFailureStatus(status int) Option {
	return func(o *options) {
		if status > 0 {
			o.failStatus = status
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		skip:       make(map[string]struct{}),
		failStatus: http.StatusInternalServerError,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) skipped(path string) bool {
	_, ok := o.skip[path]
	return ok
}
