package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ceyewan/logsys"
	"github.com/ceyewan/logsys/session"
)

// Gin 为每个请求创建一次日志会话
//
// 消息格式为 "<METHOD> <path> <status> <client ip>"。状态码达到失败阈值或
// 处理函数 panic 时会话标记为失败。会话继承请求的 context，配合
// GinTracing 使用时会话 Span 挂在请求 Span 之下。
func Gin(f *session.StdFactory, opts ...Option) gin.HandlerFunc {
	o := applyOptions(opts)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if o.skipped(path) {
			c.Next()
			return
		}

		_ = logsys.LogVoid(f.Bind(c.Request.Context()),
			func(s *session.Std, _ bool) {
				s.Printf("%s %s %d %s", c.Request.Method, path, c.Writer.Status(), c.ClientIP())
				if len(c.Errors) > 0 {
					s.Printf(" errors=%q", c.Errors.String())
				}
			},
			func() error {
				c.Next()
				if status := c.Writer.Status(); status >= o.failStatus {
					return &HTTPError{Status: status}
				}
				return nil
			},
		)
	}
}

// GinTracing 返回 otelgin 中间件，为每个请求创建服务端 Span
func GinTracing(service string, opts ...otelgin.Option) gin.HandlerFunc {
	return otelgin.Middleware(service, opts...)
}
