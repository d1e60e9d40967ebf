package middleware

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/stats"
	"google.golang.org/grpc/status"

	"github.com/ceyewan/logsys"
	"github.com/ceyewan/logsys/optional"
	"github.com/ceyewan/logsys/session"
)

// UnaryServerInterceptor 为每个一元调用创建一次日志会话
//
// 处理函数返回的错误原样返回给 gRPC，同时记录为会话的主体失败。
func UnaryServerInterceptor(f *session.StdFactory, opts ...Option) grpc.UnaryServerInterceptor {
	o := applyOptions(opts)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if o.skipped(info.FullMethod) {
			return handler(ctx, req)
		}

		code := codes.Unknown.String()
		return logsys.LogBody(f.Bind(ctx),
			func(s *session.Std, _ optional.Value[any]) {
				s.Printf("%s code=%s", info.FullMethod, code)
			},
			func() (any, error) {
				resp, err := handler(ctx, req)
				code = status.Code(err).String()
				return resp, err
			},
		)
	}
}

// StreamServerInterceptor 为每个流式调用创建一次日志会话，主体为整个流的处理过程
func StreamServerInterceptor(f *session.StdFactory, opts ...Option) grpc.StreamServerInterceptor {
	o := applyOptions(opts)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if o.skipped(info.FullMethod) {
			return handler(srv, ss)
		}

		code := codes.Unknown.String()
		return logsys.LogVoid(f.Bind(ss.Context()),
			func(s *session.Std, _ bool) {
				s.Printf("%s stream code=%s", info.FullMethod, code)
			},
			func() error {
				err := handler(srv, ss)
				code = status.Code(err).String()
				return err
			},
		)
	}
}

// GRPCServerStatsHandler 返回 otelgrpc 服务端 StatsHandler
func GRPCServerStatsHandler(opts ...otelgrpc.Option) stats.Handler {
	return otelgrpc.NewServerHandler(opts...)
}

// GRPCClientStatsHandler 返回 otelgrpc 客户端 StatsHandler
func GRPCClientStatsHandler(opts ...otelgrpc.Option) stats.Handler {
	return otelgrpc.NewClientHandler(opts...)
}
