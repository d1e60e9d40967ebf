package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/ceyewan/logsys/session"
	"github.com/ceyewan/logsys/sink"
	"github.com/ceyewan/logsys/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newFactory(t *testing.T, opts ...session.StdOption) (*session.StdFactory, *sink.Memory) {
	t.Helper()
	mem := sink.NewMemory()
	base := []session.StdOption{
		session.WithSink(mem),
		session.WithSinkFailure(func(err error, _ *sink.Record) { t.Errorf("sink failure: %v", err) }),
	}
	return session.NewStdFactory(append(base, opts...)...), mem
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "192.0.2.1:1234"
	r.ServeHTTP(w, req)
	return w
}

// ============================================================
// Gin
// ============================================================

func TestGinSuccess(t *testing.T) {
	f, mem := newFactory(t)
	r := gin.New()
	r.Use(Gin(f))
	r.GET("/orders", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := serve(r, http.MethodGet, "/orders")
	assert.Equal(t, http.StatusOK, w.Code)

	rec, ok := mem.Last()
	require.True(t, ok)
	assert.Equal(t, "GET /orders 200 192.0.2.1", rec.Message)
	assert.True(t, rec.HasBody)
	assert.False(t, rec.Failed)
}

func TestGinServerError(t *testing.T) {
	f, mem := newFactory(t)
	r := gin.New()
	r.Use(Gin(f))
	r.GET("/down", func(c *gin.Context) {
		_ = c.Error(errors.New("db unavailable"))
		c.Status(http.StatusServiceUnavailable)
	})

	serve(r, http.MethodGet, "/down")

	rec, ok := mem.Last()
	require.True(t, ok)
	assert.True(t, rec.Failed)
	assert.False(t, rec.Caught)
	assert.Equal(t, "[*middleware.HTTPError] 503 Service Unavailable", rec.BodyError)
	assert.Contains(t, rec.Message, "db unavailable")
}

func TestGinFailureStatus(t *testing.T) {
	f, mem := newFactory(t)
	r := gin.New()
	r.Use(Gin(f, WithFailureStatus(http.StatusBadRequest)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(r, http.MethodGet, "/missing")

	rec, ok := mem.Last()
	require.True(t, ok)
	assert.True(t, rec.Failed)
}

func TestGinSkipPaths(t *testing.T) {
	f, mem := newFactory(t)
	r := gin.New()
	r.Use(Gin(f, WithSkipPaths("/healthz")))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, mem.Len())
}

func TestGinPanicReachesRecovery(t *testing.T) {
	f, mem := newFactory(t)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Gin(f))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	rec, ok := mem.Last()
	require.True(t, ok, "session is emitted before the panic propagates")
	assert.True(t, rec.Failed)
	assert.Contains(t, rec.Text, "(body exception: <unknown exception>)")
}

func TestGinTracingParentsSession(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f, _ := newFactory(t, session.WithHooks(session.TraceHook(tp.Tracer(trace.TracerName))))
	r := gin.New()
	r.Use(GinTracing("test-api", otelgin.WithTracerProvider(tp)))
	r.Use(Gin(f))
	r.GET("/traced", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/traced")

	spans := sr.Ended()
	require.Len(t, spans, 2)
	var server, sess sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == trace.SpanNameSession {
			sess = s
		} else {
			server = s
		}
	}
	require.NotNil(t, sess)
	require.NotNil(t, server)
	assert.Equal(t, server.SpanContext().SpanID(), sess.Parent().SpanID())
	assert.Equal(t, server.SpanContext().TraceID(), sess.SpanContext().TraceID())
}

// ============================================================
// gRPC
// ============================================================

var unaryInfo = &grpc.UnaryServerInfo{FullMethod: "/orders.v1.OrderService/Get"}

func TestUnaryServerInterceptor(t *testing.T) {
	f, mem := newFactory(t)
	interceptor := UnaryServerInterceptor(f)

	resp, err := interceptor(context.Background(), "req", unaryInfo,
		func(ctx context.Context, req any) (any, error) { return "resp", nil })
	require.NoError(t, err)
	assert.Equal(t, "resp", resp)

	rec, ok := mem.Last()
	require.True(t, ok)
	assert.Equal(t, "/orders.v1.OrderService/Get code=OK", rec.Message)
	assert.False(t, rec.Failed)
}

func TestUnaryServerInterceptorError(t *testing.T) {
	f, mem := newFactory(t)
	interceptor := UnaryServerInterceptor(f)
	want := status.Error(codes.NotFound, "order 42")

	_, err := interceptor(context.Background(), "req", unaryInfo,
		func(ctx context.Context, req any) (any, error) { return nil, want })
	assert.Same(t, want, err, "handler error is returned unchanged")

	rec, ok := mem.Last()
	require.True(t, ok)
	assert.Equal(t, "/orders.v1.OrderService/Get code=NotFound", rec.Message)
	assert.True(t, rec.Failed)
	assert.Contains(t, rec.BodyError, "order 42")
}

func TestUnaryServerInterceptorPanic(t *testing.T) {
	f, mem := newFactory(t)
	interceptor := UnaryServerInterceptor(f)

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = interceptor(context.Background(), "req", unaryInfo,
			func(ctx context.Context, req any) (any, error) { panic("boom") })
	})

	rec, ok := mem.Last()
	require.True(t, ok)
	assert.Equal(t, "/orders.v1.OrderService/Get code=Unknown", rec.Message)
	assert.True(t, rec.Failed)
}

func TestUnaryServerInterceptorSkip(t *testing.T) {
	f, mem := newFactory(t)
	interceptor := UnaryServerInterceptor(f, WithSkipPaths(unaryInfo.FullMethod))

	_, err := interceptor(context.Background(), "req", unaryInfo,
		func(ctx context.Context, req any) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, 0, mem.Len())
}

// stubServerStream 模拟 gRPC 服务端流
type stubServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *stubServerStream) SetHeader(metadata.MD) error  { return nil }
func (s *stubServerStream) SendHeader(metadata.MD) error { return nil }
func (s *stubServerStream) SetTrailer(metadata.MD)       {}
func (s *stubServerStream) Context() context.Context     { return s.ctx }

func TestStreamServerInterceptor(t *testing.T) {
	f, mem := newFactory(t)
	interceptor := StreamServerInterceptor(f)
	info := &grpc.StreamServerInfo{FullMethod: "/orders.v1.OrderService/Watch", IsServerStream: true}
	want := status.Error(codes.Canceled, "client gone")

	err := interceptor(nil, &stubServerStream{ctx: context.Background()}, info,
		func(srv any, ss grpc.ServerStream) error { return want })
	assert.Same(t, want, err)

	rec, ok := mem.Last()
	require.True(t, ok)
	assert.Equal(t, "/orders.v1.OrderService/Watch stream code=Canceled", rec.Message)
	assert.True(t, rec.Failed)
}

func TestStatsHandlers(t *testing.T) {
	assert.NotNil(t, GRPCServerStatsHandler())
	assert.NotNil(t, GRPCClientStatsHandler())
}
