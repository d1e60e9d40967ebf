package sink

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ceyewan/logsys/xerrors"
)

type rateLimitSink struct {
	next    Sink
	limiter *rate.Limiter
}

// WithRateLimit 以令牌桶限制下游写入速率
//
// Emit 会等待令牌；ctx 取消或超时前拿不到令牌则返回错误。截止时间内等不到
// 令牌时返回的错误满足 errors.Is(err, context.DeadlineExceeded)。
// 被拒绝的记录不会重试，通常放在 Fallback 中并在其后配置兜底 Sink。
func WithRateLimit(next Sink, perSecond float64, burst int) Sink {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimitSink{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (r *rateLimitSink) Emit(ctx context.Context, rec *Record) error {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			// 令牌来不及在截止时间前到达，Wait 会提前返回
			return xerrors.Wrapf(context.DeadlineExceeded, "rate limit wait: %v", err)
		}
		return xerrors.Wrap(err, "rate limit wait")
	}
	return r.next.Emit(ctx, rec)
}

func (r *rateLimitSink) Close() error {
	return r.next.Close()
}
