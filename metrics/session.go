package metrics

import (
	"context"
	"time"

	"github.com/ceyewan/logsys/xerrors"
)

const (
	MetricSessionsTotal       = "logsys_sessions_total"
	MetricBodyDurationSeconds = "logsys_body_duration_seconds"
	MetricLogFailuresTotal    = "logsys_log_failures_total"
)

const (
	LabelOutcome  = "outcome"
	LabelInstance = "instance"
)

// 会话结果
const (
	// OutcomeNoBody 只有消息、没有主体
	OutcomeNoBody = "no_body"
	// OutcomeOK 主体成功
	OutcomeOK = "ok"
	// OutcomeFailed 主体失败且错误继续向上传播
	OutcomeFailed = "failed"
	// OutcomeCaught 主体失败但被捕获
	OutcomeCaught = "caught"
)

var defaultBodyDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// SessionOutcome 根据会话状态计算 outcome 标签值
func SessionOutcome(hasBody, failed, caught bool) string {
	switch {
	case !hasBody:
		return OutcomeNoBody
	case failed && caught:
		return OutcomeCaught
	case failed:
		return OutcomeFailed
	default:
		return OutcomeOK
	}
}

// SessionMetrics 日志会话的指标集
type SessionMetrics struct {
	sessions     Counter
	duration     Histogram
	logFailures  Counter
	staticLabels []Label
}

// NewSessionMetrics 在 m 上创建会话指标
//
// staticLabels 会附加到每次观测上，例如 L(LabelInstance, "order-api-1")。
func NewSessionMetrics(m Meter, staticLabels ...Label) (*SessionMetrics, error) {
	if m == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "meter is nil")
	}

	sessions, err := m.Counter(MetricSessionsTotal, "Total number of finalized log sessions.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create sessions counter")
	}
	duration, err := m.Histogram(MetricBodyDurationSeconds, "Duration of logged body computations in seconds.",
		WithUnit("s"), WithBuckets(defaultBodyDurationBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create body duration histogram")
	}
	logFailures, err := m.Counter(MetricLogFailuresTotal, "Total number of message functions that panicked.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create log failures counter")
	}

	return &SessionMetrics{
		sessions:     sessions,
		duration:     duration,
		logFailures:  logFailures,
		staticLabels: append([]Label(nil), staticLabels...),
	}, nil
}

// Observe 记录一次会话
//
// outcome 为 OutcomeNoBody 时不记录耗时。
func (s *SessionMetrics) Observe(ctx context.Context, outcome string, elapsed time.Duration, logFailed bool) {
	if s == nil {
		return
	}

	labels := make([]Label, 0, len(s.staticLabels)+1)
	labels = append(labels, s.staticLabels...)
	labels = append(labels, L(LabelOutcome, outcome))

	s.sessions.Inc(ctx, labels...)
	if outcome != OutcomeNoBody {
		s.duration.Record(ctx, elapsed.Seconds(), labels...)
	}
	if logFailed {
		s.logFailures.Inc(ctx, s.staticLabels...)
	}
}
