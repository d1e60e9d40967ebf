package connector

import (
	"context"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/xerrors"
)

// DialKafka 创建 Kafka 客户端
//
// franz-go 惰性建连，Ping 成功说明至少一个 seed broker 可达。
func DialKafka(ctx context.Context, cfg *KafkaConfig, opts ...Option) (*kgo.Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Seed...),
		kgo.ClientID(cfg.ClientID),
		kgo.WithLogger(kgoLogger{o.logger.With(clog.String("kind", "kafka"))}),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		o.observe(ctx, "kafka", err)
		return nil, xerrors.Wrapf(ErrConfig, "kafka client: %v", err)
	}
	if err := o.connect(ctx, "kafka", strings.Join(cfg.Seed, ","), func() error {
		return client.Ping(ctx)
	}); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// kgoLogger 把 franz-go 的 Warn 及以上日志转到 clog
type kgoLogger struct {
	logger clog.Logger
}

func (kgoLogger) Level() kgo.LogLevel { return kgo.LogLevelWarn }

func (l kgoLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	fields := make([]clog.Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		if key, ok := keyvals[i].(string); ok {
			fields = append(fields, clog.Any(key, keyvals[i+1]))
		}
	}
	var lv clog.Level
	switch level {
	case kgo.LogLevelError:
		lv = clog.ErrorLevel
	case kgo.LogLevelWarn:
		lv = clog.WarnLevel
	case kgo.LogLevelInfo:
		lv = clog.InfoLevel
	case kgo.LogLevelDebug:
		lv = clog.DebugLevel
	default:
		return
	}
	l.logger.Log(context.Background(), lv, msg, fields...)
}
