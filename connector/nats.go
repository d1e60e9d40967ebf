package connector

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/ceyewan/logsys/clog"
)

// DialNATS 建立 NATS 连接，断线与重连事件写入组件日志
func DialNATS(ctx context.Context, cfg *NATSConfig, opts ...Option) (*nats.Conn, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	events := o.logger.With(clog.String("kind", "nats"), clog.String("name", cfg.Name))

	natsOpts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				events.Warn("disconnected, log records may be lost until reconnect", clog.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			events.Info("reconnected", clog.String("url", c.ConnectedUrl()))
		}),
	}
	if cfg.Username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	var conn *nats.Conn
	err := o.connect(ctx, "nats", cfg.URL, func() (err error) {
		conn, err = nats.Connect(cfg.URL, natsOpts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
