package connector

import (
	"context"
	"fmt"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/ceyewan/logsys/clog"
)

// gormLogger 把 GORM 的日志转到 clog，超过 slow 的语句以 Warn 记录
type gormLogger struct {
	logger clog.Logger
	level  gormlogger.LogLevel
	slow   time.Duration
}

func newGormLogger(l clog.Logger, slow time.Duration) gormlogger.Interface {
	return &gormLogger{logger: l, level: gormlogger.Warn, slow: slow}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	g.printf(ctx, gormlogger.Info, clog.InfoLevel, msg, data)
}

func (g *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	g.printf(ctx, gormlogger.Warn, clog.WarnLevel, msg, data)
}

func (g *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	g.printf(ctx, gormlogger.Error, clog.ErrorLevel, msg, data)
}

func (g *gormLogger) printf(ctx context.Context, need gormlogger.LogLevel, lv clog.Level, msg string, data []any) {
	if g.level >= need {
		g.logger.Log(ctx, lv, fmt.Sprintf(msg, data...))
	}
}

// Trace 每条 SQL 执行后调用：出错记 Error，慢查询记 Warn，Info 模式下其余记 Debug
func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	var lv clog.Level
	var msg string
	switch {
	case g.level >= gormlogger.Error && err != nil:
		lv, msg = clog.ErrorLevel, "sql error"
	case g.level >= gormlogger.Warn && g.slow > 0 && elapsed > g.slow:
		lv, msg = clog.WarnLevel, "slow sql"
	case g.level >= gormlogger.Info:
		lv, msg = clog.DebugLevel, "sql"
	default:
		return
	}

	sql, rows := fc()
	g.logger.Log(ctx, lv, msg,
		clog.Duration("duration", elapsed),
		clog.String("sql", sql),
		clog.Int64("rows", rows),
		clog.Error(err),
	)
}
