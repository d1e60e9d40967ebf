package connector

import (
	"context"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ceyewan/logsys/clog"
	"github.com/ceyewan/logsys/xerrors"
)

// OpenDB 打开 GORM 连接并配置连接池，SQL 日志写入 clog
func OpenDB(ctx context.Context, cfg *DBConfig, opts ...Option) (*gorm.DB, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	dialector := sqlite.Open(cfg.DSN)
	if cfg.Driver == "mysql" {
		dialector = mysql.Open(cfg.DSN)
	}

	var db *gorm.DB
	err := o.connect(ctx, cfg.Driver, redactDSN(cfg.DSN), func() error {
		var err error
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger: newGormLogger(o.logger.With(clog.String("kind", cfg.Driver)), cfg.SlowThreshold),
		})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// CloseDB 关闭 GORM 底层的 *sql.DB，db 为 nil 时什么都不做
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return xerrors.Wrap(err, "connector: underlying db")
	}
	return sqlDB.Close()
}

// redactDSN 去掉 user:password@ 部分，日志和错误里不出现口令
func redactDSN(dsn string) string {
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == '@' {
			return "***" + dsn[i:]
		}
	}
	return dsn
}
