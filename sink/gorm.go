package sink

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"

	"github.com/ceyewan/logsys/xerrors"
)

const defaultTableName = "log_records"

// recordRow 日志记录的持久化结构
type recordRow struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	SessionID uint64 `gorm:"index"`
	Instance  string `gorm:"size:64;index"`
	StartedAt time.Time
	EndedAt   *time.Time
	HasBody   bool
	ElapsedNs int64
	Message   string `gorm:"type:text"`
	Failed    bool   `gorm:"index"`
	Caught    bool
	BodyError string `gorm:"type:text"`
	LogError  string `gorm:"type:text"`
	Text      string `gorm:"type:text"`
	CreatedAt time.Time
}

func newRecordRow(rec *Record) *recordRow {
	row := &recordRow{
		SessionID: rec.ID,
		Instance:  rec.Instance,
		StartedAt: rec.Start,
		HasBody:   rec.HasBody,
		ElapsedNs: int64(rec.Elapsed),
		Message:   rec.Message,
		Failed:    rec.Failed,
		Caught:    rec.Caught,
		BodyError: rec.BodyError,
		LogError:  rec.LogError,
		Text:      rec.Text,
	}
	if !rec.End.IsZero() {
		end := rec.End
		row.EndedAt = &end
	}
	return row
}

type gormSink struct {
	db    *gorm.DB
	table string
}

// NewGORM 把记录写入数据库表，创建时自动迁移表结构
//
// db 由调用方管理，Close 不会关闭底层连接。
func NewGORM(db *gorm.DB, opts ...Option) (Sink, error) {
	if db == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "gorm db is required")
	}
	o := applyOptions(opts...)
	if err := db.Table(o.tableName).AutoMigrate(&recordRow{}); err != nil {
		return nil, xerrors.Wrapf(err, "migrate table %s", o.tableName)
	}
	return &gormSink{db: db, table: o.tableName}, nil
}

// InstrumentGORM 为 GORM 注册 OpenTelemetry 插件
func InstrumentGORM(db *gorm.DB) error {
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return xerrors.Wrap(err, "register otelgorm plugin")
	}
	return nil
}

func (s *gormSink) Emit(ctx context.Context, rec *Record) error {
	if err := s.db.WithContext(ctx).Table(s.table).Create(newRecordRow(rec)).Error; err != nil {
		return xerrors.Wrapf(err, "insert into %s", s.table)
	}
	return nil
}

func (s *gormSink) Close() error {
	return nil
}
