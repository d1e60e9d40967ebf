package clog

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ceyewan/logsys/xerrors"
)

// Level 日志级别，数值与 slog.Level 相同
type Level int

const (
	DebugLevel = Level(slog.LevelDebug)
	InfoLevel  = Level(slog.LevelInfo)
	WarnLevel  = Level(slog.LevelWarn)
	ErrorLevel = Level(slog.LevelError)
)

var levelNames = map[Level]string{
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel 不区分大小写地解析级别名，"warning" 等同 "warn"
//
// 失败时返回 InfoLevel。
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	for l, n := range levelNames {
		if n == name {
			return l, nil
		}
	}
	return InfoLevel, xerrors.Wrapf(xerrors.ErrInvalidInput, "unknown log level %q", s)
}
