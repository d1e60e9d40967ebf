package sink

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/ceyewan/logsys/xerrors"
)

// writerSink 将 Record.Text 按行写入 io.Writer
type writerSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewWriter 创建写入 w 的 Sink，每条记录一行
//
// 单行在一次 Write 中写出，多个 goroutine 并发 Emit 不会交错。
func NewWriter(w io.Writer) Sink {
	return &writerSink{w: w}
}

// Stderr 写入标准错误输出，是标准会话的默认 Sink
func Stderr() Sink {
	return NewWriter(os.Stderr)
}

// Stdout 写入标准输出
func Stdout() Sink {
	return NewWriter(os.Stdout)
}

// NewFile 以追加方式打开 path 并写入，Close 时关闭文件
func NewFile(path string) (Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, xerrors.Wrapf(err, "open log file %s", path)
	}
	return &writerSink{w: f, closer: f}, nil
}

func (s *writerSink) Emit(_ context.Context, rec *Record) error {
	line := make([]byte, 0, len(rec.Text)+1)
	line = append(line, rec.Text...)
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return xerrors.ErrSinkClosed
	}
	_, err := s.w.Write(line)
	return err
}

func (s *writerSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.closer != nil {
		err = s.closer.Close()
		s.w = nil
	}
	return err
}
