package sink

import (
	"context"
	"sync"
)

// Memory 把记录保存在内存中，用于测试和进程内检查
type Memory struct {
	mu      sync.Mutex
	records []Record
}

// NewMemory 创建 Memory Sink
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Emit(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Records 返回已收到记录的副本
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Last 返回最后一条记录
func (m *Memory) Last() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return Record{}, false
	}
	return m.records[len(m.records)-1], true
}

// Len 已收到的记录数
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
