package config

import (
	"reflect"
	"sync"
	"time"

	"github.com/ceyewan/logsys/clog"
)

// watchBuffer 每个订阅通道的缓冲，满了之后新事件被丢弃
const watchBuffer = 10

type keyWatch struct {
	last any
	subs []chan Event
}

// subscriptions 按 key 管理 Watch 通道与上次通知的值
type subscriptions struct {
	mu   sync.Mutex
	keys map[string]*keyWatch
}

func newSubscriptions() *subscriptions {
	return &subscriptions{keys: make(map[string]*keyWatch)}
}

func (s *subscriptions) add(key string, current any) chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	kw, ok := s.keys[key]
	if !ok {
		kw = &keyWatch{}
		s.keys[key] = kw
	}
	kw.last = current
	ch := make(chan Event, watchBuffer)
	kw.subs = append(kw.subs, ch)
	return ch
}

// remove 持锁关闭通道，publish 不会向已关闭的通道发送
func (s *subscriptions) remove(key string, ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kw, ok := s.keys[key]
	if !ok {
		return
	}
	for i, c := range kw.subs {
		if c == ch {
			kw.subs = append(kw.subs[:i], kw.subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(kw.subs) == 0 {
		delete(s.keys, key)
	}
}

func (s *subscriptions) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kw, ok := s.keys[key]; ok {
		return len(kw.subs)
	}
	return 0
}

// snapshot 以当前值作为后续比较的基准
func (s *subscriptions) snapshot(get func(string) any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, kw := range s.keys {
		kw.last = get(key)
	}
}

// publish 向值发生变化的 key 的所有订阅者发送事件
func (s *subscriptions) publish(get func(string) any, source string, logger clog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for key, kw := range s.keys {
		cur := get(key)
		if reflect.DeepEqual(kw.last, cur) {
			continue
		}
		ev := Event{Key: key, Value: cur, OldValue: kw.last, Source: source, Timestamp: now}
		kw.last = cur
		for _, ch := range kw.subs {
			select {
			case ch <- ev:
			default:
				logger.Warn("watch channel full, event dropped", clog.String("key", key))
			}
		}
	}
}
