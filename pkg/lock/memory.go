package lock

import (
	"context"
	"sync"
)

// Memory is a process-local Locker.
type Memory struct {
	mu   sync.Mutex
	sems map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewMemory() *Memory {
	return &Memory{sems: map[string]*slot{}}
}

func (m *Memory) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	s := m.sems[key]
	if s == nil {
		s = &slot{ch: make(chan struct{}, 1)}
		m.sems[key] = s
	}
	s.refs++
	m.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.drop(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			m.drop(key, s)
		})
	}, nil
}

func (m *Memory) drop(key string, s *slot) {
	m.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(m.sems, key)
	}
	m.mu.Unlock()
}

func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sems)
}
