package storage

import (
	"context"
	"sync"
)

// Memory is an in-process store, the default driver and the test double.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns, ok := m.data[namespace]
	if !ok {
		return nil, ErrNotFound
	}
	v, ok := ns[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.data[namespace] = ns
	}
	ns[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ns, ok := m.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (m *Memory) List(_ context.Context, namespace string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte)
	for k, v := range m.data[namespace] {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
