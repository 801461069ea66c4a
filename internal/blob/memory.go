package blob

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memObject struct {
	data    []byte
	version int64
}

// Memory is an in-process Store used for tests and single-node development.
// All operations are safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	objects  map[string]*memObject
	onCreate func(key string)
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]*memObject)}
}

// OnCreate registers the object-created hook. Must be called before writes begin.
func (m *Memory) OnCreate(fn func(key string)) {
	m.mu.Lock()
	m.onCreate = fn
	m.mu.Unlock()
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, 0, ErrNotFound
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, obj.version, nil
}

func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	obj, existed := m.objects[key]
	if !existed {
		obj = &memObject{}
		m.objects[key] = obj
	}
	obj.data = append([]byte(nil), data...)
	obj.version++
	hook := m.onCreate
	m.mu.Unlock()

	if !existed && hook != nil {
		hook(key)
	}
	return nil
}

func (m *Memory) PutIf(_ context.Context, key string, data []byte, expected int64) (int64, error) {
	m.mu.Lock()
	obj, existed := m.objects[key]

	current := int64(0)
	if existed {
		current = obj.version
	}
	if current != expected {
		m.mu.Unlock()
		return 0, ErrVersionConflict
	}

	if !existed {
		obj = &memObject{}
		m.objects[key] = obj
	}
	obj.data = append([]byte(nil), data...)
	obj.version++
	version := obj.version
	hook := m.onCreate
	m.mu.Unlock()

	if !existed && hook != nil {
		hook(key)
	}
	return version, nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}
