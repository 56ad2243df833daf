package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process ObjectStore used in development and
// tests. Presigned URLs are synthetic; callers exercising the full
// transfer path should point the uploader at a real bucket or a test
// server instead.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	// FailDelete, when set, makes DeleteObject return an error. Lets
	// tests exercise the compensation-failure logging path.
	FailDelete bool
}

type memoryObject struct {
	data    []byte
	modTime time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Put stores an object directly, standing in for a presigned PUT.
func (m *MemoryStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), modTime: time.Now()}
}

func (m *MemoryStore) IssueUploadURL(_ context.Context, key string) (string, error) {
	return "memory://" + key, nil
}

func (m *MemoryStore) FetchObject(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *MemoryStore) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete {
		return fmt.Errorf("delete disabled for %s", key)
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) ListObjects(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var objects []ObjectInfo
	for key, obj := range m.objects {
		if prefix != "" && (len(key) < len(prefix) || key[:len(prefix)] != prefix) {
			continue
		}
		objects = append(objects, ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modTime})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}
