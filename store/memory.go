package store

import (
	"context"
	"sync"
)

type memObject struct {
	meta  Metadata
	bytes []byte
}

// MemStore keeps objects in process memory.
type MemStore struct {
	mutex *sync.RWMutex
	db    map[string]memObject
}

func NewMemStore() MemStore {
	return MemStore{
		mutex: &sync.RWMutex{},
		db:    make(map[string]memObject),
	}
}

func (m MemStore) Head(_ context.Context, key string) (Metadata, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	obj, ok := m.db[key]
	return obj.meta, ok, nil
}

func (m MemStore) Get(_ context.Context, key string) ([]byte, Metadata, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	obj, ok := m.db[key]
	if !ok {
		return nil, Metadata{}, ErrNotFound
	}
	// copy so callers can't mutate stored payloads
	b := make([]byte, len(obj.bytes))
	copy(b, obj.bytes)
	return b, obj.meta, nil
}

func (m MemStore) Put(_ context.Context, key string, data []byte, meta Metadata) error {
	// copy so callers can't mutate stored payloads
	b := make([]byte, len(data))
	copy(b, data)
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.db[key] = memObject{meta: meta, bytes: b}
	return nil
}

// Len returns the number of stored objects.
func (m MemStore) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.db)
}
