package kv

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var _ Storage = (*memory)(nil)

type memory struct {
	db   map[string][]byte
	lock sync.RWMutex
}

func NewMemory() Storage {
	return &memory{
		db: make(map[string][]byte),
	}
}

func (m *memory) Put(key, value []byte) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.db[string(key)] = common.CopyBytes(value)
}

func (m *memory) Delete(key []byte) {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.db, string(key))
}

func (m *memory) Get(key []byte) []byte {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if v, ok := m.db[string(key)]; ok {
		return common.CopyBytes(v)
	}
	return nil
}

func (m *memory) Has(key []byte) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	_, ok := m.db[string(key)]
	return ok
}

func (m *memory) NewBatch() Batch {
	return &memoryBatch{
		db:     m,
		writes: make(map[string][]byte),
	}
}

func (m *memory) Close() error {
	return nil
}

type memoryBatch struct {
	db     *memory
	writes map[string][]byte
	size   int
}

func (b *memoryBatch) Put(key, value []byte) {
	b.writes[string(key)] = common.CopyBytes(value)
	b.size += len(key) + len(value)
}

// nil marks a delete
func (b *memoryBatch) Delete(key []byte) {
	b.writes[string(key)] = nil
	b.size += len(key)
}

func (b *memoryBatch) Commit() {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	for k, v := range b.writes {
		if v == nil {
			delete(b.db.db, k)
		} else {
			b.db.db[k] = v
		}
	}
}

func (b *memoryBatch) Size() int {
	return b.size
}

func (b *memoryBatch) Reset() {
	b.writes = make(map[string][]byte)
	b.size = 0
}
