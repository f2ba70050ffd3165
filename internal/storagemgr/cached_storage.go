package storagemgr

import (
	"github.com/VictoriaMetrics/fastcache"

	"github.com/axiomesh/token-ledger/internal/storagemgr/kv"
)

type CachedStorage struct {
	kv.Storage
	cache *fastcache.Cache
}

func NewCachedStorage(s kv.Storage, megabytesLimit int) kv.Storage {
	if megabytesLimit <= 0 {
		megabytesLimit = 128
	}
	return &CachedStorage{
		Storage: s,
		cache:   fastcache.New(megabytesLimit * 1024 * 1024),
	}
}

func (c *CachedStorage) Get(key []byte) []byte {
	value, ok := c.cache.HasGet(nil, key)
	if ok {
		kvCacheHitCounter.Inc()
		return value
	}
	kvCacheMissCounter.Inc()
	v := c.Storage.Get(key)
	if v != nil {
		c.cache.Set(key, v)
	}
	return v
}

func (c *CachedStorage) Has(key []byte) bool {
	if c.cache.Has(key) {
		kvCacheHitCounter.Inc()
		return true
	}
	kvCacheMissCounter.Inc()
	return c.Storage.Has(key)
}

func (c *CachedStorage) Put(key, value []byte) {
	c.Storage.Put(key, value)
	c.cache.Set(key, value)
}

func (c *CachedStorage) Delete(key []byte) {
	c.cache.Del(key)
	c.Storage.Delete(key)
}

func (c *CachedStorage) Close() error {
	c.cache.Reset()
	return c.Storage.Close()
}

func (c *CachedStorage) NewBatch() kv.Batch {
	return &BatchWrapper{
		Batch:      c.Storage.NewBatch(),
		cache:      c.cache,
		finalState: make(map[string][]byte),
	}
}

// BatchWrapper refreshes the cache only after the underlying batch commits.
type BatchWrapper struct {
	kv.Batch
	cache      *fastcache.Cache
	finalState map[string][]byte
}

func (w *BatchWrapper) Put(key, value []byte) {
	w.finalState[string(key)] = value
	w.Batch.Put(key, value)
}

func (w *BatchWrapper) Delete(key []byte) {
	w.finalState[string(key)] = nil
	w.Batch.Delete(key)
}

func (w *BatchWrapper) Commit() {
	w.Batch.Commit()
	for k, v := range w.finalState {
		if v == nil {
			w.cache.Del([]byte(k))
		} else {
			w.cache.Set([]byte(k), v)
		}
	}
}

func (w *BatchWrapper) Reset() {
	w.Batch.Reset()
	w.finalState = make(map[string][]byte)
}
