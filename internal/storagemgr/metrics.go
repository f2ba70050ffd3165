package storagemgr

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/axiomesh/token-ledger/internal/storagemgr/kv"
)

var (
	kvOpCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "token_ledger",
		Subsystem: "storage",
		Name:      "kv_op_counter",
		Help:      "The total number of kv operations",
	}, []string{"op"})

	kvCacheHitCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "token_ledger",
		Subsystem: "storage",
		Name:      "kv_cache_hit_counter",
		Help:      "The total number of kv cache hit",
	})

	kvCacheMissCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "token_ledger",
		Subsystem: "storage",
		Name:      "kv_cache_miss_counter",
		Help:      "The total number of kv cache miss",
	})
)

func init() {
	prometheus.MustRegister(kvOpCounter)
	prometheus.MustRegister(kvCacheHitCounter)
	prometheus.MustRegister(kvCacheMissCounter)
}

// instrumentedStorage counts kv operations and unregisters itself from the
// manager on Close so the path can be opened again.
type instrumentedStorage struct {
	kv.Storage
	path string
}

func (s *instrumentedStorage) Close() error {
	globalStorageMgr.lock.Lock()
	delete(globalStorageMgr.storages, s.path)
	globalStorageMgr.lock.Unlock()
	return s.Storage.Close()
}

func (s *instrumentedStorage) Get(key []byte) []byte {
	kvOpCounter.WithLabelValues("get").Inc()
	return s.Storage.Get(key)
}

func (s *instrumentedStorage) Put(key, value []byte) {
	kvOpCounter.WithLabelValues("put").Inc()
	s.Storage.Put(key, value)
}

func (s *instrumentedStorage) Delete(key []byte) {
	kvOpCounter.WithLabelValues("delete").Inc()
	s.Storage.Delete(key)
}

func (s *instrumentedStorage) NewBatch() kv.Batch {
	return &instrumentedBatch{Batch: s.Storage.NewBatch()}
}

type instrumentedBatch struct {
	kv.Batch
}

func (b *instrumentedBatch) Commit() {
	kvOpCounter.WithLabelValues("batch_commit").Inc()
	b.Batch.Commit()
}
